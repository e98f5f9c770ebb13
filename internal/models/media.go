// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"fmt"
	"strings"
	"time"
)

// ProductPhoto is an image attached to a product. FileName is the storage
// key relative to the products folder.
type ProductPhoto struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	FileName  string    `json:"file_name"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UploadedFile describes a file stored through the general upload endpoint.
type UploadedFile struct {
	FileName     string `json:"fileName"`
	OriginalName string `json:"originalName"`
	URL          string `json:"url"`
	Size         int64  `json:"size"`
	ContentType  string `json:"contentType"`
}

// IsImage returns true if the upload is an image type.
func (f *UploadedFile) IsImage() bool {
	return strings.HasPrefix(f.ContentType, "image/")
}

// HumanSize returns a human-readable file size string.
func (f *UploadedFile) HumanSize() string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	switch {
	case f.Size >= mb:
		return fmt.Sprintf("%.1f MB", float64(f.Size)/float64(mb))
	case f.Size >= kb:
		return fmt.Sprintf("%.0f KB", float64(f.Size)/float64(kb))
	default:
		return fmt.Sprintf("%d B", f.Size)
	}
}
