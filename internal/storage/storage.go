// Package storage keeps uploaded files: product photos and general uploads.
// Files live either in an S3-compatible bucket or in a local directory
// served under /contents/.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Bucket stores objects by key.
type Bucket interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Key folders.
const (
	ProductPhotosFolder = "products"
	GeneralFolder       = "general"
)

// ProductPhotoKey returns the object key for a product photo.
func ProductPhotoKey(productID int64, fileName string) string {
	return fmt.Sprintf("%s/%d/%s", ProductPhotosFolder, productID, fileName)
}

// NewFileName returns a random file name keeping ext, which must include
// the leading dot.
func NewFileName(ext string) string {
	return uuid.NewString() + strings.ToLower(ext)
}

// SanitizeFolder reduces a caller-supplied folder to lowercase path
// segments of letters, digits, hyphens and underscores. Empty or fully
// rejected input yields GeneralFolder.
func SanitizeFolder(folder string) string {
	var parts []string
	for _, seg := range strings.Split(strings.ReplaceAll(folder, "\\", "/"), "/") {
		var b strings.Builder
		for _, r := range strings.ToLower(seg) {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
				b.WriteRune(r)
			}
		}
		if b.Len() > 0 {
			parts = append(parts, b.String())
		}
	}
	if len(parts) == 0 {
		return GeneralFolder
	}
	return path.Join(parts...)
}
