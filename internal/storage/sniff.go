package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

// Upload limits.
const (
	MaxPhotoSize  = 10 << 20
	MaxUploadSize = 10 << 20
)

var (
	ErrTooLarge      = errors.New("file too large")
	ErrNotImage      = errors.New("file is not an image")
	ErrExtNotAllowed = errors.New("file type not allowed")
)

var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// AllowedExtensions lists the extensions accepted by general uploads.
var AllowedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".pdf": true, ".doc": true, ".docx": true, ".txt": true,
}

// CheckedFile is a multipart file that passed validation.
type CheckedFile struct {
	File        multipart.File
	Size        int64
	ContentType string
	Ext         string
	Original    string
}

// CheckImage verifies an uploaded image by sniffing its first bytes. The
// returned extension comes from the detected type, not the client name.
func CheckImage(f multipart.File, h *multipart.FileHeader) (*CheckedFile, error) {
	if h.Size > MaxPhotoSize {
		return nil, ErrTooLarge
	}
	ct, err := sniff(f)
	if err != nil {
		return nil, err
	}
	ext, ok := imageTypes[ct]
	if !ok {
		return nil, ErrNotImage
	}
	return &CheckedFile{File: f, Size: h.Size, ContentType: ct, Ext: ext, Original: h.Filename}, nil
}

// CheckUpload verifies a general upload against AllowedExtensions.
func CheckUpload(f multipart.File, h *multipart.FileHeader) (*CheckedFile, error) {
	if h.Size > MaxUploadSize {
		return nil, ErrTooLarge
	}
	ext := strings.ToLower(filepath.Ext(h.Filename))
	if !AllowedExtensions[ext] {
		return nil, ErrExtNotAllowed
	}
	ct, err := sniff(f)
	if err != nil {
		return nil, err
	}
	return &CheckedFile{File: f, Size: h.Size, ContentType: ct, Ext: ext, Original: h.Filename}, nil
}

func sniff(f multipart.File) (string, error) {
	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}
	ct := http.DetectContentType(buf[:n])
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct, nil
}
