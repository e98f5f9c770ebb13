// Package sms "sends" text messages by writing them to files. There is no
// gateway; the save directory is where the development codes turn up.
package sms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Sender delivers a text message to a phone number.
type Sender interface {
	Send(ctx context.Context, number, message string) error
}

// FileSender writes each message to <dir>/<number>-<uuid>.txt.
type FileSender struct {
	dir string
}

// NewFileSender returns a FileSender writing under dir.
func NewFileSender(dir string) *FileSender {
	return &FileSender{dir: dir}
}

// Send writes the message file.
func (f *FileSender) Send(_ context.Context, number, message string) error {
	if strings.TrimSpace(number) == "" {
		return errors.New("sms: empty number")
	}
	if strings.TrimSpace(message) == "" {
		return errors.New("sms: empty message")
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("sms save dir: %w", err)
	}
	path := filepath.Join(f.dir, fileSafe(number)+"-"+uuid.NewString()+".txt")
	if err := os.WriteFile(path, []byte(message), 0o644); err != nil {
		return fmt.Errorf("sms save: %w", err)
	}

	slog.Info("sms saved", "path", path)
	return nil
}

// fileSafe keeps the digits and a leading plus of a phone number.
func fileSafe(number string) string {
	var b strings.Builder
	for i, r := range number {
		if unicode.IsDigit(r) || (i == 0 && r == '+') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
