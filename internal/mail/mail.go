// Package mail sends HTML email over SMTP. A message that cannot be
// delivered, or any message when no SMTP host is configured, is written to
// the save directory as an .eml file.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	gomail "github.com/wneessen/go-mail"
)

// Sender delivers a single HTML message.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Config holds SMTP settings. An empty Host disables delivery.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	DisplayName string
	SaveDir     string
}

// SMTPSender is a Sender backed by go-mail.
type SMTPSender struct {
	cfg Config
}

// NewSMTPSender returns a sender for cfg.
func NewSMTPSender(cfg Config) *SMTPSender {
	if cfg.SaveDir == "" {
		cfg.SaveDir = "mails"
	}
	return &SMTPSender{cfg: cfg}
}

// Send builds the message and delivers it. On delivery failure the message
// is saved and the delivery error returned.
func (s *SMTPSender) Send(ctx context.Context, to, subject, html string) error {
	if strings.TrimSpace(to) == "" {
		return errors.New("mail: empty recipient")
	}
	if strings.TrimSpace(subject) == "" {
		return errors.New("mail: empty subject")
	}
	if strings.TrimSpace(html) == "" {
		return errors.New("mail: empty body")
	}

	msg, err := s.build(to, subject, html)
	if err != nil {
		return err
	}

	if s.cfg.Host == "" {
		path, err := s.save(msg)
		if err != nil {
			return err
		}
		slog.Info("mail saved, smtp not configured", "to", to, "path", path)
		return nil
	}

	client, err := gomail.NewClient(s.cfg.Host,
		gomail.WithPort(s.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.Username),
		gomail.WithPassword(s.cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		path, saveErr := s.save(msg)
		if saveErr != nil {
			slog.Error("mail save failed", "to", to, "error", saveErr)
		}
		slog.Error("mail delivery failed", "to", to, "saved", path, "error", err)
		return fmt.Errorf("mail send: %w", err)
	}

	slog.Info("mail sent", "to", to, "subject", subject)
	return nil
}

func (s *SMTPSender) build(to, subject, html string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if s.cfg.DisplayName != "" {
		if err := msg.FromFormat(s.cfg.DisplayName, s.cfg.From); err != nil {
			return nil, fmt.Errorf("mail from: %w", err)
		}
	} else if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, html)
	return msg, nil
}

func (s *SMTPSender) save(msg *gomail.Msg) (string, error) {
	if err := os.MkdirAll(s.cfg.SaveDir, 0o755); err != nil {
		return "", fmt.Errorf("mail save dir: %w", err)
	}
	path := filepath.Join(s.cfg.SaveDir, uuid.NewString()+".eml")
	if err := msg.WriteToFile(path); err != nil {
		return "", fmt.Errorf("mail save: %w", err)
	}
	return path, nil
}
