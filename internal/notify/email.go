package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	gomail "gopkg.in/mail.v2"
)

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	From         string
	To           []string
}

// EmailSender delivers notifications as plain-text email.
type EmailSender struct {
	cfg  EmailConfig
	send func(*gomail.Message) error
}

// NewEmailSender creates an EmailSender. Each Send dials the SMTP server
// with a 10-second timeout.
func NewEmailSender(cfg EmailConfig) *EmailSender {
	s := &EmailSender{cfg: cfg}
	s.send = func(m *gomail.Message) error {
		dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
		dialer.Timeout = 10 * time.Second
		return dialer.DialAndSend(m)
	}
	return s
}

// Send emails title as the subject and message as the body. The SMTP
// exchange itself cannot be cancelled; ctx is checked before dialing.
func (s *EmailSender) Send(ctx context.Context, title, message string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("email: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", s.cfg.To...)
	m.SetHeader("Subject", title)
	m.SetBody("text/plain", message)

	if err := s.send(m); err != nil {
		return fmt.Errorf("email: send to %s: %w", strings.Join(s.cfg.To, ","), err)
	}
	return nil
}

// Name returns the sender identifier.
func (s *EmailSender) Name() string {
	return "email"
}
