package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gomail "gopkg.in/mail.v2"
)

var ErrEmailConfig = errors.New("smtp server, from and to addresses are required")

// EmailConfig holds SMTP configuration for sending emails.
type EmailConfig struct {
	SMTPServer string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	From       string
	To         []string
	Subject    string // default: "Listing watch"
}

// mailSender is satisfied by *gomail.Dialer.
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Email delivers notifications via SMTP.
type Email struct {
	cfg    EmailConfig
	sender mailSender
}

// NewEmail creates an Email notifier.
func NewEmail(cfg EmailConfig) (*Email, error) {
	if cfg.SMTPServer == "" || cfg.From == "" || len(cfg.To) == 0 {
		return nil, ErrEmailConfig
	}
	if cfg.SMTPPort == 0 {
		cfg.SMTPPort = 587
	}
	if cfg.Subject == "" {
		cfg.Subject = "Listing watch"
	}

	dialer := gomail.NewDialer(cfg.SMTPServer, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	dialer.Timeout = 10 * time.Second

	return &Email{cfg: cfg, sender: dialer}, nil
}

// Notify implements Notifier. The first line of text is appended to the
// subject.
func (e *Email) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := e.cfg.Subject
	if first, _, _ := strings.Cut(text, "\n"); first != "" {
		subject += ": " + first
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.cfg.From)
	m.SetHeader("To", e.cfg.To...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", text)

	if err := e.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
