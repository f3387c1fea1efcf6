// Package notify delivers operator messages.
//
// Implementations:
//   - Telegram: Bot API sendMessage
//   - Email: SMTP via gopkg.in/mail.v2
//   - Log: writes to the structured logger
//   - Multi: fans a message out to several notifiers
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Notifier delivers a plain-text message.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Log writes notifications to a logger.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a Log notifier.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Notify implements Notifier.
func (l *Log) Notify(ctx context.Context, text string) error {
	l.logger.Info("notification", "text", text)
	return nil
}

// Multi sends every message to all notifiers.
type Multi []Notifier

// Notify implements Notifier. All notifiers are attempted; their errors are
// joined.
func (m Multi) Notify(ctx context.Context, text string) error {
	var errs []error
	for i, n := range m {
		if err := n.Notify(ctx, text); err != nil {
			errs = append(errs, fmt.Errorf("notifier %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
