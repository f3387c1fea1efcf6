package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/rickgao/listing-watch/internal/listener"
	"github.com/rickgao/listing-watch/internal/model"
)

// Source is a websocket EventSource.
type Source struct {
	cfg    SourceConfig
	logger *slog.Logger
}

// NewSource creates a Source.
func NewSource(cfg SourceConfig, logger *slog.Logger) (*Source, error) {
	if cfg.Client.URL == "" {
		return nil, ErrNoURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{cfg: cfg, logger: logger}, nil
}

// Subscribe dials a new connection and sends the subscribe frame.
func (s *Source) Subscribe(ctx context.Context) (listener.Subscription, error) {
	c := NewClient(s.cfg.Client, s.logger)
	if err := c.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if s.cfg.Subscribe != "" {
		if err := c.Send([]byte(s.cfg.Subscribe)); err != nil {
			c.Close()
			return nil, fmt.Errorf("send subscribe: %w", err)
		}
	}

	return &subscription{client: c, channels: s.cfg.Channels}, nil
}

// Close implements io.Closer. Subscriptions own their connections, so there
// is nothing to release here.
func (s *Source) Close() error {
	return nil
}

// subscription adapts a Client to listener.Subscription.
type subscription struct {
	client   Client
	channels []string
	failed   error // set once the connection reported an error
}

// Next blocks until a text message arrives, the connection fails or ctx ends.
// Messages buffered before a failure are still delivered.
func (s *subscription) Next(ctx context.Context) (model.Message, error) {
	for {
		var raw TimestampedMessage
		if s.failed != nil {
			select {
			case raw = <-s.client.Messages():
			default:
				return model.Message{}, s.failed
			}
		} else {
			select {
			case <-ctx.Done():
				return model.Message{}, ctx.Err()
			case err := <-s.client.Errors():
				s.failed = err
				continue
			case raw = <-s.client.Messages():
			}
		}

		msg, ok := Decode(raw)
		if !ok {
			continue
		}
		if len(s.channels) > 0 && !slices.Contains(s.channels, msg.Channel) {
			continue
		}
		return msg, nil
	}
}

func (s *subscription) Close() error {
	return s.client.Close()
}

// Dropped implements listener.DropCounter.
func (s *subscription) Dropped() int64 {
	return s.client.Dropped()
}

// Decode turns a frame into a Message. JSON objects use Frame; anything else
// is taken as plain text. Empty text reports false.
func Decode(raw TimestampedMessage) (model.Message, bool) {
	msg := model.Message{ReceivedAt: raw.ReceivedAt}

	data := bytes.TrimSpace(raw.Data)
	var f Frame
	if len(data) > 0 && data[0] == '{' && json.Unmarshal(data, &f) == nil {
		msg.Channel = f.Channel
		msg.Text = f.Text
		if msg.Text == "" {
			msg.Text = f.Message
		}
	} else {
		msg.Text = string(data)
	}

	msg.Text = strings.TrimSpace(msg.Text)
	return msg, msg.Text != ""
}
