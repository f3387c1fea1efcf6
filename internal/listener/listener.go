// Package listener implements the Event Listener for push sources.
//
// A Listener holds one subscription, classifies every inbound message by
// marker phrase, claims its fingerprint across the configured ledger streams
// and dispatches the extracted symbols. Lost subscriptions are re-established
// with exponential backoff.
package listener

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/listing-watch/internal/extract"
	"github.com/rickgao/listing-watch/internal/ledger"
	"github.com/rickgao/listing-watch/internal/model"
)

var (
	ErrNoSource     = errors.New("listener: event source is required")
	ErrNoDispatcher = errors.New("listener: dispatcher is required")
)

// EventSource opens subscriptions to a push channel.
type EventSource interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// Subscription delivers messages until closed or broken.
type Subscription interface {
	Next(ctx context.Context) (model.Message, error)
	Close() error
}

// DropCounter is implemented by subscriptions that shed frames when their
// buffer is full.
type DropCounter interface {
	Dropped() int64
}

// Dispatcher triggers the action for a symbol.
type Dispatcher interface {
	Trigger(ctx context.Context, symbol string) model.Outcome
}

// Recorder persists detections.
type Recorder interface {
	RecordDetection(ctx context.Context, det model.Detection) error
}

// Config holds listener configuration.
type Config struct {
	Name        string        // Listener name used in logs and detections
	Streams     []string      // Ledger streams shared with pollers (default: [Name] when no source is configured)
	Markers     []string      // Classification phrases (default: DefaultMarkers)
	Chain       extract.Chain // Extractors in priority order (default: extract.DefaultChain())
	BackoffBase time.Duration // First resubscribe delay (default: 1s)
	BackoffMax  time.Duration // Resubscribe delay cap (default: 1m)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Name:        "push",
		Markers:     DefaultMarkers,
		Chain:       extract.DefaultChain(),
		BackoffBase: time.Second,
		BackoffMax:  time.Minute,
	}
}

// Stats holds listener counters.
type Stats struct {
	Name        string    `json:"name"`
	Connected   bool      `json:"connected"`
	Subscribes  int64     `json:"subscribes"`
	Messages    int64     `json:"messages"`
	Matched     int64     `json:"matched"`
	Dropped     int64     `json:"dropped"`
	LastMessage time.Time `json:"last_message,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
}

// Listener consumes one EventSource.
type Listener struct {
	cfg        Config
	source     EventSource
	ledger     *ledger.Ledger
	classifier Classifier
	dispatcher Dispatcher
	recorder   Recorder
	logger     *slog.Logger

	statsMu sync.Mutex
	stats   Stats
}

// New creates a Listener. recorder may be nil.
func New(cfg Config, source EventSource, l *ledger.Ledger, dispatcher Dispatcher, recorder Recorder, logger *slog.Logger) (*Listener, error) {
	if source == nil {
		return nil, ErrNoSource
	}
	if dispatcher == nil {
		return nil, ErrNoDispatcher
	}
	if logger == nil {
		logger = slog.Default()
	}

	def := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if len(cfg.Streams) == 0 {
		cfg.Streams = []string{cfg.Name}
	}
	if len(cfg.Chain) == 0 {
		cfg.Chain = def.Chain
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = def.BackoffBase
	}
	if cfg.BackoffMax < cfg.BackoffBase {
		cfg.BackoffMax = max(def.BackoffMax, cfg.BackoffBase)
	}

	return &Listener{
		cfg:        cfg,
		source:     source,
		ledger:     l,
		classifier: NewClassifier(cfg.Markers),
		dispatcher: dispatcher,
		recorder:   recorder,
		logger:     logger.With("listener", cfg.Name),
		stats:      Stats{Name: cfg.Name},
	}, nil
}

// Name returns the listener name.
func (l *Listener) Name() string {
	return l.cfg.Name
}

// Run subscribes and handles messages until ctx is cancelled, resubscribing
// with exponential backoff whenever the subscription fails. It always
// returns nil.
func (l *Listener) Run(ctx context.Context) error {
	l.logger.Info("event listener started",
		"streams", l.cfg.Streams,
		"markers", l.classifier.Markers(),
	)
	defer l.logger.Info("event listener stopped")

	backoff := l.cfg.BackoffBase
	for {
		sub, err := l.source.Subscribe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.setError(err)
			l.logger.Warn("subscribe failed", "error", err, "retry_in", backoff)
		} else {
			l.setConnected(true)
			l.logger.Info("subscribed")

			delivered, err := l.consume(ctx, sub)
			if closeErr := sub.Close(); closeErr != nil {
				l.logger.Debug("close subscription", "error", closeErr)
			}
			l.setConnected(false)

			if ctx.Err() != nil {
				return nil
			}
			l.setError(err)
			l.logger.Warn("subscription ended", "error", err, "retry_in", backoff)

			// A subscription that delivered resets the backoff.
			if delivered > 0 {
				backoff = l.cfg.BackoffBase
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, l.cfg.BackoffMax)
	}
}

// consume reads messages until Next fails and returns how many it handled.
func (l *Listener) consume(ctx context.Context, sub Subscription) (int, error) {
	l.statsMu.Lock()
	l.stats.Subscribes++
	l.statsMu.Unlock()

	var dropped int64
	for n := 0; ; n++ {
		msg, err := sub.Next(ctx)
		dropped = l.countDrops(sub, dropped)
		if err != nil {
			return n, err
		}
		l.Handle(ctx, msg)
	}
}

// countDrops adds frames the subscription shed since seen to the stats and
// returns its new total.
func (l *Listener) countDrops(sub Subscription, seen int64) int64 {
	dc, ok := sub.(DropCounter)
	if !ok {
		return seen
	}
	total := dc.Dropped()
	if total > seen {
		l.statsMu.Lock()
		l.stats.Dropped += total - seen
		l.statsMu.Unlock()
		l.logger.Warn("subscription dropped frames", "dropped", total-seen, "total", total)
	}
	return total
}

// Handle processes one message and returns the symbols it dispatched.
func (l *Listener) Handle(ctx context.Context, msg model.Message) []string {
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}
	l.statsMu.Lock()
	l.stats.Messages++
	l.stats.LastMessage = msg.ReceivedAt
	l.statsMu.Unlock()

	fingerprint := model.Normalize(msg.Text)
	if fingerprint == "" {
		return nil
	}

	if l.ledger.Seen(fingerprint, l.cfg.Streams...) {
		l.logger.Debug("message already processed", "text", msg.Text)
		return nil
	}

	marker, ok := l.classifier.Match(msg.Text)
	if !ok {
		l.logger.Debug("message not classified as listing", "text", msg.Text)
		return nil
	}

	if !l.ledger.ClaimAll(fingerprint, l.cfg.Streams...) {
		l.logger.Debug("message claimed by another path", "text", msg.Text)
		return nil
	}

	l.statsMu.Lock()
	l.stats.Matched++
	l.statsMu.Unlock()

	symbols, grammar := l.cfg.Chain.Extract(msg.Text)
	det := model.NewDetection(l.cfg.Name, model.Announcement{Title: msg.Text, NormalizedText: fingerprint}, symbols)
	if l.recorder != nil {
		if err := l.recorder.RecordDetection(ctx, det); err != nil {
			l.logger.Warn("failed to record detection", "detection", det.ID, "error", err)
		}
	}

	if len(symbols) == 0 {
		l.logger.Info("listing message without symbols",
			"detection", det.ID,
			"marker", marker,
			"text", msg.Text,
		)
		return nil
	}

	l.logger.Info("listing detected",
		"detection", det.ID,
		"marker", marker,
		"grammar", grammar,
		"symbols", symbols,
		"channel", msg.Channel,
	)
	for _, symbol := range symbols {
		l.dispatcher.Trigger(ctx, symbol)
	}
	return symbols
}

// Stats returns a snapshot of the listener counters.
func (l *Listener) Stats() Stats {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	return l.stats
}

func (l *Listener) setConnected(v bool) {
	l.statsMu.Lock()
	l.stats.Connected = v
	l.statsMu.Unlock()
}

func (l *Listener) setError(err error) {
	if err == nil {
		return
	}
	l.statsMu.Lock()
	l.stats.LastError = err.Error()
	l.statsMu.Unlock()
}
