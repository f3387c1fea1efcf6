package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/listing-watch/internal/extract"
	"github.com/rickgao/listing-watch/internal/ledger"
	"github.com/rickgao/listing-watch/internal/model"
)

var (
	ErrNoFetcher    = errors.New("poller: fetcher is required")
	ErrNoDispatcher = errors.New("poller: dispatcher is required")
)

// Fetcher returns the current announcements of one source, newest first.
type Fetcher interface {
	FetchSnapshot(ctx context.Context) ([]model.Announcement, error)
}

// Dispatcher triggers the action for a symbol.
type Dispatcher interface {
	Trigger(ctx context.Context, symbol string) model.Outcome
}

// Notifier delivers operator messages.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Recorder persists detections.
type Recorder interface {
	RecordDetection(ctx context.Context, det model.Detection) error
}

// Config holds poller configuration.
type Config struct {
	Name          string          // Source name, also the ledger stream name
	Interval      time.Duration   // Time between polls (default: 3s)
	Timeout       time.Duration   // Per-fetch timeout (default: 10s)
	MaxNewPerTick int             // Cap when the pointer fell out of the snapshot (default: 10)
	Grammar       extract.Grammar // Symbol grammar for this source's titles
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:      3 * time.Second,
		Timeout:       10 * time.Second,
		MaxNewPerTick: 10,
		Grammar:       extract.Parenthetical,
	}
}

// Stats holds per-source poll counters.
type Stats struct {
	Source      string    `json:"source"`
	Ticks       int64     `json:"ticks"`
	Errors      int64     `json:"errors"`
	NewItems    int64     `json:"new_items"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
	Pointer     string    `json:"pointer,omitempty"`
}

// Poller periodically fetches one source and replays its new announcements.
type Poller struct {
	cfg        Config
	fetcher    Fetcher
	stream     *ledger.Stream
	dispatcher Dispatcher
	notifier   Notifier
	recorder   Recorder
	logger     *slog.Logger

	statsMu sync.Mutex
	stats   Stats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Poller bound to the ledger stream named cfg.Name.
// notifier and recorder may be nil.
func New(cfg Config, fetcher Fetcher, l *ledger.Ledger, dispatcher Dispatcher, notifier Notifier, recorder Recorder, logger *slog.Logger) (*Poller, error) {
	if fetcher == nil {
		return nil, ErrNoFetcher
	}
	if dispatcher == nil {
		return nil, ErrNoDispatcher
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.Grammar == "" {
		cfg.Grammar = DefaultConfig().Grammar
	}
	return &Poller{
		cfg:        cfg,
		fetcher:    fetcher,
		stream:     l.Stream(cfg.Name),
		dispatcher: dispatcher,
		notifier:   notifier,
		recorder:   recorder,
		logger:     logger.With("source", cfg.Name),
		stats:      Stats{Source: cfg.Name},
	}, nil
}

// Name returns the source name.
func (p *Poller) Name() string {
	return p.cfg.Name
}

// Start runs the polling loop in a goroutine.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		_ = p.Run(p.ctx)
	}()

	return nil
}

// Stop cancels the loop and waits for it to exit or ctx to expire.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run polls until ctx is cancelled. It always returns nil; fetch errors are
// logged and retried on the next tick.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("source poller started",
		"interval", p.cfg.Interval,
		"grammar", p.cfg.Grammar,
	)
	defer p.logger.Info("source poller stopped")

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.tickAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.tickAndLog(ctx)
		}
	}
}

func (p *Poller) tickAndLog(ctx context.Context) {
	if err := p.Tick(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn("poll failed", "error", err)
	}
}

// Tick performs one poll cycle: fetch, seed or diff, replay, advance.
func (p *Poller) Tick(ctx context.Context) error {
	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	snapshot, err := p.fetcher.FetchSnapshot(fetchCtx)
	cancel()

	p.statsMu.Lock()
	p.stats.Ticks++
	if err != nil {
		p.stats.Errors++
		p.stats.LastError = err.Error()
	} else {
		p.stats.LastSuccess = time.Now()
	}
	p.statsMu.Unlock()

	if err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}
	if len(snapshot) == 0 {
		p.logger.Debug("empty snapshot")
		return nil
	}

	head := snapshot[0].Href

	pointer, ok := p.stream.Pointer()
	if !ok {
		if p.stream.Seed(snapshot) {
			p.logger.Info("seeded stream",
				"announcements", len(snapshot),
				"pointer", head,
			)
		}
		return nil
	}

	fresh := NewSince(snapshot, pointer, p.cfg.MaxNewPerTick)
	if len(fresh) > 0 {
		p.logger.Info("new announcements", "count", len(fresh))
	}
	for _, ann := range fresh {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.accept(ctx, ann)
	}

	p.stream.Advance(head)
	return nil
}

// accept handles one new announcement if no other path has claimed it.
func (p *Poller) accept(ctx context.Context, ann model.Announcement) {
	if !p.stream.Claim(ann.NormalizedText) {
		p.logger.Debug("announcement already processed", "title", ann.Title)
		return
	}

	p.statsMu.Lock()
	p.stats.NewItems++
	p.statsMu.Unlock()

	p.notify(ctx, fmt.Sprintf("🚀 %s New Listing: %s\n🔗 %s", p.cfg.Name, ann.Title, ann.Href))

	symbols := p.cfg.Grammar.Extract(ann.Title)
	det := model.NewDetection(p.cfg.Name, ann, symbols)
	p.record(ctx, det)

	if len(symbols) == 0 {
		p.logger.Info("no symbols extracted",
			"detection", det.ID,
			"title", ann.Title,
		)
		return
	}

	p.logger.Info("listing detected",
		"detection", det.ID,
		"title", ann.Title,
		"symbols", symbols,
	)
	for _, symbol := range symbols {
		outcome := p.dispatcher.Trigger(ctx, symbol)
		p.logger.Debug("dispatch outcome",
			"detection", det.ID,
			"symbol", outcome.Symbol,
			"kind", outcome.Kind,
		)
	}
}

func (p *Poller) notify(ctx context.Context, text string) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(ctx, text); err != nil {
		p.logger.Warn("failed to send notification", "error", err)
	}
}

func (p *Poller) record(ctx context.Context, det model.Detection) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.RecordDetection(ctx, det); err != nil {
		p.logger.Warn("failed to record detection", "detection", det.ID, "error", err)
	}
}

// Stats returns a snapshot of the poll counters.
func (p *Poller) Stats() Stats {
	p.statsMu.Lock()
	s := p.stats
	p.statsMu.Unlock()

	s.Pointer, _ = p.stream.Pointer()
	return s
}
