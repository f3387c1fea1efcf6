package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/rickgao/listing-watch/internal/model"
)

// ErrEmptySymbol is reported for a trigger with a blank symbol.
var ErrEmptySymbol = errors.New("empty symbol")

// Backend places orders on an exchange.
type Backend interface {
	PlaceOrder(ctx context.Context, symbol string, quote decimal.Decimal) (model.OrderResult, error)
}

// Notifier delivers operator messages.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Recorder persists dispatch outcomes.
type Recorder interface {
	RecordOutcome(ctx context.Context, outcome model.Outcome) error
}

// Config holds dispatcher configuration.
type Config struct {
	QuoteAmount decimal.Decimal // Quote currency spent per order (default: 10)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		QuoteAmount: decimal.NewFromInt(10),
	}
}

// Stats holds dispatcher counters.
type Stats struct {
	Executed int64    `json:"executed"`
	Skipped  int64    `json:"skipped"`
	Failed   int64    `json:"failed"`
	Done     []string `json:"done"`
}

// Dispatcher triggers the purchase for each newly seen symbol at most once.
type Dispatcher struct {
	cfg      Config
	backend  Backend
	notifier Notifier
	recorder Recorder
	logger   *slog.Logger

	locks *keyedMutex

	mu   sync.RWMutex
	done map[string]model.OrderResult // ActionLedger: symbols whose order succeeded

	executed atomic.Int64
	skipped  atomic.Int64
	failed   atomic.Int64
}

// New creates a Dispatcher. notifier and recorder may be nil.
func New(cfg Config, backend Backend, notifier Notifier, recorder Recorder, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		cfg:      cfg,
		backend:  backend,
		notifier: notifier,
		recorder: recorder,
		logger:   logger,
		locks:    newKeyedMutex(),
		done:     make(map[string]model.OrderResult),
	}
}

// Trigger attempts the action for symbol.
//
// A symbol already in the ledger is skipped without a backend call.
// Otherwise the order is placed; success adds the symbol to the ledger, and
// failure notifies the operator and leaves the ledger unchanged so a later
// trigger may retry.
func (d *Dispatcher) Trigger(ctx context.Context, symbol string) model.Outcome {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return d.finish(ctx, model.Outcome{
			Kind:   model.OutcomeSkipped,
			Reason: ErrEmptySymbol.Error(),
		})
	}

	if d.IsDone(symbol) {
		return d.finish(ctx, skippedDone(symbol))
	}

	unlock, err := d.locks.Lock(ctx, symbol)
	if err != nil {
		return d.finish(ctx, model.Outcome{
			Kind:   model.OutcomeFailed,
			Symbol: symbol,
			Reason: fmt.Sprintf("wait for symbol lock: %v", err),
		})
	}
	defer unlock()

	// Another trigger may have completed while we waited.
	if d.IsDone(symbol) {
		return d.finish(ctx, skippedDone(symbol))
	}

	d.logger.Info("placing order",
		"symbol", symbol,
		"quote_amount", d.cfg.QuoteAmount.String(),
	)

	order, err := d.backend.PlaceOrder(ctx, symbol, d.cfg.QuoteAmount)
	if err != nil {
		d.logger.Error("order failed",
			"symbol", symbol,
			"error", err,
		)
		d.notify(ctx, fmt.Sprintf("%s could not be auto-executed; manual action required", symbol))
		return d.finish(ctx, model.Outcome{
			Kind:   model.OutcomeFailed,
			Symbol: symbol,
			Reason: err.Error(),
		})
	}

	d.mu.Lock()
	d.done[symbol] = order
	d.mu.Unlock()

	d.logger.Info("order executed",
		"symbol", symbol,
		"market", order.Market,
		"order_id", order.OrderID,
		"status", order.Status,
		"quote_spent", order.QuoteSpent.String(),
	)

	return d.finish(ctx, model.Outcome{
		Kind:   model.OutcomeExecuted,
		Symbol: symbol,
		Order:  &order,
	})
}

// IsDone reports whether symbol's action already succeeded.
func (d *Dispatcher) IsDone(symbol string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.done[strings.ToUpper(symbol)]
	return ok
}

// Stats returns dispatcher counters and the executed symbols.
func (d *Dispatcher) Stats() Stats {
	d.mu.RLock()
	done := lo.Keys(d.done)
	d.mu.RUnlock()
	slices.Sort(done)

	return Stats{
		Executed: d.executed.Load(),
		Skipped:  d.skipped.Load(),
		Failed:   d.failed.Load(),
		Done:     done,
	}
}

func skippedDone(symbol string) model.Outcome {
	return model.Outcome{
		Kind:   model.OutcomeSkipped,
		Symbol: symbol,
		Reason: "already done",
	}
}

// finish counts and records an outcome.
func (d *Dispatcher) finish(ctx context.Context, outcome model.Outcome) model.Outcome {
	switch outcome.Kind {
	case model.OutcomeExecuted:
		d.executed.Add(1)
	case model.OutcomeSkipped:
		d.skipped.Add(1)
		d.logger.Debug("trigger skipped", "symbol", outcome.Symbol, "reason", outcome.Reason)
	case model.OutcomeFailed:
		d.failed.Add(1)
	}

	if d.recorder != nil {
		if err := d.recorder.RecordOutcome(ctx, outcome); err != nil {
			d.logger.Warn("failed to record outcome",
				"symbol", outcome.Symbol,
				"error", err,
			)
		}
	}
	return outcome
}

func (d *Dispatcher) notify(ctx context.Context, text string) {
	if d.notifier == nil {
		d.logger.Warn("no notifier configured", "text", text)
		return
	}
	if err := d.notifier.Notify(ctx, text); err != nil {
		d.logger.Warn("failed to send notification", "error", err)
	}
}
