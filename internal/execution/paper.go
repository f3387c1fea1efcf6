package execution

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rickgao/listing-watch/internal/model"
)

// PaperBackend accepts every order without contacting an exchange.
type PaperBackend struct {
	quoteAsset string
	logger     *slog.Logger

	mu     sync.Mutex
	orders []model.OrderResult
}

// NewPaper creates a PaperBackend.
func NewPaper(quoteAsset string, logger *slog.Logger) *PaperBackend {
	if logger == nil {
		logger = slog.Default()
	}
	if quoteAsset == "" {
		quoteAsset = DefaultQuoteAsset
	}
	return &PaperBackend{
		quoteAsset: quoteAsset,
		logger:     logger.With("backend", "paper"),
	}
}

// PlaceOrder implements Backend.
func (p *PaperBackend) PlaceOrder(ctx context.Context, symbol string, quote decimal.Decimal) (model.OrderResult, error) {
	if err := checkAmount(quote); err != nil {
		return model.OrderResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.OrderResult{}, err
	}

	order := model.OrderResult{
		OrderID:    "paper-" + uuid.NewString(),
		Symbol:     symbol,
		Market:     Market(symbol, p.quoteAsset),
		QuoteSpent: quote,
		Status:     "PAPER",
		PlacedAt:   time.Now(),
	}

	p.mu.Lock()
	p.orders = append(p.orders, order)
	p.mu.Unlock()

	p.logger.Info("paper order", "market", order.Market, "quote", quote.String())
	return order, nil
}

// Orders returns the orders placed so far.
func (p *PaperBackend) Orders() []model.OrderResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.OrderResult(nil), p.orders...)
}
