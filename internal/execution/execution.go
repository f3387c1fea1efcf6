// Package execution provides ExecutionBackend implementations.
//
// A backend spends a fixed quote amount on a market buy of SYMBOL+QuoteAsset
// and reports the accepted order. Symbols whose market does not exist or is
// not trading fail with ErrNotTradable before any order is sent.
package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rickgao/listing-watch/internal/model"
)

// DefaultQuoteAsset is the quote currency when none is configured.
const DefaultQuoteAsset = "USDT"

var (
	ErrNotTradable   = errors.New("market not tradable")
	ErrInvalidAmount = errors.New("quote amount must be positive")
	ErrUnknownKind   = errors.New("unknown backend kind")
)

// Backend places quote-denominated market buys.
type Backend interface {
	PlaceOrder(ctx context.Context, symbol string, quote decimal.Decimal) (model.OrderResult, error)
}

// Kind selects a backend implementation.
type Kind string

const (
	KindBinance Kind = "binance"
	KindPaper   Kind = "paper"
)

// Config holds backend configuration.
type Config struct {
	Kind       Kind
	QuoteAsset string // default: USDT
	Binance    BinanceConfig
}

// New builds the backend for cfg.Kind.
func New(cfg Config, logger *slog.Logger) (Backend, error) {
	switch cfg.Kind {
	case KindBinance:
		b := cfg.Binance
		if b.QuoteAsset == "" {
			b.QuoteAsset = cfg.QuoteAsset
		}
		return NewBinance(b, logger), nil
	case KindPaper, "":
		return NewPaper(cfg.QuoteAsset, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

// Market returns the exchange market name for symbol.
func Market(symbol, quoteAsset string) string {
	if quoteAsset == "" {
		quoteAsset = DefaultQuoteAsset
	}
	return strings.ToUpper(symbol) + strings.ToUpper(quoteAsset)
}

func checkAmount(quote decimal.Decimal) error {
	if !quote.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, quote)
	}
	return nil
}
