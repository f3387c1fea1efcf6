package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/rickgao/listing-watch/internal/model"
)

// invalidSymbolCode is returned by the exchange for an unknown market.
const invalidSymbolCode = -1121

// BinanceConfig configures the Binance spot backend.
type BinanceConfig struct {
	APIKey      string
	SecretKey   string
	BaseURL     string        // Overrides the API endpoint (testnet, tests)
	QuoteAsset  string        // default: USDT
	InfoTTL     time.Duration // How long a tradable market is cached (default: 10m)
	InfoTimeout time.Duration // Deadline for one exchange info lookup (default: 10s)
}

// BinanceBackend places spot market buys with quoteOrderQty.
type BinanceBackend struct {
	cfg    BinanceConfig
	client *binance.Client
	logger *slog.Logger

	group singleflight.Group // coalesces concurrent exchange info lookups

	mu       sync.Mutex
	tradable map[string]time.Time // market -> cached until
}

// NewBinance creates a BinanceBackend.
func NewBinance(cfg BinanceConfig, logger *slog.Logger) *BinanceBackend {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QuoteAsset == "" {
		cfg.QuoteAsset = DefaultQuoteAsset
	}
	if cfg.InfoTTL <= 0 {
		cfg.InfoTTL = 10 * time.Minute
	}
	if cfg.InfoTimeout <= 0 {
		cfg.InfoTimeout = 10 * time.Second
	}

	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.BaseURL != "" {
		client.BaseURL = cfg.BaseURL
	}

	return &BinanceBackend{
		cfg:      cfg,
		client:   client,
		logger:   logger.With("backend", "binance"),
		tradable: make(map[string]time.Time),
	}
}

// PlaceOrder implements Backend.
func (b *BinanceBackend) PlaceOrder(ctx context.Context, symbol string, quote decimal.Decimal) (model.OrderResult, error) {
	if err := checkAmount(quote); err != nil {
		return model.OrderResult{}, err
	}
	market := Market(symbol, b.cfg.QuoteAsset)

	ok, err := b.isTradable(ctx, market)
	if err != nil {
		return model.OrderResult{}, fmt.Errorf("exchange info %s: %w", market, err)
	}
	if !ok {
		return model.OrderResult{}, fmt.Errorf("%w: %s", ErrNotTradable, market)
	}

	resp, err := b.client.NewCreateOrderService().
		Symbol(market).
		Side(binance.SideTypeBuy).
		Type(binance.OrderTypeMarket).
		QuoteOrderQty(quote.String()).
		Do(ctx)
	if err != nil {
		return model.OrderResult{}, fmt.Errorf("create order %s: %w", market, err)
	}

	spent, err := decimal.NewFromString(resp.CummulativeQuoteQuantity)
	if err != nil {
		spent = quote
	}
	qty, _ := decimal.NewFromString(resp.ExecutedQuantity)

	placedAt := time.Now()
	if resp.TransactTime > 0 {
		placedAt = time.UnixMilli(resp.TransactTime)
	}

	return model.OrderResult{
		OrderID:     strconv.FormatInt(resp.OrderID, 10),
		Symbol:      symbol,
		Market:      market,
		QuoteSpent:  spent,
		ExecutedQty: qty,
		Status:      string(resp.Status),
		PlacedAt:    placedAt,
	}, nil
}

// isTradable reports whether market exists and is trading spot. Positive
// answers are cached for InfoTTL; negative ones are re-checked every call so
// a market that opens later is picked up.
func (b *BinanceBackend) isTradable(ctx context.Context, market string) (bool, error) {
	b.mu.Lock()
	until, ok := b.tradable[market]
	b.mu.Unlock()
	if ok && time.Now().Before(until) {
		return true, nil
	}

	// The shared lookup outlives any single caller; each caller still
	// returns when its own ctx ends.
	ch := b.group.DoChan(market, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.cfg.InfoTimeout)
		defer cancel()

		info, err := b.client.NewExchangeInfoService().Symbol(market).Do(lookupCtx)
		if err != nil {
			var apiErr *common.APIError
			if errors.As(err, &apiErr) && apiErr.Code == invalidSymbolCode {
				return false, nil
			}
			return false, err
		}
		for _, s := range info.Symbols {
			if s.Symbol == market && s.Status == "TRADING" && s.IsSpotTradingAllowed {
				return true, nil
			}
		}
		return false, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return false, res.Err
	}

	tradable := res.Val.(bool)
	if tradable {
		b.mu.Lock()
		b.tradable[market] = time.Now().Add(b.cfg.InfoTTL)
		b.mu.Unlock()
	}
	b.logger.Debug("exchange info", "market", market, "tradable", tradable)
	return tradable, nil
}
