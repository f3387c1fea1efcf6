// Package orchestrator wires configured sources, listeners and the dispatcher
// into one supervised process.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/listing-watch/internal/config"
	"github.com/rickgao/listing-watch/internal/connection"
	"github.com/rickgao/listing-watch/internal/dispatch"
	"github.com/rickgao/listing-watch/internal/execution"
	"github.com/rickgao/listing-watch/internal/extract"
	"github.com/rickgao/listing-watch/internal/fetcher"
	"github.com/rickgao/listing-watch/internal/journal"
	"github.com/rickgao/listing-watch/internal/ledger"
	"github.com/rickgao/listing-watch/internal/listener"
	"github.com/rickgao/listing-watch/internal/notify"
	"github.com/rickgao/listing-watch/internal/poller"
	"github.com/rickgao/listing-watch/internal/version"
)

// ErrNothingToRun is returned when no source or listener could be built.
var ErrNothingToRun = errors.New("no source or listener could be started")

// shutdownTimeout bounds how long Run waits for pollers and the health
// server after ctx is cancelled.
const shutdownTimeout = 5 * time.Second

// Options adjusts how the configuration is applied.
type Options struct {
	DryRun bool // Force the paper backend
}

// Orchestrator owns every long-running component.
type Orchestrator struct {
	cfg    *config.Config
	logger *slog.Logger

	ledger     *ledger.Ledger
	dispatcher *dispatch.Dispatcher
	journal    journal.Journal
	pollers    []*poller.Poller
	listeners  []*listener.Listener
	health     *http.Server

	// closers in construction order
	closers []io.Closer
}

// New builds all components from cfg. A source or listener that cannot be
// constructed is logged and skipped.
func New(ctx context.Context, cfg *config.Config, opts Options, logger *slog.Logger) (_ *Orchestrator, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		cfg:    cfg,
		logger: logger,
		ledger: ledger.New(),
	}
	defer func() {
		if err != nil {
			o.Close()
		}
	}()

	j, jerr := journal.Open(ctx, cfg.Journal, logger)
	if jerr != nil {
		logger.Error("journal unavailable, continuing without it", "driver", cfg.Journal.Driver, "error", jerr)
		j = journal.Nop{}
	}
	o.journal = j
	o.closers = append(o.closers, j)

	backend, err := buildBackend(cfg, opts, logger)
	if err != nil {
		return nil, err
	}
	notifier, err := buildNotifier(cfg.Notify, logger)
	if err != nil {
		return nil, err
	}
	amount, err := cfg.Dispatcher.Amount()
	if err != nil {
		return nil, fmt.Errorf("parse quote amount: %w", err)
	}

	o.dispatcher = dispatch.New(dispatch.Config{QuoteAmount: amount}, backend, notifier, o.journal, logger)

	for i, sc := range cfg.Sources {
		if sc.Disabled {
			continue
		}
		if err := o.addPoller(sc, notifier); err != nil {
			logger.Error("skipping source", "index", i, "source", sc.Name, "error", err)
		}
	}
	for i, lc := range cfg.Listeners {
		if lc.Disabled {
			continue
		}
		if err := o.addListener(lc); err != nil {
			logger.Error("skipping listener", "index", i, "listener", lc.Name, "error", err)
		}
	}

	if len(o.pollers) == 0 && len(o.listeners) == 0 {
		return nil, ErrNothingToRun
	}

	if cfg.Health.Addr != "" {
		o.health = &http.Server{
			Addr:              cfg.Health.Addr,
			Handler:           o.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	logger.Info("orchestrator ready",
		"sources", len(o.pollers),
		"listeners", len(o.listeners),
		"backend", backendKind(cfg, opts),
		"quote_amount", amount,
	)
	return o, nil
}

func (o *Orchestrator) addPoller(sc config.SourceConfig, notifier notify.Notifier) error {
	grammar, err := extract.ParseGrammar(sc.Grammar)
	if err != nil {
		return err
	}

	userAgent := sc.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}

	f, err := fetcher.New(fetcher.Config{
		Kind:         fetcher.Kind(sc.Kind),
		URL:          sc.URL,
		BaseURL:      sc.BaseURL,
		TitleFilter:  sc.TitleFilter,
		LinkContains: sc.LinkContains,
		CatalogID:    sc.CatalogID,
		PageSize:     sc.PageSize,
		Timeout:      sc.Timeout,
		UserAgent:    userAgent,
		Headers:      sc.Headers,
	}, o.logger)
	if err != nil {
		return fmt.Errorf("build fetcher: %w", err)
	}
	o.closers = append(o.closers, f)

	p, err := poller.New(poller.Config{
		Name:          sc.Name,
		Interval:      sc.Interval,
		Timeout:       sc.Timeout,
		MaxNewPerTick: sc.MaxNewPerTick,
		Grammar:       grammar,
	}, f, o.ledger, o.dispatcher, notifier, o.journal, o.logger)
	if err != nil {
		return err
	}
	o.pollers = append(o.pollers, p)
	return nil
}

func (o *Orchestrator) addListener(lc config.ListenerConfig) error {
	chain := extract.DefaultChain()
	if len(lc.Grammars) > 0 {
		chain = chain[:0:0]
		for _, name := range lc.Grammars {
			g, err := extract.ParseGrammar(name)
			if err != nil {
				return err
			}
			chain = append(chain, g)
		}
	}

	client := connection.DefaultClientConfig()
	client.URL = lc.URL
	if lc.SubscribeTimeout > 0 {
		client.HandshakeTimeout = lc.SubscribeTimeout
	}
	if lc.PingInterval > 0 {
		client.PingInterval = lc.PingInterval
	}
	if lc.PingTimeout > 0 {
		client.PingTimeout = lc.PingTimeout
	}
	if len(lc.Headers) > 0 {
		client.Header = make(http.Header, len(lc.Headers))
		for k, v := range lc.Headers {
			client.Header.Set(k, v)
		}
	}

	src, err := connection.NewSource(connection.SourceConfig{
		Client:    client,
		Subscribe: lc.Subscribe,
		Channels:  lc.Channels,
	}, o.logger)
	if err != nil {
		return fmt.Errorf("build event source: %w", err)
	}
	o.closers = append(o.closers, src)

	// Without explicit streams a listener claims across every running poller
	// so a push message and a polled announcement dedupe each other.
	streams := lc.Streams
	if len(streams) == 0 {
		streams = lo.Map(o.pollers, func(p *poller.Poller, _ int) string { return p.Name() })
	}

	l, err := listener.New(listener.Config{
		Name:        lc.Name,
		Streams:     streams,
		Markers:     lc.Markers,
		Chain:       chain,
		BackoffBase: lc.BackoffBase,
		BackoffMax:  lc.BackoffMax,
	}, src, o.ledger, o.dispatcher, o.journal, o.logger)
	if err != nil {
		return err
	}
	o.listeners = append(o.listeners, l)
	return nil
}

// Run starts every poller and listener and blocks until ctx is cancelled
// and all of them have returned. A task that fails is logged; the others
// keep running.
func (o *Orchestrator) Run(ctx context.Context) error {
	var g errgroup.Group

	for _, p := range o.pollers {
		if err := p.Start(ctx); err != nil {
			o.logger.Error("poller failed to start", "source", p.Name(), "error", err)
		}
	}
	g.Go(func() error {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, p := range o.pollers {
			if err := p.Stop(stopCtx); err != nil {
				o.logger.Error("poller did not stop", "source", p.Name(), "error", err)
			}
		}
		return nil
	})

	for _, l := range o.listeners {
		l := l
		g.Go(func() error {
			if err := l.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				o.logger.Error("listener exited", "listener", l.Name(), "error", err)
			}
			return nil
		})
	}

	if o.health != nil {
		g.Go(func() error {
			o.logger.Info("starting health server", "addr", o.health.Addr)
			if err := o.health.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				o.logger.Error("health server error", "error", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return o.health.Shutdown(shutdownCtx)
		})
	}

	o.logger.Info("watching", "sources", lo.Map(o.pollers, func(p *poller.Poller, _ int) string { return p.Name() }))
	err := g.Wait()
	o.logger.Info("all tasks stopped")
	return err
}

// Close releases fetchers, event sources and the journal in reverse
// construction order.
func (o *Orchestrator) Close() error {
	var errs []error
	for i := len(o.closers) - 1; i >= 0; i-- {
		if err := o.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	o.closers = nil
	return errors.Join(errs...)
}

// Dispatcher returns the shared dispatcher.
func (o *Orchestrator) Dispatcher() *dispatch.Dispatcher {
	return o.dispatcher
}

func backendKind(cfg *config.Config, opts Options) execution.Kind {
	if opts.DryRun {
		return execution.KindPaper
	}
	return execution.Kind(cfg.Backend.Kind)
}

func buildBackend(cfg *config.Config, opts Options, logger *slog.Logger) (execution.Backend, error) {
	b := cfg.Backend.Binance
	backend, err := execution.New(execution.Config{
		Kind:       backendKind(cfg, opts),
		QuoteAsset: cfg.Dispatcher.QuoteAsset,
		Binance: execution.BinanceConfig{
			APIKey:    b.APIKey,
			SecretKey: b.SecretKey,
			BaseURL:   b.BaseURL,
			InfoTTL:   b.InfoTTL,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("build backend: %w", err)
	}
	return backend, nil
}

// buildNotifier fans out to every configured notifier. The log notifier is
// used when nothing else is configured.
func buildNotifier(cfg config.NotifyConfig, logger *slog.Logger) (notify.Notifier, error) {
	var multi notify.Multi

	if cfg.Telegram.Enabled() {
		t, err := notify.NewTelegram(notify.TelegramConfig{
			BotToken: cfg.Telegram.BotToken,
			ChatID:   cfg.Telegram.ChatID,
			BaseURL:  cfg.Telegram.BaseURL,
			Timeout:  cfg.Telegram.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("build telegram notifier: %w", err)
		}
		multi = append(multi, t)
	}
	if cfg.Email.Enabled() {
		e, err := notify.NewEmail(notify.EmailConfig{
			SMTPServer: cfg.Email.SMTPServer,
			SMTPPort:   cfg.Email.SMTPPort,
			SMTPUser:   cfg.Email.SMTPUser,
			SMTPPass:   cfg.Email.SMTPPass,
			From:       cfg.Email.From,
			To:         cfg.Email.To,
			Subject:    cfg.Email.Subject,
		})
		if err != nil {
			return nil, fmt.Errorf("build email notifier: %w", err)
		}
		multi = append(multi, e)
	}
	if cfg.Log || len(multi) == 0 {
		multi = append(multi, notify.NewLog(logger))
	}
	return multi, nil
}
