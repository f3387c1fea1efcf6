package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/rickgao/listing-watch/internal/extract"
)

var (
	sourceKinds    = []string{"cms", "html", "rss"}
	backendKinds   = []string{"binance", "paper"}
	journalDrivers = []string{"none", "postgres", "sqlite"}
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 && len(c.Listeners) == 0 {
		return errors.New("at least one source or listener is required")
	}

	names := make(map[string]string)
	unique := func(prefix, name string) error {
		if prev, ok := names[name]; ok {
			return fmt.Errorf("%s.name %q duplicates %s", prefix, name, prev)
		}
		names[name] = prefix
		return nil
	}

	for i := range c.Sources {
		if c.Sources[i].Disabled {
			continue
		}
		prefix := fmt.Sprintf("sources[%d]", i)
		if err := c.Sources[i].validate(prefix); err != nil {
			return err
		}
		if err := unique(prefix, c.Sources[i].Name); err != nil {
			return err
		}
	}
	sources := c.SourceNames()
	for i := range c.Listeners {
		if c.Listeners[i].Disabled {
			continue
		}
		prefix := fmt.Sprintf("listeners[%d]", i)
		if err := c.Listeners[i].validate(prefix); err != nil {
			return err
		}
		for j, stream := range c.Listeners[i].Streams {
			if !slices.Contains(sources, stream) {
				return fmt.Errorf("%s.streams[%d] %q matches no enabled source", prefix, j, stream)
			}
		}
		if err := unique(prefix, c.Listeners[i].Name); err != nil {
			return err
		}
	}

	amount, err := c.Dispatcher.Amount()
	if err != nil {
		return fmt.Errorf("dispatcher.quote_amount: %w", err)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("dispatcher.quote_amount must be > 0, got %s", amount)
	}

	if !slices.Contains(backendKinds, c.Backend.Kind) {
		return fmt.Errorf("backend.kind must be one of %v, got %q", backendKinds, c.Backend.Kind)
	}
	if c.Backend.Kind == "binance" {
		if c.Backend.Binance.APIKey == "" {
			return errors.New("backend.binance.api_key is required")
		}
		if c.Backend.Binance.SecretKey == "" {
			return errors.New("backend.binance.secret_key is required")
		}
	}

	if t := c.Notify.Telegram; t.Enabled() && (t.BotToken == "" || t.ChatID == "") {
		return errors.New("notify.telegram requires both bot_token and chat_id")
	}
	if e := c.Notify.Email; e.Enabled() {
		if e.From == "" {
			return errors.New("notify.email.from is required")
		}
		if len(e.To) == 0 {
			return errors.New("notify.email.to is required")
		}
	}

	if !slices.Contains(journalDrivers, c.Journal.Driver) {
		return fmt.Errorf("journal.driver must be one of %v, got %q", journalDrivers, c.Journal.Driver)
	}
	if c.Journal.Driver == "postgres" {
		if err := c.Journal.Postgres.validate("journal.postgres"); err != nil {
			return err
		}
	}
	if c.Journal.BatchSize < 1 {
		return errors.New("journal.batch_size must be >= 1")
	}
	if c.Journal.FlushInterval <= 0 {
		return errors.New("journal.flush_interval must be > 0")
	}

	return nil
}

// Amount parses QuoteAmount.
func (d DispatcherConfig) Amount() (decimal.Decimal, error) {
	return decimal.NewFromString(d.QuoteAmount)
}

func (s *SourceConfig) validate(prefix string) error {
	if s.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if !slices.Contains(sourceKinds, s.Kind) {
		return fmt.Errorf("%s.kind must be one of %v, got %q", prefix, sourceKinds, s.Kind)
	}
	if s.URL == "" {
		return fmt.Errorf("%s.url is required", prefix)
	}
	if s.Interval <= 0 {
		return fmt.Errorf("%s.interval must be > 0", prefix)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("%s.timeout must be > 0", prefix)
	}
	if s.MaxNewPerTick < 1 {
		return fmt.Errorf("%s.max_new_per_tick must be >= 1", prefix)
	}
	if _, err := extract.ParseGrammar(s.Grammar); err != nil {
		return fmt.Errorf("%s.grammar: %w", prefix, err)
	}
	return nil
}

func (l *ListenerConfig) validate(prefix string) error {
	if l.URL == "" {
		return fmt.Errorf("%s.url is required", prefix)
	}
	for i, g := range l.Grammars {
		if _, err := extract.ParseGrammar(g); err != nil {
			return fmt.Errorf("%s.grammars[%d]: %w", prefix, i, err)
		}
	}
	if l.BackoffBase <= 0 {
		return fmt.Errorf("%s.backoff_base must be > 0", prefix)
	}
	if l.BackoffMax < l.BackoffBase {
		return fmt.Errorf("%s.backoff_max (%s) cannot be less than backoff_base (%s)", prefix, l.BackoffMax, l.BackoffBase)
	}
	if l.SubscribeTimeout <= 0 {
		return fmt.Errorf("%s.subscribe_timeout must be > 0", prefix)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
