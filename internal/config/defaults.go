package config

import (
	"fmt"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultPollInterval     = 3 * time.Second
	DefaultFetchTimeout     = 10 * time.Second
	DefaultMaxNewPerTick    = 10
	DefaultGrammar          = "parenthetical"
	DefaultListenerName     = "push"
	DefaultBackoffBase      = 1 * time.Second
	DefaultBackoffMax       = 60 * time.Second
	DefaultSubscribeTimeout = 10 * time.Second
	DefaultPingInterval     = 30 * time.Second
	DefaultPingTimeout      = 60 * time.Second
	DefaultQuoteAmount      = "10"
	DefaultQuoteAsset       = "USDT"
	DefaultBackendKind      = "paper"
	DefaultInfoTTL          = 10 * time.Minute
	DefaultTelegramTimeout  = 10 * time.Second
	DefaultSMTPPort         = 587
	DefaultEmailSubject     = "Listing watch"
	DefaultJournalDriver    = "none"
	DefaultSQLitePath       = "listing-watch.db"
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultMaxConns         = 4
	DefaultMinConns         = 1
	DefaultBatchSize        = 100
	DefaultFlushInterval    = 2 * time.Second
	DefaultBufferSize       = 64
)

// ApplyDefaults fills unset optional fields.
func (c *Config) ApplyDefaults() {
	for i := range c.Sources {
		s := &c.Sources[i]
		if s.Interval == 0 {
			s.Interval = DefaultPollInterval
		}
		if s.Timeout == 0 {
			s.Timeout = DefaultFetchTimeout
		}
		if s.MaxNewPerTick == 0 {
			s.MaxNewPerTick = DefaultMaxNewPerTick
		}
		if s.Grammar == "" {
			s.Grammar = DefaultGrammar
		}
	}

	for i := range c.Listeners {
		l := &c.Listeners[i]
		if l.Name == "" {
			l.Name = DefaultListenerName
			if i > 0 {
				l.Name = fmt.Sprintf("%s-%d", DefaultListenerName, i)
			}
		}
		if l.BackoffBase == 0 {
			l.BackoffBase = DefaultBackoffBase
		}
		if l.BackoffMax == 0 {
			l.BackoffMax = DefaultBackoffMax
		}
		if l.SubscribeTimeout == 0 {
			l.SubscribeTimeout = DefaultSubscribeTimeout
		}
		if len(l.Streams) == 0 {
			l.Streams = c.SourceNames()
		}
		if l.PingInterval == 0 {
			l.PingInterval = DefaultPingInterval
		}
		if l.PingTimeout == 0 {
			l.PingTimeout = DefaultPingTimeout
		}
	}

	// Dispatcher and backend
	if c.Dispatcher.QuoteAmount == "" {
		c.Dispatcher.QuoteAmount = DefaultQuoteAmount
	}
	if c.Dispatcher.QuoteAsset == "" {
		c.Dispatcher.QuoteAsset = DefaultQuoteAsset
	}
	if c.Backend.Kind == "" {
		c.Backend.Kind = DefaultBackendKind
	}
	if c.Backend.Binance.InfoTTL == 0 {
		c.Backend.Binance.InfoTTL = DefaultInfoTTL
	}

	// Notifiers
	if c.Notify.Telegram.Timeout == 0 {
		c.Notify.Telegram.Timeout = DefaultTelegramTimeout
	}
	if c.Notify.Email.SMTPPort == 0 {
		c.Notify.Email.SMTPPort = DefaultSMTPPort
	}
	if c.Notify.Email.Subject == "" {
		c.Notify.Email.Subject = DefaultEmailSubject
	}

	// Journal
	if c.Journal.Driver == "" {
		c.Journal.Driver = DefaultJournalDriver
	}
	if c.Journal.SQLitePath == "" {
		c.Journal.SQLitePath = DefaultSQLitePath
	}
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultBufferSize
	}
	applyDBDefaults(&c.Journal.Postgres)
}

// SourceNames returns the names of all enabled sources in configuration
// order. A listener without explicit streams claims across all of them.
func (c *Config) SourceNames() []string {
	var names []string
	for _, s := range c.Sources {
		if !s.Disabled && s.Name != "" {
			names = append(names, s.Name)
		}
	}
	return names
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
