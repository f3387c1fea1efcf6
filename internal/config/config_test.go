package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
sources:
  - name: binance
    kind: cms
    url: https://www.binance.com
    title_filter: will list
    grammar: parenthetical
  - name: kraken
    kind: html
    url: https://blog.kraken.com/category/product/asset-listings
    title_filter: available for trading
    link_contains: /product/asset-listings/
    grammar: enumeration
    interval: 5s
listeners:
  - url: wss://relay.example.com/ws
    subscribe: '{"op":"subscribe"}'
    channels: [binance, kraken]
    streams: [binance, kraken]
backend:
  kind: binance
  binance:
    api_key: ${TEST_BINANCE_KEY}
    secret_key: ${TEST_BINANCE_SECRET}
notify:
  telegram:
    bot_token: ${TEST_TG_TOKEN}
    chat_id: "-100123"
dispatcher:
  quote_amount: "25.5"
health:
  addr: ":8080"
`

func TestLoad(t *testing.T) {
	path := writeTempFile(t, sampleYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Sources) != 2 {
		t.Fatalf("len(Sources) = %d, want 2", len(cfg.Sources))
	}
	if cfg.Sources[1].LinkContains != "/product/asset-listings/" {
		t.Errorf("Sources[1].LinkContains = %q", cfg.Sources[1].LinkContains)
	}
	if cfg.Sources[1].Interval != 5*time.Second {
		t.Errorf("Sources[1].Interval = %v, want 5s", cfg.Sources[1].Interval)
	}
	if got := cfg.Listeners[0].Channels; len(got) != 2 || got[1] != "kraken" {
		t.Errorf("Listeners[0].Channels = %v", got)
	}
	if cfg.Health.Addr != ":8080" {
		t.Errorf("Health.Addr = %q, want %q", cfg.Health.Addr, ":8080")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_BINANCE_KEY", "key123")
	t.Setenv("TEST_BINANCE_SECRET", "secret456")
	t.Setenv("TEST_TG_TOKEN", "bot:token")

	cfg, err := Load(writeTempFile(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Backend.Binance.APIKey != "key123" {
		t.Errorf("Backend.Binance.APIKey = %q, want %q", cfg.Backend.Binance.APIKey, "key123")
	}
	if cfg.Backend.Binance.SecretKey != "secret456" {
		t.Errorf("Backend.Binance.SecretKey = %q, want %q", cfg.Backend.Binance.SecretKey, "secret456")
	}
	if cfg.Notify.Telegram.BotToken != "bot:token" {
		t.Errorf("Notify.Telegram.BotToken = %q, want %q", cfg.Notify.Telegram.BotToken, "bot:token")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := LoadWithDefaults(writeTempFile(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	src := cfg.Sources[0]
	if src.Interval != DefaultPollInterval {
		t.Errorf("Sources[0].Interval = %v, want default %v", src.Interval, DefaultPollInterval)
	}
	if src.Timeout != DefaultFetchTimeout {
		t.Errorf("Sources[0].Timeout = %v, want default %v", src.Timeout, DefaultFetchTimeout)
	}
	if src.MaxNewPerTick != DefaultMaxNewPerTick {
		t.Errorf("Sources[0].MaxNewPerTick = %d, want default %d", src.MaxNewPerTick, DefaultMaxNewPerTick)
	}
	if cfg.Listeners[0].Name != DefaultListenerName {
		t.Errorf("Listeners[0].Name = %q, want %q", cfg.Listeners[0].Name, DefaultListenerName)
	}
	if cfg.Listeners[0].BackoffMax != DefaultBackoffMax {
		t.Errorf("Listeners[0].BackoffMax = %v, want %v", cfg.Listeners[0].BackoffMax, DefaultBackoffMax)
	}
	if cfg.Dispatcher.QuoteAmount != "25.5" {
		t.Errorf("Dispatcher.QuoteAmount = %q, want explicit value kept", cfg.Dispatcher.QuoteAmount)
	}
	if cfg.Dispatcher.QuoteAsset != DefaultQuoteAsset {
		t.Errorf("Dispatcher.QuoteAsset = %q, want %q", cfg.Dispatcher.QuoteAsset, DefaultQuoteAsset)
	}
	if cfg.Journal.Driver != DefaultJournalDriver {
		t.Errorf("Journal.Driver = %q, want %q", cfg.Journal.Driver, DefaultJournalDriver)
	}
	if cfg.Journal.Postgres.Port != DefaultDBPort {
		t.Errorf("Journal.Postgres.Port = %d, want %d", cfg.Journal.Postgres.Port, DefaultDBPort)
	}
	if cfg.Notify.Email.SMTPPort != DefaultSMTPPort {
		t.Errorf("Notify.Email.SMTPPort = %d, want %d", cfg.Notify.Email.SMTPPort, DefaultSMTPPort)
	}
}

func TestApplyDefaults_ListenerNames(t *testing.T) {
	cfg := Config{Listeners: []ListenerConfig{{URL: "ws://a"}, {URL: "ws://b"}, {Name: "relay", URL: "ws://c"}}}
	cfg.ApplyDefaults()

	want := []string{"push", "push-1", "relay"}
	for i, w := range want {
		if cfg.Listeners[i].Name != w {
			t.Errorf("Listeners[%d].Name = %q, want %q", i, cfg.Listeners[i].Name, w)
		}
	}
}

func TestApplyDefaults_ListenerStreams(t *testing.T) {
	cfg := Config{
		Sources: []SourceConfig{
			{Name: "binance", Kind: "cms", URL: "https://www.binance.com"},
			{Name: "okx", Kind: "rss", URL: "https://www.okx.com/rss", Disabled: true},
			{Name: "kraken", Kind: "html", URL: "https://blog.kraken.com"},
		},
		Listeners: []ListenerConfig{
			{URL: "ws://a"},
			{URL: "ws://b", Streams: []string{"kraken"}},
		},
	}
	cfg.ApplyDefaults()

	if got := cfg.Listeners[0].Streams; len(got) != 2 || got[0] != "binance" || got[1] != "kraken" {
		t.Errorf("Listeners[0].Streams = %v, want [binance kraken]", got)
	}
	if got := cfg.Listeners[1].Streams; len(got) != 1 || got[0] != "kraken" {
		t.Errorf("Listeners[1].Streams = %v, want explicit [kraken] kept", got)
	}
	if cfg.Listeners[0].SubscribeTimeout != DefaultSubscribeTimeout {
		t.Errorf("Listeners[0].SubscribeTimeout = %v, want %v", cfg.Listeners[0].SubscribeTimeout, DefaultSubscribeTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() after defaults: %v", err)
	}
}

func TestLoadAndValidate(t *testing.T) {
	t.Setenv("TEST_BINANCE_KEY", "k")
	t.Setenv("TEST_BINANCE_SECRET", "s")
	t.Setenv("TEST_TG_TOKEN", "t")

	cfg, err := LoadAndValidate(writeTempFile(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}
	amount, err := cfg.Dispatcher.Amount()
	if err != nil {
		t.Fatalf("Amount failed: %v", err)
	}
	if amount.String() != "25.5" {
		t.Errorf("Amount = %s, want 25.5", amount)
	}
}

func TestLoadAndValidate_MissingSecret(t *testing.T) {
	t.Setenv("TEST_BINANCE_KEY", "")
	t.Setenv("TEST_BINANCE_SECRET", "s")
	t.Setenv("TEST_TG_TOKEN", "t")

	_, err := LoadAndValidate(writeTempFile(t, sampleYAML))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "backend.binance.api_key is required") {
		t.Errorf("error = %q", err)
	}
	if !strings.HasPrefix(err.Error(), "validate config: ") {
		t.Errorf("error = %q, want validate config prefix", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil || !strings.Contains(err.Error(), "read config file") {
		t.Errorf("Load(missing) error = %v", err)
	}
	if _, err := Load(writeTempFile(t, "sources: [")); err == nil || !strings.Contains(err.Error(), "parse config yaml") {
		t.Errorf("Load(bad yaml) error = %v", err)
	}
}

func validConfig() Config {
	cfg := Config{
		Sources: []SourceConfig{{Name: "binance", Kind: "cms", URL: "https://www.binance.com"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "nothing to watch",
			mutate:  func(c *Config) { c.Sources = nil },
			wantErr: "at least one source or listener is required",
		},
		{
			name:    "missing source name",
			mutate:  func(c *Config) { c.Sources[0].Name = "" },
			wantErr: "sources[0].name is required",
		},
		{
			name:    "unknown source kind",
			mutate:  func(c *Config) { c.Sources[0].Kind = "ftp" },
			wantErr: `sources[0].kind must be one of [cms html rss], got "ftp"`,
		},
		{
			name:    "zero interval",
			mutate:  func(c *Config) { c.Sources[0].Interval = -time.Second },
			wantErr: "sources[0].interval must be > 0",
		},
		{
			name:    "unknown grammar",
			mutate:  func(c *Config) { c.Sources[0].Grammar = "regex" },
			wantErr: `sources[0].grammar: unknown grammar "regex" (valid: parenthetical, enumeration)`,
		},
		{
			name: "duplicate names",
			mutate: func(c *Config) {
				c.Listeners = []ListenerConfig{{Name: "binance", URL: "ws://x", BackoffBase: time.Second, BackoffMax: time.Second, SubscribeTimeout: time.Second}}
			},
			wantErr: `listeners[0].name "binance" duplicates sources[0]`,
		},
		{
			name: "listener without subscribe timeout",
			mutate: func(c *Config) {
				c.Listeners = []ListenerConfig{{Name: "push", URL: "ws://x", BackoffBase: time.Second, BackoffMax: time.Second}}
			},
			wantErr: "listeners[0].subscribe_timeout must be > 0",
		},
		{
			name: "listener stream names no source",
			mutate: func(c *Config) {
				c.Listeners = []ListenerConfig{{
					Name: "push", URL: "ws://x", Streams: []string{"binance", "krakn"},
					BackoffBase: time.Second, BackoffMax: time.Second, SubscribeTimeout: time.Second,
				}}
			},
			wantErr: `listeners[0].streams[1] "krakn" matches no enabled source`,
		},
		{
			name: "listener stream names disabled source",
			mutate: func(c *Config) {
				c.Sources = append(c.Sources, SourceConfig{Name: "kraken", Disabled: true})
				c.Listeners = []ListenerConfig{{
					Name: "push", URL: "ws://x", Streams: []string{"kraken"},
					BackoffBase: time.Second, BackoffMax: time.Second, SubscribeTimeout: time.Second,
				}}
			},
			wantErr: `listeners[0].streams[0] "kraken" matches no enabled source`,
		},
		{
			name: "listener streams every source",
			mutate: func(c *Config) {
				c.Listeners = []ListenerConfig{{
					Name: "push", URL: "ws://x", Streams: []string{"binance"},
					BackoffBase: time.Second, BackoffMax: time.Second, SubscribeTimeout: time.Second,
				}}
			},
			wantErr: "",
		},
		{
			name: "listener backoff inverted",
			mutate: func(c *Config) {
				c.Listeners = []ListenerConfig{{Name: "push", URL: "ws://x", BackoffBase: time.Minute, BackoffMax: time.Second}}
			},
			wantErr: "listeners[0].backoff_max (1s) cannot be less than backoff_base (1m0s)",
		},
		{
			name:    "zero quote amount",
			mutate:  func(c *Config) { c.Dispatcher.QuoteAmount = "0" },
			wantErr: "dispatcher.quote_amount must be > 0, got 0",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Backend.Kind = "ftx" },
			wantErr: `backend.kind must be one of [binance paper], got "ftx"`,
		},
		{
			name:    "telegram without chat",
			mutate:  func(c *Config) { c.Notify.Telegram.BotToken = "t" },
			wantErr: "notify.telegram requires both bot_token and chat_id",
		},
		{
			name: "email without recipients",
			mutate: func(c *Config) {
				c.Notify.Email.SMTPServer = "smtp.example.com"
				c.Notify.Email.From = "alerts@example.com"
			},
			wantErr: "notify.email.to is required",
		},
		{
			name:    "postgres journal missing host",
			mutate:  func(c *Config) { c.Journal.Driver = "postgres" },
			wantErr: "journal.postgres.host is required",
		},
		{
			name: "postgres min_conns exceeds max_conns",
			mutate: func(c *Config) {
				c.Journal.Driver = "postgres"
				c.Journal.Postgres = DBConfig{Host: "localhost", Name: "db", User: "user", MaxConns: 2, MinConns: 5}
			},
			wantErr: "journal.postgres.min_conns (5) cannot exceed max_conns (2)",
		},
		{
			name: "disabled listener is not validated",
			mutate: func(c *Config) {
				c.Listeners = []ListenerConfig{{Name: "push", Disabled: true}}
			},
			wantErr: "",
		},
		{
			name:    "sqlite journal",
			mutate:  func(c *Config) { c.Journal.Driver = "sqlite" },
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestExampleConfig(t *testing.T) {
	cfg, err := LoadAndValidate(filepath.Join("..", "..", "configs", "watcher.yaml"))
	if err != nil {
		t.Fatalf("example config invalid: %v", err)
	}
	if len(cfg.Sources) != 2 {
		t.Errorf("len(Sources) = %d, want 2", len(cfg.Sources))
	}
	if cfg.Journal.Driver != "sqlite" {
		t.Errorf("Journal.Driver = %q, want sqlite", cfg.Journal.Driver)
	}
}
