package config

import "time"

// Config is the root configuration for a watcher instance.
type Config struct {
	Sources    []SourceConfig   `yaml:"sources"`
	Listeners  []ListenerConfig `yaml:"listeners"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Backend    BackendConfig    `yaml:"backend"`
	Notify     NotifyConfig     `yaml:"notify"`
	Journal    JournalConfig    `yaml:"journal"`
	Health     HealthConfig     `yaml:"health"`
}

// SourceConfig describes one polled announcement source.
type SourceConfig struct {
	Name          string            `yaml:"name"`
	Kind          string            `yaml:"kind"` // cms, html or rss
	URL           string            `yaml:"url"`
	BaseURL       string            `yaml:"base_url"`
	TitleFilter   string            `yaml:"title_filter"`
	LinkContains  string            `yaml:"link_contains"`
	CatalogID     int               `yaml:"catalog_id"`
	PageSize      int               `yaml:"page_size"`
	Interval      time.Duration     `yaml:"interval"`
	Timeout       time.Duration     `yaml:"timeout"`
	MaxNewPerTick int               `yaml:"max_new_per_tick"`
	Grammar       string            `yaml:"grammar"`
	UserAgent     string            `yaml:"user_agent"`
	Headers       map[string]string `yaml:"headers"` // Extra request headers (auth, cookies)
	Disabled      bool              `yaml:"disabled"`
}

// ListenerConfig describes one push channel relay.
type ListenerConfig struct {
	Name             string            `yaml:"name"`
	URL              string            `yaml:"url"`
	Headers          map[string]string `yaml:"headers"`
	Subscribe        string            `yaml:"subscribe"` // Frame sent after connecting
	Channels         []string          `yaml:"channels"`  // Empty accepts every channel
	Markers          []string          `yaml:"markers"`
	Grammars         []string          `yaml:"grammars"` // Priority order
	Streams          []string          `yaml:"streams"`  // Ledger streams shared with pollers (default: every enabled source)
	BackoffBase      time.Duration     `yaml:"backoff_base"`
	BackoffMax       time.Duration     `yaml:"backoff_max"`
	SubscribeTimeout time.Duration     `yaml:"subscribe_timeout"` // Dial and handshake deadline
	PingInterval     time.Duration     `yaml:"ping_interval"`
	PingTimeout      time.Duration     `yaml:"ping_timeout"`
	Disabled         bool              `yaml:"disabled"`
}

// DispatcherConfig holds order sizing.
type DispatcherConfig struct {
	QuoteAmount string `yaml:"quote_amount"` // Decimal string, e.g. "10"
	QuoteAsset  string `yaml:"quote_asset"`
}

// BackendConfig selects the execution backend.
type BackendConfig struct {
	Kind    string        `yaml:"kind"` // binance or paper
	Binance BinanceConfig `yaml:"binance"`
}

// BinanceConfig holds Binance spot credentials.
type BinanceConfig struct {
	APIKey    string        `yaml:"api_key"`
	SecretKey string        `yaml:"secret_key"`
	BaseURL   string        `yaml:"base_url"`
	InfoTTL   time.Duration `yaml:"info_ttl"`
}

// NotifyConfig holds notifier settings. A notifier is enabled when its
// required fields are set.
type NotifyConfig struct {
	Log      bool           `yaml:"log"`
	Telegram TelegramConfig `yaml:"telegram"`
	Email    EmailConfig    `yaml:"email"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	BotToken string        `yaml:"bot_token"`
	ChatID   string        `yaml:"chat_id"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Enabled reports whether the Telegram notifier is configured.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" || t.ChatID != ""
}

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	SMTPServer string   `yaml:"smtp_server"`
	SMTPPort   int      `yaml:"smtp_port"`
	SMTPUser   string   `yaml:"smtp_user"`
	SMTPPass   string   `yaml:"smtp_pass"`
	From       string   `yaml:"from"`
	To         []string `yaml:"to"`
	Subject    string   `yaml:"subject"`
}

// Enabled reports whether the email notifier is configured.
func (e EmailConfig) Enabled() bool {
	return e.SMTPServer != ""
}

// JournalConfig selects where detections and outcomes are recorded.
type JournalConfig struct {
	Driver        string        `yaml:"driver"` // none, postgres or sqlite
	Postgres      DBConfig      `yaml:"postgres"`
	SQLitePath    string        `yaml:"sqlite_path"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// HealthConfig holds the stats endpoint settings. An empty Addr disables it.
type HealthConfig struct {
	Addr string `yaml:"addr"`
}
