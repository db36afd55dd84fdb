package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"goldflow/models"
)

type Config struct {
	Goldflow GoldflowConfig `yaml:"goldflow"`
	Channels ChannelsConfig `yaml:"channels"`
	Poller   PollerConfig   `yaml:"poller"`
	Signals  SignalsConfig  `yaml:"signals"`
	Server   ServerConfig   `yaml:"server"`
	Chatbot  ChatbotConfig  `yaml:"chatbot"`
	Source   SourceConfig   `yaml:"source"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type GoldflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ChannelsConfig struct {
	QuoteBuffer   int `yaml:"quote_buffer"`
	FundingBuffer int `yaml:"funding_buffer"`
	StatusBuffer  int `yaml:"status_buffer"`
}

// Duration fields are parsed from human-readable strings ("10s", "1m") in
// LoadConfig; yaml.v3 has no native time.Duration support.
type PollerConfig struct {
	QuoteIntervalStr   string          `yaml:"quote_interval"`
	FundingIntervalStr string          `yaml:"funding_interval"`
	TimeoutStr         string          `yaml:"timeout"`
	RateLimit          RateLimitConfig `yaml:"rate_limit"`

	QuoteInterval   time.Duration `yaml:"-"`
	FundingInterval time.Duration `yaml:"-"`
	Timeout         time.Duration `yaml:"-"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type SignalsConfig struct {
	PriceSpreadThreshold   float64 `yaml:"price_spread_threshold"`
	MaxPriceOpportunities  int     `yaml:"max_price_opportunities"`
	FundingSpreadThreshold float64 `yaml:"funding_spread_threshold"`
}

type ServerConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Listen          string `yaml:"listen"`
	RefreshEveryStr string `yaml:"refresh_every"`
	HistoryPoints   int    `yaml:"history_points"`

	RefreshEvery time.Duration `yaml:"-"`
}

type ChatbotConfig struct {
	Enabled       bool   `yaml:"enabled"`
	CompletionURL string `yaml:"completion_url"`
	Model         string `yaml:"model"`
	APIKeyEnv     string `yaml:"api_key_env"`
	TimeoutStr    string `yaml:"timeout"`
	ContactLink   string `yaml:"contact_link"`

	Timeout time.Duration `yaml:"-"`
}

type SourceConfig struct {
	Bybit   ExchangeSourceConfig `yaml:"bybit"`
	Binance ExchangeSourceConfig `yaml:"binance"`
	Okx     ExchangeSourceConfig `yaml:"okx"`
}

type ExchangeSourceConfig struct {
	SymbolCode           string               `yaml:"symbol_code"`
	Symbol               string               `yaml:"symbol"`
	FundingIntervalHours int                  `yaml:"funding_interval_hours"`
	Stream               StreamConfig         `yaml:"stream"`
	Rest                 RestConfig           `yaml:"rest"`
	ConnectionPool       ConnectionPoolConfig `yaml:"connection_pool"`
}

type StreamConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

type RestConfig struct {
	TickerURL  string `yaml:"ticker_url"`
	FundingURL string `yaml:"funding_url"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns       int    `yaml:"max_idle_conns"`
	MaxConnsPerHost    int    `yaml:"max_conns_per_host"`
	IdleConnTimeoutStr string `yaml:"idle_conn_timeout"`

	IdleConnTimeout time.Duration `yaml:"-"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// LoadConfig reads and validates the YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Allow the listen address to be overridden for containerized deploys.
	if v := os.Getenv("GOLDFLOW_LISTEN"); v != "" {
		config.Server.Listen = strings.TrimSpace(v)
	}

	if err := parseDurations(&config); err != nil {
		return nil, err
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"poller.quote_interval", cfg.Poller.QuoteIntervalStr, &cfg.Poller.QuoteInterval},
		{"poller.funding_interval", cfg.Poller.FundingIntervalStr, &cfg.Poller.FundingInterval},
		{"poller.timeout", cfg.Poller.TimeoutStr, &cfg.Poller.Timeout},
		{"server.refresh_every", cfg.Server.RefreshEveryStr, &cfg.Server.RefreshEvery},
		{"chatbot.timeout", cfg.Chatbot.TimeoutStr, &cfg.Chatbot.Timeout},
		{"source.bybit.connection_pool.idle_conn_timeout", cfg.Source.Bybit.ConnectionPool.IdleConnTimeoutStr, &cfg.Source.Bybit.ConnectionPool.IdleConnTimeout},
		{"source.binance.connection_pool.idle_conn_timeout", cfg.Source.Binance.ConnectionPool.IdleConnTimeoutStr, &cfg.Source.Binance.ConnectionPool.IdleConnTimeout},
		{"source.okx.connection_pool.idle_conn_timeout", cfg.Source.Okx.ConnectionPool.IdleConnTimeoutStr, &cfg.Source.Okx.ConnectionPool.IdleConnTimeout},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %w", f.name, err)
		}
		*f.dst = d
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Poller.QuoteInterval <= 0 {
		cfg.Poller.QuoteInterval = 10 * time.Second
	}
	if cfg.Poller.FundingInterval <= 0 {
		cfg.Poller.FundingInterval = time.Minute
	}
	if cfg.Poller.Timeout <= 0 {
		cfg.Poller.Timeout = 10 * time.Second
	}
	if cfg.Signals.PriceSpreadThreshold <= 0 {
		cfg.Signals.PriceSpreadThreshold = 0.5
	}
	if cfg.Signals.MaxPriceOpportunities <= 0 {
		cfg.Signals.MaxPriceOpportunities = 5
	}
	if cfg.Signals.FundingSpreadThreshold <= 0 {
		cfg.Signals.FundingSpreadThreshold = 5.0
	}
	if cfg.Server.RefreshEvery <= 0 {
		cfg.Server.RefreshEvery = time.Second
	}
	if cfg.Server.HistoryPoints <= 0 {
		cfg.Server.HistoryPoints = 20
	}
	if cfg.Chatbot.Timeout <= 0 {
		cfg.Chatbot.Timeout = 15 * time.Second
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Goldflow.Name == "" {
		return fmt.Errorf("goldflow.name is required")
	}

	if cfg.Goldflow.Version == "" {
		return fmt.Errorf("goldflow.version is required")
	}

	if cfg.Channels.QuoteBuffer <= 0 {
		return fmt.Errorf("channels.quote_buffer must be greater than 0")
	}

	if cfg.Channels.FundingBuffer <= 0 {
		return fmt.Errorf("channels.funding_buffer must be greater than 0")
	}

	if cfg.Channels.StatusBuffer <= 0 {
		return fmt.Errorf("channels.status_buffer must be greater than 0")
	}

	if cfg.Server.Enabled && cfg.Server.Listen == "" && IsProductionLike(AppEnvironment()) {
		return fmt.Errorf("server.listen is required in %s", AppEnvironment())
	}

	for _, ex := range models.AllExchanges {
		src := cfg.Exchange(ex)
		if src == nil {
			return fmt.Errorf("source.%s is required", ex)
		}
		if src.Symbol == "" {
			return fmt.Errorf("source.%s.symbol is required", ex)
		}
		if src.FundingIntervalHours != 4 && src.FundingIntervalHours != 8 {
			return fmt.Errorf("source.%s.funding_interval_hours must be 4 or 8", ex)
		}
		if src.Stream.Enabled && src.Stream.URL == "" {
			return fmt.Errorf("source.%s.stream.url is required when the stream is enabled", ex)
		}
		if src.Rest.TickerURL == "" {
			return fmt.Errorf("source.%s.rest.ticker_url is required", ex)
		}
		if src.Rest.FundingURL == "" {
			return fmt.Errorf("source.%s.rest.funding_url is required", ex)
		}
	}

	return nil
}

// Exchange returns the source configuration for the given exchange, or nil
// when the exchange is unknown.
func (c *Config) Exchange(ex models.Exchange) *ExchangeSourceConfig {
	switch ex {
	case models.ExchangeBybit:
		return &c.Source.Bybit
	case models.ExchangeBinance:
		return &c.Source.Binance
	case models.ExchangeOKX:
		return &c.Source.Okx
	default:
		return nil
	}
}
