// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Service identity reported by health and status endpoints.
const (
	ServiceName    = "ulytau-insight"
	ServiceVersion = "1.0.0"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Store    StoreConfig    `mapstructure:"store"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                   int `mapstructure:"port"`
	RequestTimeoutSeconds  int `mapstructure:"request_timeout_seconds"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// FetchConfig governs the fetch cycle and the HTTP getter.
type FetchConfig struct {
	UserAgent             string  `mapstructure:"user_agent"`
	Concurrency           int     `mapstructure:"concurrency"`
	DeadlineSeconds       int     `mapstructure:"deadline_seconds"`
	FeedTimeoutSeconds    int     `mapstructure:"feed_timeout_seconds"`
	ListingTimeoutSeconds int     `mapstructure:"listing_timeout_seconds"`
	ChannelTimeoutSeconds int     `mapstructure:"channel_timeout_seconds"`
	PerHostRPS            float64 `mapstructure:"per_host_rps"`
	PerHostBurst          int     `mapstructure:"per_host_burst"`
	MaxBodyBytes          int     `mapstructure:"max_body_bytes"`
	RespectRobots         bool    `mapstructure:"respect_robots"`
}

// BreakerConfig tunes the per-source circuit breaker.
type BreakerConfig struct {
	FailureThreshold       int  `mapstructure:"failure_threshold"`
	RecoveryTimeoutSeconds int  `mapstructure:"recovery_timeout_seconds"`
	ResetOnClosedSuccess   bool `mapstructure:"reset_on_closed_success"`
	SingleProbe            bool `mapstructure:"single_probe"`
}

// PipelineConfig tunes filtering and scoring.
type PipelineConfig struct {
	FreshnessDays     int `mapstructure:"freshness_days"`
	SummaryLimit      int `mapstructure:"summary_limit"`
	ScoreFreshHours   int `mapstructure:"score_fresh_hours"`
	ListingMinTextLen int `mapstructure:"listing_min_text_len"`
	ListingMaxEntries int `mapstructure:"listing_max_entries"`
}

// SourcesConfig points at an optional catalog file replacing the embedded one.
type SourcesConfig struct {
	Path string `mapstructure:"path"`
}

// StoreConfig selects the subscriber state backend.
type StoreConfig struct {
	Provider  string         `mapstructure:"provider"`
	SeenLimit int            `mapstructure:"seen_limit"`
	File      FileConfig     `mapstructure:"file"`
	Postgres  PostgresConfig `mapstructure:"postgres"`
}

// FileConfig locates the JSON state document.
type FileConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig controls access to the relational database.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// TelegramConfig configures the bot and notifications.
type TelegramConfig struct {
	Enabled            bool         `mapstructure:"enabled"`
	Token              string       `mapstructure:"token"`
	BaseURL            string       `mapstructure:"base_url"`
	PollTimeoutSeconds int          `mapstructure:"poll_timeout_seconds"`
	AllowPreview       bool         `mapstructure:"allow_preview"`
	MaxAttempts        int          `mapstructure:"max_attempts"`
	Notify             NotifyConfig `mapstructure:"notify"`
}

// NotifyConfig schedules subscriber notifications.
type NotifyConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	FirstDelaySeconds int  `mapstructure:"first_delay_seconds"`
	IntervalMinutes   int  `mapstructure:"interval_minutes"`
	FetchLimit        int  `mapstructure:"fetch_limit"`
	MaxPerCheck       int  `mapstructure:"max_per_check"`
	SendIntervalMs    int  `mapstructure:"send_interval_ms"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ULYTAU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := v.BindEnv("telegram.token", "ULYTAU_TELEGRAM_TOKEN", "BOT_TOKEN"); err != nil {
		return Config{}, fmt.Errorf("bind telegram token env: %w", err)
	}
	if err := v.BindEnv("server.port", "ULYTAU_SERVER_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind port env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("fetch.concurrency", 10)
	v.SetDefault("fetch.deadline_seconds", 10)
	v.SetDefault("fetch.feed_timeout_seconds", 6)
	v.SetDefault("fetch.listing_timeout_seconds", 5)
	v.SetDefault("fetch.channel_timeout_seconds", 6)
	v.SetDefault("fetch.per_host_rps", 0.0)
	v.SetDefault("fetch.per_host_burst", 1)
	v.SetDefault("fetch.max_body_bytes", 5<<20)
	v.SetDefault("fetch.respect_robots", false)
	v.SetDefault("breaker.failure_threshold", 3)
	v.SetDefault("breaker.recovery_timeout_seconds", 1800)
	v.SetDefault("breaker.reset_on_closed_success", false)
	v.SetDefault("breaker.single_probe", true)
	v.SetDefault("pipeline.freshness_days", 7)
	v.SetDefault("pipeline.summary_limit", 350)
	v.SetDefault("pipeline.score_fresh_hours", 24)
	v.SetDefault("pipeline.listing_min_text_len", 25)
	v.SetDefault("pipeline.listing_max_entries", 10)
	v.SetDefault("sources.path", "")
	v.SetDefault("store.provider", "file")
	v.SetDefault("store.seen_limit", 500)
	v.SetDefault("store.file.path", "data/state.json")
	v.SetDefault("store.postgres.dsn", "")
	v.SetDefault("store.postgres.max_conns", 4)
	v.SetDefault("store.postgres.min_conns", 0)
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.base_url", "https://api.telegram.org")
	v.SetDefault("telegram.poll_timeout_seconds", 30)
	v.SetDefault("telegram.allow_preview", false)
	v.SetDefault("telegram.max_attempts", 3)
	v.SetDefault("telegram.notify.enabled", true)
	v.SetDefault("telegram.notify.first_delay_seconds", 10)
	v.SetDefault("telegram.notify.interval_minutes", 15)
	v.SetDefault("telegram.notify.fetch_limit", 50)
	v.SetDefault("telegram.notify.max_per_check", 3)
	v.SetDefault("telegram.notify.send_interval_ms", 100)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Fetch.Concurrency <= 0 {
		return fmt.Errorf("fetch.concurrency must be > 0")
	}
	if c.Fetch.DeadlineSeconds <= 0 {
		return fmt.Errorf("fetch.deadline_seconds must be > 0")
	}
	for name, secs := range map[string]int{
		"fetch.feed_timeout_seconds":    c.Fetch.FeedTimeoutSeconds,
		"fetch.listing_timeout_seconds": c.Fetch.ListingTimeoutSeconds,
		"fetch.channel_timeout_seconds": c.Fetch.ChannelTimeoutSeconds,
	} {
		if secs <= 0 || secs >= c.Fetch.DeadlineSeconds {
			return fmt.Errorf("%s must be > 0 and below fetch.deadline_seconds", name)
		}
	}
	if c.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("breaker.failure_threshold must be > 0")
	}
	if c.Breaker.RecoveryTimeoutSeconds <= 0 {
		return fmt.Errorf("breaker.recovery_timeout_seconds must be > 0")
	}
	if c.Pipeline.FreshnessDays <= 0 {
		return fmt.Errorf("pipeline.freshness_days must be > 0")
	}
	switch c.Store.Provider {
	case "file":
		if c.Store.File.Path == "" {
			return fmt.Errorf("store.file.path must be set for the file store")
		}
	case "postgres":
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("store.postgres.dsn must be set for the postgres store")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store.provider %q", c.Store.Provider)
	}
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token (or BOT_TOKEN) must be set when telegram is enabled")
	}
	return nil
}

// Deadline is the batch-wide fetch deadline.
func (c FetchConfig) Deadline() time.Duration {
	return seconds(c.DeadlineSeconds)
}

// RecoveryTimeout converts the breaker cool-down to a duration.
func (c BreakerConfig) RecoveryTimeout() time.Duration {
	return seconds(c.RecoveryTimeoutSeconds)
}

// FreshnessWindow is how far back items are kept.
func (c PipelineConfig) FreshnessWindow() time.Duration {
	return time.Duration(c.FreshnessDays) * 24 * time.Hour
}

// RequestTimeout bounds each HTTP request.
func (c ServerConfig) RequestTimeout() time.Duration {
	return seconds(c.RequestTimeoutSeconds)
}

// Addr is the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// ShutdownTimeout bounds graceful HTTP shutdown.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return seconds(c.ShutdownTimeoutSeconds)
}

// PollTimeout is the getUpdates long-poll wait.
func (c TelegramConfig) PollTimeout() time.Duration {
	return seconds(c.PollTimeoutSeconds)
}

// FirstDelay is the wait before the first notification check.
func (c NotifyConfig) FirstDelay() time.Duration {
	return seconds(c.FirstDelaySeconds)
}

// Interval is the period between notification checks.
func (c NotifyConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// SendInterval paces broadcast sends.
func (c NotifyConfig) SendInterval() time.Duration {
	return time.Duration(c.SendIntervalMs) * time.Millisecond
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
