// Package config defines the top-level configuration for the arbitrage
// sentinel and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/arbsentinel/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ARBSENTINEL_* environment
// variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Scanner    ScannerConfig    `toml:"scanner"`
	Analysis   AnalysisConfig   `toml:"analysis"`
	Alerts     AlertsConfig     `toml:"alerts"`
	Bot        BotConfig        `toml:"bot"`
	Redis      RedisConfig      `toml:"redis"`
	Postgres   PostgresConfig   `toml:"postgres"`
	S3         S3Config         `toml:"s3"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds market-data and order-venue endpoints plus the API
// credentials required for order submission. The credentials are only
// mandatory in trade mode; monitor mode runs without them.
type PolymarketConfig struct {
	GammaHost     string `toml:"gamma_host"`
	ClobHost      string `toml:"clob_host"`
	WsHost        string `toml:"ws_host"`
	ApiKey        string `toml:"api_key"`
	ApiSecret     string `toml:"api_secret"`
	ApiPassphrase string `toml:"api_passphrase"`
	Address       string `toml:"address"`
	TimeoutSecs   int    `toml:"timeout_secs"`
	RetryAttempts int    `toml:"retry_attempts"`
	RetryDelayMs  int    `toml:"retry_delay_ms"`
}

// HasCredentials reports whether order-submission credentials are present.
func (p PolymarketConfig) HasCredentials() bool {
	return p.ApiKey != "" && p.ApiSecret != "" && p.ApiPassphrase != ""
}

// ScannerConfig holds the mispricing thresholds and the market filter.
type ScannerConfig struct {
	MarketLimit      int      `toml:"market_limit"`
	MinSpreadPercent float64  `toml:"min_spread_percent"`
	MinLiquidity     float64  `toml:"min_liquidity"`
	TwoSidedSpread   float64  `toml:"two_sided_spread"` // spread at which both legs are profitable
	Categories       []string `toml:"categories"`       // allow-list; "all" disables the filter
}

// AnalysisConfig holds the two analysis service endpoints and the pipeline's
// rate-limit discipline.
type AnalysisConfig struct {
	GrokHost        string `toml:"grok_host"`
	GrokApiKey      string `toml:"grok_api_key"`
	GrokModel       string `toml:"grok_model"`
	ClaudeHost      string `toml:"claude_host"`
	ClaudeApiKey    string `toml:"claude_api_key"`
	ClaudeModel     string `toml:"claude_model"`
	MinIntervalSecs int    `toml:"min_interval_secs"` // min delay between opportunities
	TimeoutSecs     int    `toml:"timeout_secs"`
}

// AlertsConfig holds the admission gate and execution sizing parameters.
type AlertsConfig struct {
	MinRiskTolerance  int     `toml:"min_risk_tolerance"` // 1-10; gate accepts riskScore <= 10 - tolerance
	AutoApprove       bool    `toml:"auto_approve"`
	StrongConfidence  float64 `toml:"strong_confidence"` // sentiment confidence for direction-following
	PositionSizeUSD   float64 `toml:"position_size_usd"`
	MaxPendingAlerts  int     `toml:"max_pending_alerts"`
	HistoryRetainDays int     `toml:"history_retain_days"`
}

// BotConfig holds the polling loop parameters and the state snapshot path.
type BotConfig struct {
	PollIntervalMins int    `toml:"poll_interval_mins"`
	StatePath        string `toml:"state_path"`
	RecentTrades     int    `toml:"recent_trades"` // trades kept in the published snapshot
}

// RedisConfig holds Redis connection parameters. Addr empty disables Redis;
// the bot falls back to in-process caching and rate limiting.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters for alert and trade
// history. Only used in trade mode.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// Enabled reports whether a database target was configured.
func (p PostgresConfig) Enabled() bool {
	return p.DSN != "" || p.Host != ""
}

// S3Config holds S3-compatible object storage parameters for the history
// archiver. Bucket empty disables archival.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	ArchiveAfter   int    `toml:"archive_after_days"`
}

// ServerConfig holds the HTTP API parameters. The API is the approval
// transport and the read-only state boundary.
type ServerConfig struct {
	Port   int    `toml:"port"`
	APIKey string `toml:"api_key"` // empty disables authentication
}

// NotifyConfig holds outbound notification channel parameters.
type NotifyConfig struct {
	TelegramToken  string   `toml:"telegram_token"`
	TelegramChatID string   `toml:"telegram_chat_id"`
	DiscordWebhook string   `toml:"discord_webhook"`
	Events         []string `toml:"events"` // allowed event types; empty allows all
}

// Defaults returns a Config populated with sane defaults for every field the
// TOML file may omit.
func Defaults() Config {
	return Config{
		Mode:     "monitor",
		LogLevel: "info",
		Polymarket: PolymarketConfig{
			GammaHost:     "https://gamma-api.polymarket.com",
			ClobHost:      "https://clob.polymarket.com",
			WsHost:        "wss://ws-subscriptions-clob.polymarket.com/ws",
			TimeoutSecs:   15,
			RetryAttempts: 3,
			RetryDelayMs:  500,
		},
		Scanner: ScannerConfig{
			MarketLimit:      100,
			MinSpreadPercent: 5,
			MinLiquidity:     1000,
			TwoSidedSpread:   10,
			Categories:       []string{"all"},
		},
		Analysis: AnalysisConfig{
			GrokHost:        "https://api.x.ai",
			GrokModel:       "grok-3-latest",
			ClaudeHost:      "https://api.anthropic.com",
			ClaudeModel:     "claude-sonnet-4-20250514",
			MinIntervalSecs: 5,
			TimeoutSecs:     30,
		},
		Alerts: AlertsConfig{
			MinRiskTolerance:  4,
			StrongConfidence:  70,
			PositionSizeUSD:   100,
			MaxPendingAlerts:  20,
			HistoryRetainDays: 90,
		},
		Bot: BotConfig{
			PollIntervalMins: 5,
			StatePath:        "data/bot_state.json",
			RecentTrades:     50,
		},
		Postgres: PostgresConfig{
			SSLMode:      "disable",
			PoolMaxConns: 4,
			PoolMinConns: 1,
		},
		S3: S3Config{
			Region:       "us-east-1",
			ArchiveAfter: 30,
		},
		Server: ServerConfig{
			Port: 8085,
		},
	}
}

// PollInterval returns the loop interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Bot.PollIntervalMins) * time.Minute
}

// Validate checks the configuration for consistency. Monitor mode must
// validate without venue credentials; trade mode requires them. All
// failures wrap domain.ErrConfigInvalid.
func (c *Config) Validate() error {
	mode := strings.ToLower(c.Mode)
	switch mode {
	case "monitor", "trade":
	default:
		return fmt.Errorf("config: unsupported mode %q (want monitor or trade): %w", c.Mode, domain.ErrConfigInvalid)
	}

	if c.Bot.PollIntervalMins <= 0 {
		return fmt.Errorf("config: bot.poll_interval_mins must be positive, got %d: %w", c.Bot.PollIntervalMins, domain.ErrConfigInvalid)
	}
	if c.Bot.StatePath == "" {
		return fmt.Errorf("config: bot.state_path is required: %w", domain.ErrConfigInvalid)
	}
	if c.Scanner.MinSpreadPercent < 0 {
		return fmt.Errorf("config: scanner.min_spread_percent must be >= 0: %w", domain.ErrConfigInvalid)
	}
	if c.Scanner.TwoSidedSpread < c.Scanner.MinSpreadPercent {
		return fmt.Errorf("config: scanner.two_sided_spread must be >= scanner.min_spread_percent: %w", domain.ErrConfigInvalid)
	}
	if c.Alerts.MinRiskTolerance < 1 || c.Alerts.MinRiskTolerance > 10 {
		return fmt.Errorf("config: alerts.min_risk_tolerance must be in [1,10], got %d: %w", c.Alerts.MinRiskTolerance, domain.ErrConfigInvalid)
	}
	if c.Alerts.PositionSizeUSD <= 0 {
		return fmt.Errorf("config: alerts.position_size_usd must be positive: %w", domain.ErrConfigInvalid)
	}

	if mode == "trade" {
		if !c.Polymarket.HasCredentials() {
			return fmt.Errorf("config: trade mode requires polymarket api_key, api_secret, and api_passphrase: %w", domain.ErrConfigInvalid)
		}
		if c.Polymarket.Address == "" {
			return fmt.Errorf("config: trade mode requires polymarket address: %w", domain.ErrConfigInvalid)
		}
	}

	return nil
}
