package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBSENTINEL_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBSENTINEL_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Mode, "ARBSENTINEL_MODE")
	setStr(&cfg.LogLevel, "ARBSENTINEL_LOG_LEVEL")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.GammaHost, "ARBSENTINEL_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.ClobHost, "ARBSENTINEL_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.WsHost, "ARBSENTINEL_POLYMARKET_WS_HOST")
	setStr(&cfg.Polymarket.ApiKey, "ARBSENTINEL_POLYMARKET_API_KEY")
	setStr(&cfg.Polymarket.ApiSecret, "ARBSENTINEL_POLYMARKET_API_SECRET")
	setStr(&cfg.Polymarket.ApiPassphrase, "ARBSENTINEL_POLYMARKET_API_PASSPHRASE")
	setStr(&cfg.Polymarket.Address, "ARBSENTINEL_POLYMARKET_ADDRESS")

	// ── Analysis ──
	setStr(&cfg.Analysis.GrokApiKey, "ARBSENTINEL_GROK_API_KEY")
	setStr(&cfg.Analysis.GrokHost, "ARBSENTINEL_GROK_HOST")
	setStr(&cfg.Analysis.GrokModel, "ARBSENTINEL_GROK_MODEL")
	setStr(&cfg.Analysis.ClaudeApiKey, "ARBSENTINEL_CLAUDE_API_KEY")
	setStr(&cfg.Analysis.ClaudeHost, "ARBSENTINEL_CLAUDE_HOST")
	setStr(&cfg.Analysis.ClaudeModel, "ARBSENTINEL_CLAUDE_MODEL")
	setInt(&cfg.Analysis.MinIntervalSecs, "ARBSENTINEL_ANALYSIS_MIN_INTERVAL_SECS")

	// ── Scanner ──
	setInt(&cfg.Scanner.MarketLimit, "ARBSENTINEL_SCANNER_MARKET_LIMIT")
	setFloat64(&cfg.Scanner.MinSpreadPercent, "ARBSENTINEL_SCANNER_MIN_SPREAD_PERCENT")
	setFloat64(&cfg.Scanner.MinLiquidity, "ARBSENTINEL_SCANNER_MIN_LIQUIDITY")
	setFloat64(&cfg.Scanner.TwoSidedSpread, "ARBSENTINEL_SCANNER_TWO_SIDED_SPREAD")

	// ── Alerts ──
	setInt(&cfg.Alerts.MinRiskTolerance, "ARBSENTINEL_ALERTS_MIN_RISK_TOLERANCE")
	setBool(&cfg.Alerts.AutoApprove, "ARBSENTINEL_ALERTS_AUTO_APPROVE")
	setFloat64(&cfg.Alerts.StrongConfidence, "ARBSENTINEL_ALERTS_STRONG_CONFIDENCE")
	setFloat64(&cfg.Alerts.PositionSizeUSD, "ARBSENTINEL_ALERTS_POSITION_SIZE_USD")

	// ── Bot ──
	setInt(&cfg.Bot.PollIntervalMins, "ARBSENTINEL_BOT_POLL_INTERVAL_MINS")
	setStr(&cfg.Bot.StatePath, "ARBSENTINEL_BOT_STATE_PATH")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ARBSENTINEL_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBSENTINEL_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBSENTINEL_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "ARBSENTINEL_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ARBSENTINEL_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ARBSENTINEL_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ARBSENTINEL_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ARBSENTINEL_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ARBSENTINEL_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ARBSENTINEL_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ARBSENTINEL_POSTGRES_SSL_MODE")
	setBool(&cfg.Postgres.RunMigrations, "ARBSENTINEL_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "ARBSENTINEL_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ARBSENTINEL_S3_REGION")
	setStr(&cfg.S3.Bucket, "ARBSENTINEL_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ARBSENTINEL_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ARBSENTINEL_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "ARBSENTINEL_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setInt(&cfg.Server.Port, "ARBSENTINEL_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "ARBSENTINEL_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ARBSENTINEL_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ARBSENTINEL_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhook, "ARBSENTINEL_NOTIFY_DISCORD_WEBHOOK")
}

func setStr(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
