package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	s3blob "github.com/alanyoungcy/arbsentinel/internal/blob/s3"
	"github.com/alanyoungcy/arbsentinel/internal/cache/memory"
	"github.com/alanyoungcy/arbsentinel/internal/cache/redis"
	"github.com/alanyoungcy/arbsentinel/internal/config"
	"github.com/alanyoungcy/arbsentinel/internal/domain"
	"github.com/alanyoungcy/arbsentinel/internal/notify"
	"github.com/alanyoungcy/arbsentinel/internal/ratelimit"
	"github.com/alanyoungcy/arbsentinel/internal/state"
	"github.com/alanyoungcy/arbsentinel/internal/store/postgres"
)

// Dependencies bundles the shared infrastructure the modes build on. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// History stores, nil in monitor mode or when Postgres is not configured.
	AlertStore domain.AlertStore
	TradeStore domain.TradeStore

	// Caches; Redis when configured, in-process otherwise.
	PriceCache  domain.PriceCache
	MarketCache domain.MarketCache
	RateLimiter domain.RateLimiter

	// Object storage, nil when no bucket is configured.
	BlobWriter domain.BlobWriter
	Archiver   *s3blob.Archiver

	States   *state.FileStore
	Notifier *notify.Notifier
}

// needsPostgres reports whether the mode persists history.
func needsPostgres(mode string) bool {
	return strings.ToLower(mode) == "trade"
}

// Wire constructs the concrete dependency implementations from the
// configuration, together with a cleanup function for shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		States: state.NewFileStore(cfg.Bot.StatePath),
	}

	// Redis when configured, in-process fallbacks otherwise. The analysis
	// limiter allows one opportunity per MinIntervalSecs.
	analysisInterval := time.Duration(cfg.Analysis.MinIntervalSecs) * time.Second
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.PriceCache = redis.NewPriceCache(redisClient)
		deps.MarketCache = redis.NewMarketCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient, 1, analysisInterval)
	} else {
		deps.PriceCache = memory.NewPriceCache()
		deps.MarketCache = memory.NewMarketCache()
		deps.RateLimiter = ratelimit.NewLocal(analysisInterval)
	}

	// PostgreSQL history, trade mode only.
	if needsPostgres(cfg.Mode) && cfg.Postgres.Enabled() {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		alertStore := postgres.NewAlertStore(pool)
		tradeStore := postgres.NewTradeStore(pool)
		deps.AlertStore = alertStore
		deps.TradeStore = tradeStore

		// Cold storage archival needs both the bucket and the stores.
		if cfg.S3.Bucket != "" {
			s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
				Endpoint:       cfg.S3.Endpoint,
				Region:         cfg.S3.Region,
				Bucket:         cfg.S3.Bucket,
				AccessKey:      cfg.S3.AccessKey,
				SecretKey:      cfg.S3.SecretKey,
				UseSSL:         cfg.S3.UseSSL,
				ForcePathStyle: cfg.S3.ForcePathStyle,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: s3: %w", err)
			}

			deps.BlobWriter = s3blob.NewWriter(s3Client)
			deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, alertStore, tradeStore, logger)
		}
	}

	// Notifications.
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhook != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhook))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
