package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbsentinel/internal/alert"
	"github.com/alanyoungcy/arbsentinel/internal/analysis"
	"github.com/alanyoungcy/arbsentinel/internal/crypto"
	"github.com/alanyoungcy/arbsentinel/internal/executor"
	"github.com/alanyoungcy/arbsentinel/internal/feed"
	"github.com/alanyoungcy/arbsentinel/internal/pipeline"
	"github.com/alanyoungcy/arbsentinel/internal/platform/polymarket"
	"github.com/alanyoungcy/arbsentinel/internal/scanner"
	"github.com/alanyoungcy/arbsentinel/internal/server"
	"github.com/alanyoungcy/arbsentinel/internal/server/handler"
)

// MonitorMode scans, analyzes, and raises alerts without any order
// submission. It runs without venue credentials or a database.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")
	return a.runPipeline(ctx, deps, nil)
}

// TradeMode runs the full loop including execution of approved alerts and
// history archival.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")

	auth := &crypto.HMACAuth{
		Key:        a.cfg.Polymarket.ApiKey,
		Secret:     a.cfg.Polymarket.ApiSecret,
		Passphrase: a.cfg.Polymarket.ApiPassphrase,
		Address:    a.cfg.Polymarket.Address,
	}
	clob := polymarket.NewClobClient(
		a.cfg.Polymarket.ClobHost,
		auth,
		a.venueTimeout(),
		a.venueRetry(),
	)
	exec := executor.New(executor.Config{
		PositionSizeUSD:  a.cfg.Alerts.PositionSizeUSD,
		StrongConfidence: a.cfg.Alerts.StrongConfidence,
	}, clob, deps.TradeStore, a.logger)

	return a.runPipeline(ctx, deps, exec)
}

// runPipeline assembles the polling loop, price feed, HTTP API, and (in
// trade mode) the archival job, and runs them until ctx is cancelled.
func (a *App) runPipeline(ctx context.Context, deps *Dependencies, exec pipeline.TradeExecutor) error {
	gamma := polymarket.NewGammaClient(
		a.cfg.Polymarket.GammaHost,
		a.venueTimeout(),
		a.venueRetry(),
		a.cfg.Scanner.Categories,
	)

	scan := scanner.New(scanner.Config{
		MinSpreadPercent: a.cfg.Scanner.MinSpreadPercent,
		MinLiquidity:     a.cfg.Scanner.MinLiquidity,
		TwoSidedSpread:   a.cfg.Scanner.TwoSidedSpread,
		PositionSizeUSD:  a.cfg.Alerts.PositionSizeUSD,
	})

	analysisTimeout := time.Duration(a.cfg.Analysis.TimeoutSecs) * time.Second
	grok := analysis.NewGrokClient(a.cfg.Analysis.GrokHost, a.cfg.Analysis.GrokApiKey, a.cfg.Analysis.GrokModel, analysisTimeout)
	claude := analysis.NewClaudeClient(a.cfg.Analysis.ClaudeHost, a.cfg.Analysis.ClaudeApiKey, a.cfg.Analysis.ClaudeModel, analysisTimeout)
	analyzer := analysis.NewAnalyzer(grok, claude, deps.RateLimiter, a.logger)

	coordinator := alert.NewCoordinator(alert.Config{
		MinRiskTolerance: a.cfg.Alerts.MinRiskTolerance,
		AutoApprove:      a.cfg.Alerts.AutoApprove,
		MaxPendingAlerts: a.cfg.Alerts.MaxPendingAlerts,
		// One snapshot can resurface the same market across consecutive
		// cycles; suppress readmission for two poll intervals.
		DedupTTL: 2 * a.cfg.PollInterval(),
	}, deps.AlertStore, deps.Notifier, a.logger)

	priceFeed := feed.NewPriceFeed(a.cfg.Polymarket.WsHost, deps.PriceCache, a.logger)

	orchestrator := pipeline.NewOrchestrator(
		pipeline.Config{
			Mode:         a.cfg.Mode,
			PollInterval: a.cfg.PollInterval(),
			MarketLimit:  a.cfg.Scanner.MarketLimit,
			RecentTrades: a.cfg.Bot.RecentTrades,
		},
		gamma, scan, analyzer, coordinator, exec,
		deps.States, deps.MarketCache, deps.PriceCache, priceFeed,
		a.logger,
	)

	srv := server.NewServer(server.Config{
		Port:   a.cfg.Server.Port,
		APIKey: a.cfg.Server.APIKey,
	}, server.Handlers{
		Health: handler.NewHealthHandler(a.logger),
		State:  handler.NewStateHandler(deps.States, a.logger),
		Alerts: handler.NewAlertsHandler(coordinator, deps.AlertStore, a.logger),
	}, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return orchestrator.Run(ctx)
	})
	if a.cfg.Polymarket.WsHost != "" {
		g.Go(func() error {
			return priceFeed.Run(ctx)
		})
	}
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if deps.Archiver != nil {
		g.Go(func() error {
			return a.runArchival(ctx, deps)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runArchival moves aged history to object storage once a day.
func (a *App) runArchival(ctx context.Context, deps *Dependencies) error {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().UTC().AddDate(0, 0, -a.cfg.Alerts.HistoryRetainDays)
			if err := deps.Archiver.Run(ctx, cutoff); err != nil {
				a.logger.WarnContext(ctx, "history archival failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

func (a *App) venueTimeout() time.Duration {
	return time.Duration(a.cfg.Polymarket.TimeoutSecs) * time.Second
}

func (a *App) venueRetry() polymarket.RetryPolicy {
	return polymarket.RetryPolicy{
		MaxAttempts: a.cfg.Polymarket.RetryAttempts,
		BaseDelay:   time.Duration(a.cfg.Polymarket.RetryDelayMs) * time.Millisecond,
	}
}
