// Package pipeline runs the polling loop that drives the bot: fetch
// markets, scan for mispricings, analyze, gate into alerts, execute
// whatever the operator approved, and publish a state snapshot.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/arbsentinel/internal/alert"
	"github.com/alanyoungcy/arbsentinel/internal/analysis"
	"github.com/alanyoungcy/arbsentinel/internal/domain"
)

// MarketSource provides the active market snapshot.
type MarketSource interface {
	GetActiveMarkets(ctx context.Context, limit int) ([]domain.Market, error)
}

// OpportunityScanner finds mispriced markets in a snapshot.
type OpportunityScanner interface {
	Scan(markets []domain.Market) []domain.ArbitrageOpportunity
}

// OpportunityAnalyzer runs the opinion pipeline over scanned opportunities.
type OpportunityAnalyzer interface {
	AnalyzeAll(ctx context.Context, opps []domain.ArbitrageOpportunity) ([]analysis.Analyzed, error)
}

// TradeExecutor submits order legs for approved alerts.
type TradeExecutor interface {
	Execute(ctx context.Context, alert domain.TradingAlert) ([]domain.Trade, error)
}

// StateStore persists the published snapshot.
type StateStore interface {
	Load() (domain.BotState, error)
	Commit(st domain.BotState) error
}

// TokenTracker is notified which outcome tokens the loop currently cares
// about, so the price feed can keep their quotes fresh.
type TokenTracker interface {
	Track(tokenIDs []string)
}

// Config tunes the loop.
type Config struct {
	Mode         string
	PollInterval time.Duration
	MarketLimit  int
	// RecentTrades caps the trades carried in the published snapshot.
	RecentTrades int
}

// Orchestrator owns the cycle. It is the single writer of BotState; every
// other component reads the committed snapshot.
type Orchestrator struct {
	cfg         Config
	source      MarketSource
	scanner     OpportunityScanner
	analyzer    OpportunityAnalyzer
	coordinator *alert.Coordinator
	executor    TradeExecutor // nil in monitor mode
	states      StateStore
	markets     domain.MarketCache // nil disables market caching
	prices      domain.PriceCache  // nil disables position valuation
	tracker     TokenTracker       // nil when no live feed runs
	logger      *slog.Logger

	running atomic.Bool
	trades  []domain.Trade // filled/submitted trades this session, newest last
}

func NewOrchestrator(
	cfg Config,
	source MarketSource,
	scanner OpportunityScanner,
	analyzer OpportunityAnalyzer,
	coordinator *alert.Coordinator,
	executor TradeExecutor,
	states StateStore,
	markets domain.MarketCache,
	prices domain.PriceCache,
	tracker TokenTracker,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		source:      source,
		scanner:     scanner,
		analyzer:    analyzer,
		coordinator: coordinator,
		executor:    executor,
		states:      states,
		markets:     markets,
		prices:      prices,
		tracker:     tracker,
		logger:      logger.With(slog.String("component", "orchestrator")),
	}
}

// Run executes poll cycles until ctx is cancelled, then commits a final
// snapshot with Running=false so external readers can tell a clean shutdown
// from a crash. A second concurrent Run is refused.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return errors.New("pipeline: orchestrator already running")
	}
	defer o.running.Store(false)

	st, err := o.states.Load()
	if err != nil {
		o.logger.WarnContext(ctx, "could not load previous state, starting fresh",
			slog.String("error", err.Error()),
		)
		st = domain.BotState{}
	}
	st.Running = true
	st.Mode = o.cfg.Mode

	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	o.cycle(ctx, &st)

	for {
		select {
		case <-ctx.Done():
			st.Running = false
			st.UpdatedAt = time.Now().UTC()
			if err := o.states.Commit(st); err != nil {
				o.logger.Error("final state commit failed", slog.String("error", err.Error()))
			}
			o.logger.Info("orchestrator stopped", slog.Int64("cycles", st.CycleCount))
			return nil
		case <-ticker.C:
			o.cycle(ctx, &st)
		}
	}
}

// cycle runs one poll iteration and commits the resulting snapshot. Any
// stage failure leaves previously committed data intact; the next tick
// retries from the top.
func (o *Orchestrator) cycle(ctx context.Context, st *domain.BotState) {
	started := time.Now().UTC()

	markets, err := o.source.GetActiveMarkets(ctx, o.cfg.MarketLimit)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		o.logger.WarnContext(ctx, "market fetch failed, skipping cycle",
			slog.String("error", err.Error()),
		)
		o.commit(st, started)
		return
	}
	o.cacheMarkets(ctx, markets)

	opps := o.scanner.Scan(markets)
	o.logger.InfoContext(ctx, "scan complete",
		slog.Int("markets", len(markets)),
		slog.Int("opportunities", len(opps)),
	)
	if o.tracker != nil {
		o.tracker.Track(opportunityTokens(opps))
	}

	analyzed, err := o.analyzer.AnalyzeAll(ctx, opps)
	if err != nil {
		// AnalyzeAll only fails on cancellation.
		return
	}
	for _, a := range analyzed {
		if _, created := o.coordinator.Admit(ctx, a.Opportunity, a.Sentiment, a.Recommendation); created {
			st.AlertsCreated++
		}
	}

	if o.executor != nil {
		o.executeApproved(ctx, st)
	}

	o.commit(st, started)
}

// executeApproved drains the approved queue through the executor and moves
// each alert to its terminal status based on how its legs fared.
func (o *Orchestrator) executeApproved(ctx context.Context, st *domain.BotState) {
	for _, a := range o.coordinator.Approved() {
		trades, err := o.executor.Execute(ctx, a)
		if err != nil {
			o.logger.WarnContext(ctx, "execution refused",
				slog.String("alert_id", a.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		st.TradesPlaced += int64(len(trades))
		o.trades = append(o.trades, trades...)

		// Any failed leg fails the alert; a surviving sibling leg stays
		// FILLED and visible in state.
		if failedLegs(trades) > 0 {
			if _, err := o.coordinator.MarkFailed(ctx, a.ID, failureReason(trades)); err != nil {
				o.logger.WarnContext(ctx, "mark failed", slog.String("alert_id", a.ID), slog.String("error", err.Error()))
			}
		} else {
			if _, err := o.coordinator.MarkExecuted(ctx, a.ID); err != nil {
				o.logger.WarnContext(ctx, "mark executed", slog.String("alert_id", a.ID), slog.String("error", err.Error()))
			}
		}
	}
}

// commit assembles and persists the snapshot for this cycle.
func (o *Orchestrator) commit(st *domain.BotState, started time.Time) {
	st.CycleCount++
	st.LastCheck = started
	st.PendingAlerts = o.coordinator.Open()
	st.RecentTrades = o.recentTrades()
	st.Positions = o.positions()
	st.UpdatedAt = time.Now().UTC()

	if err := o.states.Commit(st.Clone()); err != nil {
		o.logger.Error("state commit failed", slog.String("error", err.Error()))
	}
}

func (o *Orchestrator) recentTrades() []domain.Trade {
	if max := o.cfg.RecentTrades; max > 0 && len(o.trades) > max {
		o.trades = append([]domain.Trade(nil), o.trades[len(o.trades)-max:]...)
	}
	return append([]domain.Trade(nil), o.trades...)
}

// positions projects the session's filled trades into open positions valued
// at the freshest cached price, falling back to the entry price when no
// quote is available.
func (o *Orchestrator) positions() []domain.Position {
	var out []domain.Position
	for _, t := range o.trades {
		if t.Status != domain.TradeFilled {
			continue
		}
		price := t.AvgFillPrice
		if price == 0 {
			price = t.Price
		}
		if o.prices != nil && o.markets != nil {
			if p, ok := o.lookupPrice(t); ok {
				price = p
			}
		}
		out = append(out, domain.PositionFromTrade(t, price))
	}
	return out
}

func (o *Orchestrator) lookupPrice(t domain.Trade) (float64, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	m, err := o.markets.Get(ctx, t.MarketID)
	if err != nil {
		return 0, false
	}
	tokenID := m.YesToken
	if t.Side == domain.SideNo {
		tokenID = m.NoToken
	}
	price, _, err := o.prices.GetPrice(ctx, tokenID)
	if err != nil {
		return 0, false
	}
	return price, true
}

func (o *Orchestrator) cacheMarkets(ctx context.Context, markets []domain.Market) {
	if o.markets == nil {
		return
	}
	for _, m := range markets {
		if err := o.markets.Set(ctx, m); err != nil {
			o.logger.WarnContext(ctx, "market cache set failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
			return
		}
	}
}

func opportunityTokens(opps []domain.ArbitrageOpportunity) []string {
	tokens := make([]string, 0, len(opps)*2)
	for _, opp := range opps {
		if opp.Market.YesToken != "" {
			tokens = append(tokens, opp.Market.YesToken)
		}
		if opp.Market.NoToken != "" {
			tokens = append(tokens, opp.Market.NoToken)
		}
	}
	return tokens
}

func failedLegs(trades []domain.Trade) int {
	n := 0
	for _, t := range trades {
		if t.Status == domain.TradeFailed {
			n++
		}
	}
	return n
}

func failureReason(trades []domain.Trade) string {
	var reasons []string
	for _, t := range trades {
		if t.Error != "" {
			reasons = append(reasons, fmt.Sprintf("%s leg: %s", t.Side, t.Error))
		}
	}
	if len(reasons) == 0 {
		return "all order legs failed"
	}
	return strings.Join(reasons, "; ")
}
