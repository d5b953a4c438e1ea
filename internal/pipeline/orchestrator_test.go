package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbsentinel/internal/alert"
	"github.com/alanyoungcy/arbsentinel/internal/analysis"
	"github.com/alanyoungcy/arbsentinel/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSource struct {
	markets []domain.Market
	err     error
}

func (s *fakeSource) GetActiveMarkets(context.Context, int) ([]domain.Market, error) {
	return s.markets, s.err
}

type fakeScanner struct {
	opps  []domain.ArbitrageOpportunity
	calls int
}

func (s *fakeScanner) Scan([]domain.Market) []domain.ArbitrageOpportunity {
	s.calls++
	return s.opps
}

type fakeAnalyzer struct{}

func (fakeAnalyzer) AnalyzeAll(_ context.Context, opps []domain.ArbitrageOpportunity) ([]analysis.Analyzed, error) {
	out := make([]analysis.Analyzed, 0, len(opps))
	for _, opp := range opps {
		out = append(out, analysis.Analyzed{
			Opportunity: opp,
			Sentiment:   domain.SentimentOpinion{Sentiment: domain.SentimentBullish, Confidence: 60},
			Recommendation: domain.RecommendationOpinion{
				Recommendation: domain.RecommendationBuy,
				RiskScore:      3,
			},
		})
	}
	return out, nil
}

type fakeExecutor struct {
	trades []domain.Trade
	err    error
	calls  int
}

func (e *fakeExecutor) Execute(_ context.Context, a domain.TradingAlert) ([]domain.Trade, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	trades := make([]domain.Trade, len(e.trades))
	copy(trades, e.trades)
	for i := range trades {
		trades[i].AlertID = a.ID
	}
	return trades, e.err
}

// fakeStates records every committed snapshot and signals each commit.
type fakeStates struct {
	mu        sync.Mutex
	commits   []domain.BotState
	committed chan struct{}
}

func newFakeStates() *fakeStates {
	return &fakeStates{committed: make(chan struct{}, 32)}
}

func (s *fakeStates) Load() (domain.BotState, error) { return domain.BotState{}, nil }

func (s *fakeStates) Commit(st domain.BotState) error {
	s.mu.Lock()
	s.commits = append(s.commits, st)
	s.mu.Unlock()
	s.committed <- struct{}{}
	return nil
}

func (s *fakeStates) last() domain.BotState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits[len(s.commits)-1]
}

func (s *fakeStates) waitCommit(t *testing.T) domain.BotState {
	t.Helper()
	select {
	case <-s.committed:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a state commit")
	}
	return s.last()
}

func testOpportunity() domain.ArbitrageOpportunity {
	return domain.ArbitrageOpportunity{
		Market: domain.Market{
			ID:       "mkt-1",
			Question: "Will the vote pass?",
			YesPrice: 40,
			NoPrice:  45,
			YesToken: "tok-yes",
			NoToken:  "tok-no",
		},
		SpreadPercent:   15,
		RecommendedSide: domain.SideBoth,
	}
}

func newCoordinator(autoApprove bool) *alert.Coordinator {
	return alert.NewCoordinator(alert.Config{
		MinRiskTolerance: 4,
		AutoApprove:      autoApprove,
		MaxPendingAlerts: 10,
	}, nil, nil, testLogger())
}

func newOrchestrator(source MarketSource, scanner OpportunityScanner, coord *alert.Coordinator, exec TradeExecutor, states StateStore) *Orchestrator {
	return NewOrchestrator(
		Config{Mode: "monitor", PollInterval: time.Hour, MarketLimit: 50, RecentTrades: 10},
		source, scanner, fakeAnalyzer{}, coord, exec, states, nil, nil, nil, testLogger(),
	)
}

func TestRun_FirstCyclePublishesAlerts(t *testing.T) {
	states := newFakeStates()
	coord := newCoordinator(false)
	o := newOrchestrator(
		&fakeSource{markets: []domain.Market{{ID: "mkt-1"}}},
		&fakeScanner{opps: []domain.ArbitrageOpportunity{testOpportunity()}},
		coord, nil, states,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	st := states.waitCommit(t)
	assert.True(t, st.Running)
	assert.Equal(t, "monitor", st.Mode)
	assert.Equal(t, int64(1), st.CycleCount)
	assert.Equal(t, int64(1), st.AlertsCreated)
	require.Len(t, st.PendingAlerts, 1)
	assert.Equal(t, domain.AlertPending, st.PendingAlerts[0].Status)

	cancel()
	require.NoError(t, <-done)

	final := states.last()
	assert.False(t, final.Running, "clean shutdown commits Running=false")
}

func TestRun_RefusesConcurrentRun(t *testing.T) {
	states := newFakeStates()
	o := newOrchestrator(&fakeSource{}, &fakeScanner{}, newCoordinator(false), nil, states)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()
	states.waitCommit(t)

	err := o.Run(ctx)
	assert.Error(t, err)

	cancel()
	require.NoError(t, <-done)
}

func TestRun_SourceFailureSkipsCycleButCommits(t *testing.T) {
	states := newFakeStates()
	scanner := &fakeScanner{}
	o := newOrchestrator(
		&fakeSource{err: errors.New("gateway down")},
		scanner, newCoordinator(false), nil, states,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	st := states.waitCommit(t)
	assert.Equal(t, int64(1), st.CycleCount, "a failed fetch still stamps the cycle")
	assert.Zero(t, st.AlertsCreated)
	assert.Zero(t, scanner.calls, "scan is skipped when the snapshot is missing")

	cancel()
	require.NoError(t, <-done)
}

func TestRun_ExecutesApprovedAlerts(t *testing.T) {
	states := newFakeStates()
	coord := newCoordinator(true)
	exec := &fakeExecutor{trades: []domain.Trade{
		{ID: "t1", Side: domain.SideYes, Amount: 50, Status: domain.TradeFilled},
		{ID: "t2", Side: domain.SideNo, Amount: 50, Status: domain.TradeFilled},
	}}
	o := newOrchestrator(
		&fakeSource{markets: []domain.Market{{ID: "mkt-1"}}},
		&fakeScanner{opps: []domain.ArbitrageOpportunity{testOpportunity()}},
		coord, exec, states,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	st := states.waitCommit(t)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 1, exec.calls)
	assert.Equal(t, int64(2), st.TradesPlaced)
	require.Len(t, st.RecentTrades, 2)
	assert.Empty(t, st.PendingAlerts)

	require.Len(t, st.Positions, 2, "filled trades project into positions")

	a, err := coord.Get(st.RecentTrades[0].AlertID)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertExecuted, a.Status)
}

func TestRun_AsymmetricFillMarksAlertFailed(t *testing.T) {
	states := newFakeStates()
	coord := newCoordinator(true)
	exec := &fakeExecutor{trades: []domain.Trade{
		{ID: "t1", Side: domain.SideYes, Amount: 50, Status: domain.TradeFilled},
		{ID: "t2", Side: domain.SideNo, Amount: 50, Status: domain.TradeFailed, Error: "price moved"},
	}}
	o := newOrchestrator(
		&fakeSource{markets: []domain.Market{{ID: "mkt-1"}}},
		&fakeScanner{opps: []domain.ArbitrageOpportunity{testOpportunity()}},
		coord, exec, states,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	st := states.waitCommit(t)
	cancel()
	require.NoError(t, <-done)

	// Both leg statuses stay visible; the owning alert is failed, the filled
	// leg is not rolled back.
	require.Len(t, st.RecentTrades, 2)
	assert.Equal(t, domain.TradeFilled, st.RecentTrades[0].Status)
	assert.Equal(t, domain.TradeFailed, st.RecentTrades[1].Status)

	a, err := coord.Get(st.RecentTrades[0].AlertID)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertFailed, a.Status)
	assert.Contains(t, a.Reason, "price moved")
}

func TestRun_AllLegsFailedMarksAlertFailed(t *testing.T) {
	states := newFakeStates()
	coord := newCoordinator(true)
	exec := &fakeExecutor{trades: []domain.Trade{
		{ID: "t1", Side: domain.SideYes, Status: domain.TradeFailed, Error: "no liquidity"},
	}}
	o := newOrchestrator(
		&fakeSource{markets: []domain.Market{{ID: "mkt-1"}}},
		&fakeScanner{opps: []domain.ArbitrageOpportunity{testOpportunity()}},
		coord, exec, states,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	st := states.waitCommit(t)
	cancel()
	require.NoError(t, <-done)

	require.Len(t, st.RecentTrades, 1)
	a, err := coord.Get(st.RecentTrades[0].AlertID)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertFailed, a.Status)
	assert.Contains(t, a.Reason, "no liquidity")
}

func TestRun_ApprovedAlertStaysInSnapshot(t *testing.T) {
	states := newFakeStates()
	coord := alert.NewCoordinator(alert.Config{
		MinRiskTolerance: 4,
		MaxPendingAlerts: 10,
		DedupTTL:         time.Minute,
	}, nil, nil, testLogger())
	o := NewOrchestrator(
		Config{Mode: "monitor", PollInterval: 20 * time.Millisecond, MarketLimit: 50, RecentTrades: 10},
		&fakeSource{markets: []domain.Market{{ID: "mkt-1"}}},
		&fakeScanner{opps: []domain.ArbitrageOpportunity{testOpportunity()}},
		fakeAnalyzer{}, coord, nil, states, nil, nil, nil, testLogger(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	st := states.waitCommit(t)
	require.Len(t, st.PendingAlerts, 1)
	alertID := st.PendingAlerts[0].ID

	_, err := coord.Approve(ctx, alertID)
	require.NoError(t, err)

	// With no executor the alert never turns terminal; every later
	// snapshot must keep listing it as APPROVED. The approval may race
	// the cycle in flight, so allow a few commits to pick it up.
	for i := 0; ; i++ {
		st = states.waitCommit(t)
		if len(st.PendingAlerts) == 1 && st.PendingAlerts[0].Status == domain.AlertApproved {
			break
		}
		if i >= 20 {
			t.Fatalf("approved alert never surfaced in the snapshot, last: %+v", st.PendingAlerts)
		}
	}
	st = states.waitCommit(t)
	require.Len(t, st.PendingAlerts, 1)
	assert.Equal(t, alertID, st.PendingAlerts[0].ID)
	assert.Equal(t, domain.AlertApproved, st.PendingAlerts[0].Status)
	assert.Equal(t, int64(1), st.AlertsCreated, "the same market is not re-admitted each cycle")

	cancel()
	require.NoError(t, <-done)
}
