// Package alert implements the human-in-the-loop approval state machine.
// The coordinator admits analyzed opportunities through a risk gate, holds
// the resulting alerts in memory while they await a decision, and persists
// them to history once they reach a terminal status.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arbsentinel/internal/domain"
)

// Config tunes the admission gate and the pending queue.
type Config struct {
	// MinRiskTolerance is 1-10; the gate admits riskScore <= 10 - tolerance.
	MinRiskTolerance int
	// AutoApprove moves admitted alerts straight to APPROVED.
	AutoApprove bool
	// MaxPendingAlerts caps the queue; further opportunities are dropped
	// until a slot frees up.
	MaxPendingAlerts int
	// DedupTTL suppresses repeat admissions of the same market within the
	// window. Zero disables suppression.
	DedupTTL time.Duration
}

// Notifier receives alert lifecycle events. Implementations must not block
// the coordinator; slow channels should buffer internally.
type Notifier interface {
	AlertCreated(ctx context.Context, alert domain.TradingAlert)
	AlertResolved(ctx context.Context, alert domain.TradingAlert)
}

// Coordinator owns every live alert from admission to terminal status.
// All transitions are serialized under one mutex so concurrent API calls
// and the polling loop never race on the state machine.
type Coordinator struct {
	cfg      Config
	store    domain.AlertStore // nil disables history persistence
	notifier Notifier          // nil disables notifications
	logger   *slog.Logger

	mu     sync.Mutex
	alerts map[string]*domain.TradingAlert
	dedup  *dedup // nil when DedupTTL is zero
}

func NewCoordinator(cfg Config, store domain.AlertStore, notifier Notifier, logger *slog.Logger) *Coordinator {
	c := &Coordinator{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "alert_coordinator")),
		alerts:   make(map[string]*domain.TradingAlert),
	}
	if cfg.DedupTTL > 0 {
		c.dedup = newDedup(cfg.DedupTTL)
	}
	return c
}

// Admit runs the risk gate over an analyzed opportunity and, if it passes,
// creates a PENDING alert (or APPROVED when auto-approve is on). It returns
// the created alert and true, or the zero alert and false when the gate,
// the queue cap, or the dedup window rejected the opportunity.
func (c *Coordinator) Admit(ctx context.Context, opp domain.ArbitrageOpportunity, sentiment domain.SentimentOpinion, rec domain.RecommendationOpinion) (domain.TradingAlert, bool) {
	if c.dedup != nil {
		c.dedup.cleanup()
	}
	if rec.Recommendation == domain.RecommendationAvoid {
		c.logger.InfoContext(ctx, "gate rejected opportunity",
			slog.String("market_id", opp.Market.ID),
			slog.String("reason", "recommendation AVOID"),
		)
		return domain.TradingAlert{}, false
	}
	maxRisk := 10 - c.cfg.MinRiskTolerance
	if rec.RiskScore > maxRisk {
		c.logger.InfoContext(ctx, "gate rejected opportunity",
			slog.String("market_id", opp.Market.ID),
			slog.Int("risk_score", rec.RiskScore),
			slog.Int("max_risk", maxRisk),
		)
		return domain.TradingAlert{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.MaxPendingAlerts > 0 && c.pendingLocked() >= c.cfg.MaxPendingAlerts {
		c.logger.WarnContext(ctx, "pending queue full, dropping opportunity",
			slog.String("market_id", opp.Market.ID),
			slog.Int("max_pending", c.cfg.MaxPendingAlerts),
		)
		return domain.TradingAlert{}, false
	}

	// Checked after the queue cap so a cap-dropped opportunity is not
	// recorded and can come back once a slot frees up.
	if c.dedup != nil && c.dedup.isDuplicate(opp.Market.ID) {
		c.logger.DebugContext(ctx, "duplicate opportunity suppressed",
			slog.String("market_id", opp.Market.ID),
		)
		return domain.TradingAlert{}, false
	}

	alert := &domain.TradingAlert{
		ID:             uuid.NewString(),
		Opportunity:    opp,
		Sentiment:      sentiment,
		Recommendation: rec,
		Status:         domain.AlertPending,
		CreatedAt:      time.Now().UTC(),
	}
	if c.cfg.AutoApprove {
		alert.Status = domain.AlertApproved
	}
	c.alerts[alert.ID] = alert

	c.logger.InfoContext(ctx, "alert created",
		slog.String("alert_id", alert.ID),
		slog.String("market_id", opp.Market.ID),
		slog.String("status", string(alert.Status)),
		slog.Float64("spread_percent", opp.SpreadPercent),
	)
	if c.notifier != nil {
		c.notifier.AlertCreated(ctx, *alert)
	}
	return *alert, true
}

// Approve moves a PENDING alert to APPROVED. Calling it on an alert that
// already left PENDING is a no-op that returns the current alert, so a
// double-tap on the approval endpoint cannot corrupt the state machine.
func (c *Coordinator) Approve(ctx context.Context, id string) (domain.TradingAlert, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	alert, ok := c.alerts[id]
	if !ok {
		return domain.TradingAlert{}, fmt.Errorf("alert: approve %s: %w", id, domain.ErrNotFound)
	}
	if alert.Status != domain.AlertPending {
		return *alert, nil
	}
	alert.Status = domain.AlertApproved
	c.logger.InfoContext(ctx, "alert approved", slog.String("alert_id", id))
	return *alert, nil
}

// Reject moves a PENDING alert to REJECTED with the given reason. Like
// Approve it is idempotent on non-PENDING alerts.
func (c *Coordinator) Reject(ctx context.Context, id, reason string) (domain.TradingAlert, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	alert, ok := c.alerts[id]
	if !ok {
		return domain.TradingAlert{}, fmt.Errorf("alert: reject %s: %w", id, domain.ErrNotFound)
	}
	if alert.Status != domain.AlertPending {
		return *alert, nil
	}
	c.resolveLocked(ctx, alert, domain.AlertRejected, reason)
	return *alert, nil
}

// MarkExecuted moves an APPROVED alert to EXECUTED after its trades were
// submitted.
func (c *Coordinator) MarkExecuted(ctx context.Context, id string) (domain.TradingAlert, error) {
	return c.finish(ctx, id, domain.AlertExecuted, "")
}

// MarkFailed moves an APPROVED alert to FAILED with the failure cause.
func (c *Coordinator) MarkFailed(ctx context.Context, id, reason string) (domain.TradingAlert, error) {
	return c.finish(ctx, id, domain.AlertFailed, reason)
}

func (c *Coordinator) finish(ctx context.Context, id string, status domain.AlertStatus, reason string) (domain.TradingAlert, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	alert, ok := c.alerts[id]
	if !ok {
		return domain.TradingAlert{}, fmt.Errorf("alert: resolve %s: %w", id, domain.ErrNotFound)
	}
	if alert.Status == status {
		return *alert, nil
	}
	if !alert.Status.CanTransition(status) {
		return *alert, fmt.Errorf("alert: resolve %s: illegal transition %s -> %s", id, alert.Status, status)
	}
	c.resolveLocked(ctx, alert, status, reason)
	return *alert, nil
}

// resolveLocked applies a terminal transition and persists the alert. The
// alert stays in memory so repeated decision calls against it remain
// harmless no-ops. Caller holds c.mu.
func (c *Coordinator) resolveLocked(ctx context.Context, alert *domain.TradingAlert, status domain.AlertStatus, reason string) {
	now := time.Now().UTC()
	alert.Status = status
	alert.Reason = reason
	alert.ResolvedAt = &now

	c.logger.InfoContext(ctx, "alert resolved",
		slog.String("alert_id", alert.ID),
		slog.String("status", string(status)),
		slog.String("reason", reason),
	)
	if c.store != nil {
		if err := c.store.Create(ctx, *alert); err != nil {
			c.logger.WarnContext(ctx, "failed to persist resolved alert",
				slog.String("alert_id", alert.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if c.notifier != nil {
		c.notifier.AlertResolved(ctx, *alert)
	}
}

// Get returns an alert created in this session by ID.
func (c *Coordinator) Get(id string) (domain.TradingAlert, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	alert, ok := c.alerts[id]
	if !ok {
		return domain.TradingAlert{}, fmt.Errorf("alert: get %s: %w", id, domain.ErrNotFound)
	}
	return *alert, nil
}

// Pending returns the PENDING alerts ordered oldest first.
func (c *Coordinator) Pending() []domain.TradingAlert {
	return c.list(domain.AlertPending)
}

// Approved returns the APPROVED alerts ordered oldest first. The polling
// loop drains these through the executor.
func (c *Coordinator) Approved() []domain.TradingAlert {
	return c.list(domain.AlertApproved)
}

// Open returns every non-terminal alert (PENDING and APPROVED) ordered
// oldest first. The published snapshot lists these until they resolve, so
// an approved alert that has not executed yet stays visible.
func (c *Coordinator) Open() []domain.TradingAlert {
	return c.list(domain.AlertPending, domain.AlertApproved)
}

func (c *Coordinator) list(statuses ...domain.AlertStatus) []domain.TradingAlert {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.TradingAlert, 0, len(c.alerts))
	for _, alert := range c.alerts {
		for _, status := range statuses {
			if alert.Status == status {
				out = append(out, *alert)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (c *Coordinator) pendingLocked() int {
	n := 0
	for _, alert := range c.alerts {
		if alert.Status == domain.AlertPending {
			n++
		}
	}
	return n
}
