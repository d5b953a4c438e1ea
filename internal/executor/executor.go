// Package executor turns approved alerts into venue orders. It decides
// which outcome legs to buy, sizes them, submits them, and records each
// leg's fate independently.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arbsentinel/internal/domain"
	"github.com/alanyoungcy/arbsentinel/internal/platform/polymarket"
)

// slippageBuffer is added to the observed outcome price as the limit, so a
// small move between scan and submission does not kill the fill.
const slippageBuffer = 1.0

// Venue submits orders to the trading venue.
type Venue interface {
	SubmitOrder(ctx context.Context, req polymarket.OrderRequest) (domain.OrderResult, error)
}

// Config tunes execution sizing and the sentiment override.
type Config struct {
	PositionSizeUSD float64
	// StrongConfidence is the sentiment confidence above which a one-sided
	// execution follows the sentiment direction instead of the cheaper
	// outcome.
	StrongConfidence float64
}

// Executor submits the order legs for approved alerts.
type Executor struct {
	cfg    Config
	venue  Venue
	trades domain.TradeStore // nil disables trade persistence
	logger *slog.Logger
}

func New(cfg Config, venue Venue, trades domain.TradeStore, logger *slog.Logger) *Executor {
	return &Executor{
		cfg:    cfg,
		venue:  venue,
		trades: trades,
		logger: logger.With(slog.String("component", "executor")),
	}
}

type leg struct {
	side    domain.Side
	tokenID string
	price   float64
	amount  float64
}

// Execute submits the order legs for an APPROVED alert and returns one
// Trade per leg. Legs are independent: a failed leg is recorded as FAILED
// and never triggers a rollback of its sibling, so an asymmetric fill is
// surfaced to the operator rather than hidden by a cancel.
//
// A PENDING alert returns ErrApprovalRequired; any other non-APPROVED
// status returns ErrNotApproved.
func (e *Executor) Execute(ctx context.Context, alert domain.TradingAlert) ([]domain.Trade, error) {
	switch alert.Status {
	case domain.AlertApproved:
	case domain.AlertPending:
		return nil, fmt.Errorf("executor: alert %s: %w", alert.ID, domain.ErrApprovalRequired)
	default:
		return nil, fmt.Errorf("executor: alert %s is %s: %w", alert.ID, alert.Status, domain.ErrNotApproved)
	}

	legs := e.planLegs(alert)
	trades := make([]domain.Trade, 0, len(legs))
	for _, l := range legs {
		trades = append(trades, e.submitLeg(ctx, alert, l))
	}

	if len(trades) == 2 && (trades[0].Status == domain.TradeFilled) != (trades[1].Status == domain.TradeFilled) {
		e.logger.WarnContext(ctx, "asymmetric fill on two-sided execution",
			slog.String("alert_id", alert.ID),
			slog.String("yes_status", string(trades[0].Status)),
			slog.String("no_status", string(trades[1].Status)),
		)
	}
	return trades, nil
}

// planLegs picks the outcome legs in priority order: a two-sided spread the
// risk service confirms as genuine arbitrage buys both outcomes split
// evenly; otherwise a strong sentiment read picks the direction; otherwise
// the scanner's recommended (cheaper) side wins.
func (e *Executor) planLegs(alert domain.TradingAlert) []leg {
	market := alert.Opportunity.Market

	if alert.Opportunity.RecommendedSide == domain.SideBoth && alert.Recommendation.GenuineArb {
		half := e.cfg.PositionSizeUSD / 2
		return []leg{
			{side: domain.SideYes, tokenID: market.YesToken, price: market.YesPrice, amount: half},
			{side: domain.SideNo, tokenID: market.NoToken, price: market.NoPrice, amount: half},
		}
	}

	side := alert.Opportunity.RecommendedSide
	if side == domain.SideBoth {
		// Unconfirmed two-sided spread, take the cheaper outcome only.
		side = market.CheaperSide()
	}
	if alert.Sentiment.Confidence >= e.cfg.StrongConfidence {
		switch alert.Sentiment.Sentiment {
		case domain.SentimentBullish:
			side = domain.SideYes
		case domain.SentimentBearish:
			side = domain.SideNo
		}
	}

	tokenID, price := market.YesToken, market.YesPrice
	if side == domain.SideNo {
		tokenID, price = market.NoToken, market.NoPrice
	}
	return []leg{{side: side, tokenID: tokenID, price: price, amount: e.cfg.PositionSizeUSD}}
}

func (e *Executor) submitLeg(ctx context.Context, alert domain.TradingAlert, l leg) domain.Trade {
	now := time.Now().UTC()
	trade := domain.Trade{
		ID:             uuid.NewString(),
		AlertID:        alert.ID,
		MarketID:       alert.Opportunity.Market.ID,
		MarketQuestion: alert.Opportunity.Market.Question,
		Side:           l.side,
		Amount:         l.amount,
		Price:          l.price,
		Status:         domain.TradePending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	e.persist(ctx, trade, true)

	result, err := e.venue.SubmitOrder(ctx, polymarket.OrderRequest{
		MarketID:   alert.Opportunity.Market.ID,
		TokenID:    l.tokenID,
		Side:       l.side,
		Amount:     l.amount,
		LimitPrice: l.price + slippageBuffer,
	})
	trade.UpdatedAt = time.Now().UTC()
	if err != nil {
		trade.Status = domain.TradeFailed
		trade.Error = err.Error()
		e.logger.WarnContext(ctx, "order submission failed",
			slog.String("alert_id", alert.ID),
			slog.String("side", string(l.side)),
			slog.String("error", err.Error()),
		)
		e.persist(ctx, trade, false)
		return trade
	}

	trade.SubmissionID = result.SubmissionID
	trade.Status = result.Status
	trade.FillAmount = result.FillAmount
	trade.AvgFillPrice = result.AvgFillPrice
	if !result.Success {
		trade.Status = domain.TradeFailed
		trade.Error = result.Message
	}
	e.logger.InfoContext(ctx, "order submitted",
		slog.String("alert_id", alert.ID),
		slog.String("side", string(l.side)),
		slog.String("status", string(trade.Status)),
		slog.Float64("amount_usd", l.amount),
	)
	e.persist(ctx, trade, false)
	return trade
}

func (e *Executor) persist(ctx context.Context, trade domain.Trade, create bool) {
	if e.trades == nil {
		return
	}
	var err error
	if create {
		err = e.trades.Create(ctx, trade)
	} else {
		err = e.trades.Update(ctx, trade)
	}
	if err != nil {
		e.logger.WarnContext(ctx, "failed to persist trade",
			slog.String("trade_id", trade.ID),
			slog.String("error", err.Error()),
		)
	}
}
