// Package notify delivers alert lifecycle events to operator channels.
// Events fan out to every registered sender and can be filtered by event
// type so an operator only hears about the transitions they care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/arbsentinel/internal/domain"
)

// Event types accepted by the config filter.
const (
	EventAlertCreated  = "alert.created"
	EventAlertResolved = "alert.resolved"
)

const sendTimeout = 10 * time.Second

// Sender is one notification channel.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a channel identifier such as "telegram".
	Name() string
}

// Notifier dispatches alert events to its senders. Delivery is asynchronous
// so the alert coordinator never blocks on a slow webhook.
type Notifier struct {
	senders []Sender
	events  map[string]bool // allowed event types; empty allows all
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. If events
// is non-empty, only the listed event types are forwarded.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// AlertCreated announces a new alert awaiting approval.
func (n *Notifier) AlertCreated(ctx context.Context, alert domain.TradingAlert) {
	title := fmt.Sprintf("Arbitrage alert: %s", alert.Opportunity.Market.Question)
	message := fmt.Sprintf(
		"Spread %.1f%% | side %s | est. profit $%.2f\nRecommendation: %s (risk %d/10)\nSentiment: %s (%.0f%% confidence)\nAlert ID: %s",
		alert.Opportunity.SpreadPercent,
		alert.Opportunity.RecommendedSide,
		alert.Opportunity.ExpectedProfit,
		alert.Recommendation.Recommendation,
		alert.Recommendation.RiskScore,
		alert.Sentiment.Sentiment,
		alert.Sentiment.Confidence,
		alert.ID,
	)
	n.notify(ctx, EventAlertCreated, title, message)
}

// AlertResolved announces a terminal alert transition.
func (n *Notifier) AlertResolved(ctx context.Context, alert domain.TradingAlert) {
	title := fmt.Sprintf("Alert %s: %s", strings.ToLower(string(alert.Status)), alert.Opportunity.Market.Question)
	message := fmt.Sprintf("Status: %s\nAlert ID: %s", alert.Status, alert.ID)
	if alert.Reason != "" {
		message += "\nReason: " + alert.Reason
	}
	n.notify(ctx, EventAlertResolved, title, message)
}

// notify applies the event filter and dispatches in the background. The send
// context is detached from the caller so a finishing poll cycle does not
// cancel an in-flight webhook call.
func (n *Notifier) notify(ctx context.Context, event, title, message string) {
	if len(n.senders) == 0 {
		return
	}
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return
	}

	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
		defer cancel()
		n.dispatch(sendCtx, title, message)
	}()
}

func (n *Notifier) dispatch(ctx context.Context, title, message string) {
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
}
