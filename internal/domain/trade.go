package domain

import "time"

// TradeStatus tracks the trade lifecycle at the venue.
type TradeStatus string

const (
	TradePending   TradeStatus = "PENDING"
	TradeSubmitted TradeStatus = "SUBMITTED"
	TradeFilled    TradeStatus = "FILLED"
	TradeFailed    TradeStatus = "FAILED"
	TradeCancelled TradeStatus = "CANCELLED"
)

// Trade is one order leg submitted for an approved alert. Created and
// mutated only by the executor as venue responses arrive. MarketQuestion is
// denormalized so observers can render a trade without a market lookup.
type Trade struct {
	ID             string
	AlertID        string
	MarketID       string
	MarketQuestion string
	Side           Side // YES or NO, never BOTH; a two-leg arb produces two trades
	Amount         float64
	Price          float64
	Status         TradeStatus
	SubmissionID   string // venue-assigned order ID
	FillAmount     float64
	AvgFillPrice   float64
	Error          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrderResult is the venue's response to a single order submission.
type OrderResult struct {
	Success      bool
	SubmissionID string
	Status       TradeStatus
	FillAmount   float64
	AvgFillPrice float64
	Message      string
}
