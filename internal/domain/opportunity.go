package domain

import "time"

// Side identifies which outcome(s) of a market a trade should take.
type Side string

const (
	SideYes  Side = "YES"
	SideNo   Side = "NO"
	SideBoth Side = "BOTH"
)

// ArbitrageOpportunity is a market whose combined outcome prices left a
// spread wide enough to act on. It is created by the scanner, is immutable,
// and is owned by the TradingAlert that wraps it.
type ArbitrageOpportunity struct {
	Market          Market
	SpreadPercent   float64
	ExpectedProfit  float64 // estimated profit in USD on the configured position size
	RecommendedSide Side
	DetectedAt      time.Time
}

// TwoSided reports whether the spread is wide enough that buying both
// outcomes is profitable after the two-sided threshold.
func (o ArbitrageOpportunity) TwoSided(threshold float64) bool {
	return o.SpreadPercent >= threshold
}
