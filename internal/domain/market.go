package domain

import "time"

// Market represents a binary prediction market with two complementary
// outcomes. Prices are probabilities expressed on a 0-100 scale, as
// normalized by the platform layer from the provider's 0-1 representation.
type Market struct {
	ID        string
	Question  string
	Category  string
	EndDate   time.Time
	Volume24h float64
	Liquidity float64
	YesPrice  float64 // 0-100
	NoPrice   float64 // 0-100
	YesToken  string  // venue token ID for the Yes outcome
	NoToken   string  // venue token ID for the No outcome
	FetchedAt time.Time
}

// Spread returns 100 - (yesPrice + noPrice). Positive values mean the two
// outcomes are underpriced relative to certainty, which is the arbitrage
// signal; negative values mean the pair is overpriced.
func (m Market) Spread() float64 {
	return 100 - (m.YesPrice + m.NoPrice)
}

// CheaperSide returns the side with the lower outcome price. Ties go to Yes.
func (m Market) CheaperSide() Side {
	if m.NoPrice < m.YesPrice {
		return SideNo
	}
	return SideYes
}
