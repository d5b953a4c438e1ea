package domain

import "time"

// Position is a read-only projection over filled trades. It is recomputed on
// demand and never independently mutated.
type Position struct {
	MarketID       string
	MarketQuestion string
	Side           Side
	Amount         float64
	EntryPrice     float64
	CurrentPrice   float64
	PnL            float64
	PnLPercent     float64
	OpenedAt       time.Time
}

// PositionFromTrade projects a filled trade into a position valued at
// currentPrice. Prices are on the 0-100 scale; amount is the USD notional
// spent, so quantity is amount/entry and P&L scales with the price move.
func PositionFromTrade(t Trade, currentPrice float64) Position {
	p := Position{
		MarketID:       t.MarketID,
		MarketQuestion: t.MarketQuestion,
		Side:           t.Side,
		Amount:         t.FillAmount,
		EntryPrice:     t.AvgFillPrice,
		CurrentPrice:   currentPrice,
		OpenedAt:       t.CreatedAt,
	}
	if p.Amount == 0 {
		p.Amount = t.Amount
	}
	if p.EntryPrice == 0 {
		p.EntryPrice = t.Price
	}
	if p.EntryPrice > 0 {
		qty := p.Amount / p.EntryPrice
		p.PnL = qty * (p.CurrentPrice - p.EntryPrice)
		p.PnLPercent = (p.CurrentPrice - p.EntryPrice) / p.EntryPrice * 100
	}
	return p
}
