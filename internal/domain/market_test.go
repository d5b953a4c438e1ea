package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMarket_Spread(t *testing.T) {
	assert.InDelta(t, 10, Market{YesPrice: 44, NoPrice: 46}.Spread(), 1e-9)
	assert.InDelta(t, 0, Market{YesPrice: 50, NoPrice: 50}.Spread(), 1e-9)
	assert.InDelta(t, -4, Market{YesPrice: 52, NoPrice: 52}.Spread(), 1e-9)
}

func TestMarket_CheaperSide(t *testing.T) {
	assert.Equal(t, SideYes, Market{YesPrice: 40, NoPrice: 45}.CheaperSide())
	assert.Equal(t, SideNo, Market{YesPrice: 45, NoPrice: 40}.CheaperSide())
	assert.Equal(t, SideYes, Market{YesPrice: 45, NoPrice: 45}.CheaperSide(), "ties go to YES")
}

func TestAlertStatus_CanTransition(t *testing.T) {
	cases := []struct {
		from, to AlertStatus
		want     bool
	}{
		{AlertPending, AlertApproved, true},
		{AlertPending, AlertRejected, true},
		{AlertPending, AlertExecuted, false},
		{AlertApproved, AlertExecuted, true},
		{AlertApproved, AlertFailed, true},
		{AlertApproved, AlertRejected, false},
		{AlertRejected, AlertApproved, false},
		{AlertExecuted, AlertFailed, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestAlertStatus_Terminal(t *testing.T) {
	assert.False(t, AlertPending.Terminal())
	assert.False(t, AlertApproved.Terminal())
	assert.True(t, AlertRejected.Terminal())
	assert.True(t, AlertExecuted.Terminal())
	assert.True(t, AlertFailed.Terminal())
}

func TestPositionFromTrade(t *testing.T) {
	trade := Trade{
		MarketID:     "mkt-1",
		Side:         SideYes,
		Amount:       100,
		Price:        44,
		FillAmount:   100,
		AvgFillPrice: 45,
	}

	p := PositionFromTrade(trade, 50)

	assert.InDelta(t, 45, p.EntryPrice, 1e-9)
	assert.InDelta(t, 50, p.CurrentPrice, 1e-9)
	// qty = 100/45; pnl = qty * 5
	assert.InDelta(t, 100.0/45.0*5.0, p.PnL, 1e-9)
	assert.InDelta(t, 5.0/45.0*100, p.PnLPercent, 1e-9)
}

func TestPositionFromTrade_FallsBackToOrderValues(t *testing.T) {
	trade := Trade{Side: SideNo, Amount: 100, Price: 40}

	p := PositionFromTrade(trade, 40)

	assert.InDelta(t, 100, p.Amount, 1e-9)
	assert.InDelta(t, 40, p.EntryPrice, 1e-9)
	assert.Zero(t, p.PnL)
}

func TestBotState_CloneIsDeep(t *testing.T) {
	st := BotState{
		Running:       true,
		PendingAlerts: []TradingAlert{{ID: "a1"}},
		RecentTrades:  []Trade{{ID: "t1"}},
		Positions:     []Position{{MarketID: "m1"}},
		UpdatedAt:     time.Now(),
	}

	clone := st.Clone()
	clone.PendingAlerts[0].ID = "mutated"
	clone.RecentTrades[0].ID = "mutated"
	clone.Positions[0].MarketID = "mutated"

	assert.Equal(t, "a1", st.PendingAlerts[0].ID)
	assert.Equal(t, "t1", st.RecentTrades[0].ID)
	assert.Equal(t, "m1", st.Positions[0].MarketID)
}
