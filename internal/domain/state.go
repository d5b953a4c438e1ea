package domain

import "time"

// BotState is the process-wide aggregate published after every poll cycle.
// It has a single writer (the orchestrator loop) and any number of external
// readers. The snapshot is complete and self-describing: a fresh reader can
// reconstruct full state from one read.
type BotState struct {
	Running       bool           `json:"running"`
	Mode          string         `json:"mode"`
	LastCheck     time.Time      `json:"last_check"`
	CycleCount    int64          `json:"cycle_count"`
	AlertsCreated int64          `json:"alerts_created"`
	TradesPlaced  int64          `json:"trades_placed"`
	Positions     []Position     `json:"positions"`
	// PendingAlerts holds every non-terminal alert, PENDING and APPROVED
	// alike, until it resolves.
	PendingAlerts []TradingAlert `json:"pending_alerts"`
	RecentTrades  []Trade        `json:"recent_trades"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Clone returns a deep copy so the writer can keep mutating its working
// state after handing a snapshot to readers.
func (s BotState) Clone() BotState {
	out := s
	out.Positions = append([]Position(nil), s.Positions...)
	out.PendingAlerts = append([]TradingAlert(nil), s.PendingAlerts...)
	out.RecentTrades = append([]Trade(nil), s.RecentTrades...)
	return out
}
