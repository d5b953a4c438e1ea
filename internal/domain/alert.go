package domain

import "time"

// AlertStatus is the state machine position of a TradingAlert.
//
//	PENDING  -> APPROVED | REJECTED
//	APPROVED -> EXECUTED | FAILED
//
// REJECTED, EXECUTED, and FAILED are terminal.
type AlertStatus string

const (
	AlertPending  AlertStatus = "PENDING"
	AlertApproved AlertStatus = "APPROVED"
	AlertRejected AlertStatus = "REJECTED"
	AlertExecuted AlertStatus = "EXECUTED"
	AlertFailed   AlertStatus = "FAILED"
)

// Terminal reports whether no further transitions are valid from s.
func (s AlertStatus) Terminal() bool {
	switch s {
	case AlertRejected, AlertExecuted, AlertFailed:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is a legal state
// machine step.
func (s AlertStatus) CanTransition(next AlertStatus) bool {
	switch s {
	case AlertPending:
		return next == AlertApproved || next == AlertRejected
	case AlertApproved:
		return next == AlertExecuted || next == AlertFailed
	}
	return false
}

// TradingAlert bundles an opportunity with both analysis opinions and tracks
// the approval state machine. The coordinator owns the alert for its
// lifetime; the executor and state store see read-only copies.
type TradingAlert struct {
	ID             string
	Opportunity    ArbitrageOpportunity
	Sentiment      SentimentOpinion
	Recommendation RecommendationOpinion
	Status         AlertStatus
	Reason         string // populated on terminal transitions (reject/failure cause)
	CreatedAt      time.Time
	ResolvedAt     *time.Time
}
