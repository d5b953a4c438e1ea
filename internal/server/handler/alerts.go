package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/arbsentinel/internal/domain"
)

// Coordinator is the subset of the alert coordinator the API needs.
type Coordinator interface {
	Pending() []domain.TradingAlert
	Approve(ctx context.Context, id string) (domain.TradingAlert, error)
	Reject(ctx context.Context, id, reason string) (domain.TradingAlert, error)
}

// AlertsHandler serves the pending queue and the approval endpoints.
type AlertsHandler struct {
	coordinator Coordinator
	history     domain.AlertStore // nil when no history store is configured
	logger      *slog.Logger
}

func NewAlertsHandler(coordinator Coordinator, history domain.AlertStore, logger *slog.Logger) *AlertsHandler {
	return &AlertsHandler{coordinator: coordinator, history: history, logger: logger}
}

// ListPending returns the alerts awaiting a decision.
// GET /api/alerts
func (h *AlertsHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	alerts := h.coordinator.Pending()
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// ListHistory returns resolved alerts from the history store, newest first.
// GET /api/alerts/history
func (h *AlertsHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotImplemented, "alert history is not configured")
		return
	}
	alerts, err := h.history.ListRecent(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list alert history", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load alert history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// Approve approves a pending alert.
// POST /api/alerts/{id}/approve
func (h *AlertsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	alert, err := h.coordinator.Approve(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "alert not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "approve alert", slog.String("alert_id", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to approve alert")
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

// Reject rejects a pending alert with an optional reason in the body.
// POST /api/alerts/{id}/reject
func (h *AlertsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var body struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		// An empty or malformed body just means no reason was given.
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	if body.Reason == "" {
		body.Reason = "rejected by operator"
	}

	alert, err := h.coordinator.Reject(r.Context(), id, body.Reason)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "alert not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "reject alert", slog.String("alert_id", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to reject alert")
		return
	}
	writeJSON(w, http.StatusOK, alert)
}
