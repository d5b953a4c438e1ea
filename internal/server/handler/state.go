package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/arbsentinel/internal/domain"
)

// StateReader serves the last committed bot snapshot.
type StateReader interface {
	Snapshot() (domain.BotState, bool)
}

// StateHandler exposes the published bot state.
type StateHandler struct {
	states StateReader
	logger *slog.Logger
}

func NewStateHandler(states StateReader, logger *slog.Logger) *StateHandler {
	return &StateHandler{states: states, logger: logger}
}

// GetState returns the last committed snapshot.
// GET /api/state
func (h *StateHandler) GetState(w http.ResponseWriter, r *http.Request) {
	st, ok := h.states.Snapshot()
	if !ok {
		writeError(w, http.StatusNotFound, "no state committed yet")
		return
	}
	writeJSON(w, http.StatusOK, st)
}
