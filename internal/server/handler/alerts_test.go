package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbsentinel/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubCoordinator struct {
	pending      []domain.TradingAlert
	lastRejectID string
	lastReason   string
}

func (s *stubCoordinator) Pending() []domain.TradingAlert { return s.pending }

func (s *stubCoordinator) Approve(_ context.Context, id string) (domain.TradingAlert, error) {
	for _, a := range s.pending {
		if a.ID == id {
			a.Status = domain.AlertApproved
			return a, nil
		}
	}
	return domain.TradingAlert{}, domain.ErrNotFound
}

func (s *stubCoordinator) Reject(_ context.Context, id, reason string) (domain.TradingAlert, error) {
	s.lastRejectID = id
	s.lastReason = reason
	for _, a := range s.pending {
		if a.ID == id {
			a.Status = domain.AlertRejected
			a.Reason = reason
			return a, nil
		}
	}
	return domain.TradingAlert{}, domain.ErrNotFound
}

func newAlertsServer(t *testing.T, coord *stubCoordinator) *httptest.Server {
	t.Helper()
	h := NewAlertsHandler(coord, nil, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/alerts", h.ListPending)
	mux.HandleFunc("GET /api/alerts/history", h.ListHistory)
	mux.HandleFunc("POST /api/alerts/{id}/approve", h.Approve)
	mux.HandleFunc("POST /api/alerts/{id}/reject", h.Reject)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func TestListPending(t *testing.T) {
	coord := &stubCoordinator{pending: []domain.TradingAlert{
		{ID: "a1", Status: domain.AlertPending},
		{ID: "a2", Status: domain.AlertPending},
	}}
	srv := newAlertsServer(t, coord)

	resp, err := http.Get(srv.URL + "/api/alerts")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Count  int                   `json:"count"`
		Alerts []domain.TradingAlert `json:"alerts"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Alerts, 2)
	assert.Equal(t, "a1", body.Alerts[0].ID)
}

func TestApprove(t *testing.T) {
	coord := &stubCoordinator{pending: []domain.TradingAlert{{ID: "a1", Status: domain.AlertPending}}}
	srv := newAlertsServer(t, coord)

	resp, err := http.Post(srv.URL+"/api/alerts/a1/approve", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var alert domain.TradingAlert
	decodeBody(t, resp, &alert)
	assert.Equal(t, domain.AlertApproved, alert.Status)
}

func TestApprove_UnknownAlert(t *testing.T) {
	srv := newAlertsServer(t, &stubCoordinator{})

	resp, err := http.Post(srv.URL+"/api/alerts/nope/approve", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReject_WithReason(t *testing.T) {
	coord := &stubCoordinator{pending: []domain.TradingAlert{{ID: "a1", Status: domain.AlertPending}}}
	srv := newAlertsServer(t, coord)

	resp, err := http.Post(srv.URL+"/api/alerts/a1/reject", "application/json",
		strings.NewReader(`{"reason":"spread too thin"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var alert domain.TradingAlert
	decodeBody(t, resp, &alert)
	assert.Equal(t, domain.AlertRejected, alert.Status)
	assert.Equal(t, "spread too thin", coord.lastReason)
}

func TestReject_EmptyBodyGetsDefaultReason(t *testing.T) {
	coord := &stubCoordinator{pending: []domain.TradingAlert{{ID: "a1", Status: domain.AlertPending}}}
	srv := newAlertsServer(t, coord)

	resp, err := http.Post(srv.URL+"/api/alerts/a1/reject", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "rejected by operator", coord.lastReason)
}

func TestListHistory_NotConfigured(t *testing.T) {
	srv := newAlertsServer(t, &stubCoordinator{})

	resp, err := http.Get(srv.URL + "/api/alerts/history")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}
