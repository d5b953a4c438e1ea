package polymarket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbsentinel/internal/domain"
)

const marketsPayload = `[
	{
		"id": "m1",
		"question": "Will it rain tomorrow?",
		"category": "Weather",
		"active": true,
		"closed": false,
		"outcomePrices": "[\"0.44\", \"0.46\"]",
		"clobTokenIds": "[\"tok-yes-1\", \"tok-no-1\"]",
		"volume24hr": "12500.5",
		"liquidity": "8000"
	},
	{
		"id": "m2",
		"question": "Closed market",
		"category": "politics",
		"active": true,
		"closed": true,
		"outcomePrices": "[\"0.50\", \"0.50\"]",
		"clobTokenIds": "[\"tok-yes-2\", \"tok-no-2\"]"
	},
	{
		"id": "m3",
		"question": "Inactive market",
		"category": "politics",
		"active": "false",
		"closed": false,
		"outcomePrices": "[\"0.50\", \"0.50\"]",
		"clobTokenIds": "[\"tok-yes-3\", \"tok-no-3\"]"
	},
	{
		"id": "m4",
		"question": "Will the bill pass?",
		"category": "Politics",
		"active": "true",
		"closed": false,
		"outcomePrices": "[\"0.30\", \"0.60\"]",
		"clobTokenIds": "[\"tok-yes-4\", \"tok-no-4\"]",
		"volume24hr": 99000,
		"liquidity": 15000
	}
]`

func newGammaTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetActiveMarkets_NormalizesAndFilters(t *testing.T) {
	srv := newGammaTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("active"))
		assert.Equal(t, "false", r.URL.Query().Get("closed"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		w.Write([]byte(marketsPayload))
	})

	client := NewGammaClient(srv.URL, 5*time.Second, RetryPolicy{}, nil)
	markets, err := client.GetActiveMarkets(context.Background(), 25)

	require.NoError(t, err)
	require.Len(t, markets, 2, "closed and inactive markets are dropped")

	m := markets[0]
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, "weather", m.Category)
	assert.InDelta(t, 44, m.YesPrice, 1e-9)
	assert.InDelta(t, 46, m.NoPrice, 1e-9)
	assert.Equal(t, "tok-yes-1", m.YesToken)
	assert.Equal(t, "tok-no-1", m.NoToken)
	assert.InDelta(t, 12500.5, m.Volume24h, 1e-9)
	assert.InDelta(t, 8000, m.Liquidity, 1e-9)

	assert.Equal(t, "m4", markets[1].ID)
	assert.InDelta(t, 30, markets[1].YesPrice, 1e-9)
}

func TestGetActiveMarkets_CategoryAllowList(t *testing.T) {
	srv := newGammaTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(marketsPayload))
	})

	client := NewGammaClient(srv.URL, 5*time.Second, RetryPolicy{}, []string{"politics"})
	markets, err := client.GetActiveMarkets(context.Background(), 25)

	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, "m4", markets[0].ID)
}

func TestGetActiveMarkets_AllowListIgnoresCase(t *testing.T) {
	srv := newGammaTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(marketsPayload))
	})

	// Operator entries match the normalized category whatever their casing.
	client := NewGammaClient(srv.URL, 5*time.Second, RetryPolicy{}, []string{" Politics "})
	markets, err := client.GetActiveMarkets(context.Background(), 25)

	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, "m4", markets[0].ID)
}

func TestGetActiveMarkets_AllDisablesFilter(t *testing.T) {
	srv := newGammaTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(marketsPayload))
	})

	client := NewGammaClient(srv.URL, 5*time.Second, RetryPolicy{}, []string{"politics", "all"})
	markets, err := client.GetActiveMarkets(context.Background(), 25)

	require.NoError(t, err)
	assert.Len(t, markets, 2)
}

func TestGetActiveMarkets_ServerErrorRetriesThenFails(t *testing.T) {
	var calls atomic.Int64
	srv := newGammaTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	client := NewGammaClient(srv.URL, 5*time.Second, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}, nil)
	_, err := client.GetActiveMarkets(context.Background(), 25)

	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Equal(t, int64(3), calls.Load())
}

func TestGetMarket_ByID(t *testing.T) {
	srv := newGammaTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/m1", r.URL.Path)
		w.Write([]byte(`{
			"id": "m1",
			"question": "Will it rain tomorrow?",
			"active": true,
			"closed": false,
			"outcomePrices": "[\"0.44\", \"0.46\"]",
			"clobTokenIds": "[\"tok-yes-1\", \"tok-no-1\"]"
		}`))
	})

	client := NewGammaClient(srv.URL, 5*time.Second, RetryPolicy{}, nil)
	m, err := client.GetMarket(context.Background(), "m1")

	require.NoError(t, err)
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, "general", m.Category, "missing category defaults")
	assert.InDelta(t, 44, m.YesPrice, 1e-9)
}

func TestGetMarket_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int64
	srv := newGammaTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	client := NewGammaClient(srv.URL, 5*time.Second, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}, nil)
	_, err := client.GetMarket(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int64(1), calls.Load())
}

func TestGetActiveMarkets_MalformedBody(t *testing.T) {
	srv := newGammaTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"not": "an array"}`))
	})

	client := NewGammaClient(srv.URL, 5*time.Second, RetryPolicy{}, nil)
	_, err := client.GetActiveMarkets(context.Background(), 25)

	assert.Error(t, err)
}
