package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbsentinel/internal/domain"
	"github.com/alanyoungcy/arbsentinel/internal/platform/polymarket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeVenue returns a canned result per token ID and records requests.
type fakeVenue struct {
	requests []polymarket.OrderRequest
	results  map[string]domain.OrderResult
	errs     map[string]error
}

func (v *fakeVenue) SubmitOrder(_ context.Context, req polymarket.OrderRequest) (domain.OrderResult, error) {
	v.requests = append(v.requests, req)
	if err := v.errs[req.TokenID]; err != nil {
		return domain.OrderResult{}, err
	}
	if res, ok := v.results[req.TokenID]; ok {
		return res, nil
	}
	return domain.OrderResult{
		Success:      true,
		SubmissionID: "sub-" + req.TokenID,
		Status:       domain.TradeFilled,
		FillAmount:   req.Amount,
		AvgFillPrice: req.LimitPrice,
	}, nil
}

func testAlert(status domain.AlertStatus, side domain.Side) domain.TradingAlert {
	return domain.TradingAlert{
		ID:     "alert-1",
		Status: status,
		Recommendation: domain.RecommendationOpinion{
			Recommendation: domain.RecommendationBuy,
			RiskScore:      3,
			GenuineArb:     side == domain.SideBoth,
		},
		Opportunity: domain.ArbitrageOpportunity{
			Market: domain.Market{
				ID:       "mkt-1",
				Question: "Will the launch happen this quarter?",
				YesPrice: 44,
				NoPrice:  46,
				YesToken: "tok-yes",
				NoToken:  "tok-no",
			},
			SpreadPercent:   10,
			RecommendedSide: side,
		},
	}
}

func newTestExecutor(venue Venue) *Executor {
	return New(Config{PositionSizeUSD: 100, StrongConfidence: 70}, venue, nil, testLogger())
}

func TestExecute_RefusesPending(t *testing.T) {
	e := newTestExecutor(&fakeVenue{})

	_, err := e.Execute(context.Background(), testAlert(domain.AlertPending, domain.SideBoth))
	assert.ErrorIs(t, err, domain.ErrApprovalRequired)
}

func TestExecute_RefusesTerminalStatuses(t *testing.T) {
	e := newTestExecutor(&fakeVenue{})

	for _, status := range []domain.AlertStatus{domain.AlertRejected, domain.AlertExecuted, domain.AlertFailed} {
		_, err := e.Execute(context.Background(), testAlert(status, domain.SideBoth))
		assert.ErrorIs(t, err, domain.ErrNotApproved, "status %s", status)
	}
}

func TestExecute_TwoSidedSplitsEvenly(t *testing.T) {
	venue := &fakeVenue{}
	e := newTestExecutor(venue)

	trades, err := e.Execute(context.Background(), testAlert(domain.AlertApproved, domain.SideBoth))

	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, domain.SideYes, trades[0].Side)
	assert.Equal(t, domain.SideNo, trades[1].Side)
	assert.InDelta(t, 50, trades[0].Amount, 1e-9)
	assert.InDelta(t, 50, trades[1].Amount, 1e-9)
	assert.Equal(t, domain.TradeFilled, trades[0].Status)
	assert.Equal(t, domain.TradeFilled, trades[1].Status)

	require.Len(t, venue.requests, 2)
	assert.Equal(t, "tok-yes", venue.requests[0].TokenID)
	assert.Equal(t, "tok-no", venue.requests[1].TokenID)
}

func TestExecute_AsymmetricFillSurfaced(t *testing.T) {
	venue := &fakeVenue{
		errs: map[string]error{"tok-no": errors.New("insufficient liquidity")},
	}
	e := newTestExecutor(venue)

	trades, err := e.Execute(context.Background(), testAlert(domain.AlertApproved, domain.SideBoth))

	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, domain.TradeFilled, trades[0].Status)
	assert.Equal(t, domain.TradeFailed, trades[1].Status)
	assert.Contains(t, trades[1].Error, "insufficient liquidity")
}

func TestExecute_UnconfirmedTwoSidedBuysCheaperOutcome(t *testing.T) {
	venue := &fakeVenue{}
	e := newTestExecutor(venue)

	alert := testAlert(domain.AlertApproved, domain.SideBoth)
	alert.Recommendation.GenuineArb = false

	trades, err := e.Execute(context.Background(), alert)

	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, domain.SideYes, trades[0].Side, "YES is the cheaper outcome at 44 vs 46")
	assert.InDelta(t, 100, trades[0].Amount, 1e-9)
}

func TestExecute_StrongSentimentPicksDirection(t *testing.T) {
	venue := &fakeVenue{}
	e := newTestExecutor(venue)

	// Cheaper side is YES, but a strong bearish read flips the leg to NO.
	alert := testAlert(domain.AlertApproved, domain.SideYes)
	alert.Sentiment = domain.SentimentOpinion{
		Sentiment:  domain.SentimentBearish,
		Confidence: 85,
	}

	trades, err := e.Execute(context.Background(), alert)

	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, domain.SideNo, trades[0].Side)
	assert.InDelta(t, 100, trades[0].Amount, 1e-9)
}

func TestExecute_WeakSentimentKeepsRecommendedSide(t *testing.T) {
	venue := &fakeVenue{}
	e := newTestExecutor(venue)

	alert := testAlert(domain.AlertApproved, domain.SideYes)
	alert.Sentiment = domain.SentimentOpinion{
		Sentiment:  domain.SentimentBearish,
		Confidence: 40,
	}

	trades, err := e.Execute(context.Background(), alert)

	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, domain.SideYes, trades[0].Side)
}

func TestExecute_VenueRejectRecordedOnTrade(t *testing.T) {
	venue := &fakeVenue{
		results: map[string]domain.OrderResult{
			"tok-yes": {Success: false, Status: domain.TradeFailed, Message: "price moved"},
		},
	}
	e := newTestExecutor(venue)

	trades, err := e.Execute(context.Background(), testAlert(domain.AlertApproved, domain.SideYes))

	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, domain.TradeFailed, trades[0].Status)
	assert.Equal(t, "price moved", trades[0].Error)
}

func TestExecute_LimitIncludesSlippageBuffer(t *testing.T) {
	venue := &fakeVenue{}
	e := newTestExecutor(venue)

	_, err := e.Execute(context.Background(), testAlert(domain.AlertApproved, domain.SideYes))

	require.NoError(t, err)
	require.Len(t, venue.requests, 1)
	assert.InDelta(t, 45, venue.requests[0].LimitPrice, 1e-9) // 44 + buffer
}
