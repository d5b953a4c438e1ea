package analysis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbsentinel/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubSentiment struct {
	errFor map[string]error
	calls  int
}

func (s *stubSentiment) Analyze(_ context.Context, question string, _, _ float64) (domain.SentimentOpinion, error) {
	s.calls++
	if err := s.errFor[question]; err != nil {
		return domain.SentimentOpinion{}, err
	}
	return domain.SentimentOpinion{
		Sentiment:  domain.SentimentBullish,
		Confidence: 70,
		Summary:    "looks likely",
	}, nil
}

type stubRecommendation struct {
	errFor map[string]error
	calls  int
}

func (s *stubRecommendation) Analyze(_ context.Context, question string, _, _, _ float64) (domain.RecommendationOpinion, error) {
	s.calls++
	if err := s.errFor[question]; err != nil {
		return domain.RecommendationOpinion{}, err
	}
	return domain.RecommendationOpinion{
		Recommendation: domain.RecommendationBuy,
		RiskScore:      3,
	}, nil
}

type countingLimiter struct {
	waits int
	err   error
}

func (l *countingLimiter) Wait(_ context.Context, _ string) error {
	l.waits++
	return l.err
}

func opportunities(questions ...string) []domain.ArbitrageOpportunity {
	opps := make([]domain.ArbitrageOpportunity, 0, len(questions))
	for _, q := range questions {
		opps = append(opps, domain.ArbitrageOpportunity{
			Market: domain.Market{
				ID:       q,
				Question: q,
				Category: "politics",
				YesPrice: 40,
				NoPrice:  45,
			},
			SpreadPercent: 15,
		})
	}
	return opps
}

func TestAnalyzeAll_AnalyzesInOrder(t *testing.T) {
	sentiment := &stubSentiment{}
	recommendation := &stubRecommendation{}
	limiter := &countingLimiter{}
	a := NewAnalyzer(sentiment, recommendation, limiter, testLogger())

	results, err := a.AnalyzeAll(context.Background(), opportunities("q1", "q2", "q3"))

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "q1", results[0].Opportunity.Market.ID)
	assert.Equal(t, "q3", results[2].Opportunity.Market.ID)
	assert.Equal(t, domain.SentimentBullish, results[0].Sentiment.Sentiment)
	assert.Equal(t, domain.RecommendationBuy, results[0].Recommendation.Recommendation)
	assert.Equal(t, 3, limiter.waits, "one limiter wait per opportunity")
	assert.Equal(t, 3, sentiment.calls)
	assert.Equal(t, 3, recommendation.calls)
}

func TestAnalyzeAll_ProviderFailureSkipsOpportunity(t *testing.T) {
	sentiment := &stubSentiment{
		errFor: map[string]error{"q2": domain.ErrAnalysisUnavailable},
	}
	a := NewAnalyzer(sentiment, &stubRecommendation{}, &countingLimiter{}, testLogger())

	results, err := a.AnalyzeAll(context.Background(), opportunities("q1", "q2", "q3"))

	require.NoError(t, err, "a provider failure degrades, it does not abort the cycle")
	require.Len(t, results, 2)
	assert.Equal(t, "q1", results[0].Opportunity.Market.ID)
	assert.Equal(t, "q3", results[1].Opportunity.Market.ID)
}

func TestAnalyzeAll_RecommendationFailureSkips(t *testing.T) {
	recommendation := &stubRecommendation{
		errFor: map[string]error{"q1": errors.New("upstream timeout")},
	}
	a := NewAnalyzer(&stubSentiment{}, recommendation, &countingLimiter{}, testLogger())

	results, err := a.AnalyzeAll(context.Background(), opportunities("q1"))

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAnalyzeAll_CancellationStopsEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	limiter := &countingLimiter{err: ctx.Err()}
	a := NewAnalyzer(&stubSentiment{}, &stubRecommendation{}, limiter, testLogger())

	results, err := a.AnalyzeAll(ctx, opportunities("q1", "q2"))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
	assert.Equal(t, 1, limiter.waits)
}

func TestAnalyzeAll_Empty(t *testing.T) {
	limiter := &countingLimiter{}
	a := NewAnalyzer(&stubSentiment{}, &stubRecommendation{}, limiter, testLogger())

	results, err := a.AnalyzeAll(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, limiter.waits)
}
