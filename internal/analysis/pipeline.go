package analysis

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbsentinel/internal/domain"
)

// SentimentProvider produces a sentiment read for one market question.
type SentimentProvider interface {
	Analyze(ctx context.Context, question string, yesPrice, noPrice float64) (domain.SentimentOpinion, error)
}

// RecommendationProvider produces a trade recommendation for one opportunity.
type RecommendationProvider interface {
	Analyze(ctx context.Context, question string, yesPrice, noPrice, spread float64) (domain.RecommendationOpinion, error)
}

// Analyzed pairs an opportunity with both opinions. An opportunity only
// becomes an Analyzed result when both providers answered; a failure of
// either one drops the opportunity from the cycle rather than producing a
// half-analyzed signal.
type Analyzed struct {
	Opportunity    domain.ArbitrageOpportunity
	Sentiment      domain.SentimentOpinion
	Recommendation domain.RecommendationOpinion
}

// Analyzer runs the two opinion providers over scanned opportunities,
// throttled so repeated cycles do not hammer the upstream APIs.
type Analyzer struct {
	sentiment      SentimentProvider
	recommendation RecommendationProvider
	limiter        domain.RateLimiter
	logger         *slog.Logger
}

// limiter key shared by both providers; they are throttled as one budget
// because each opportunity costs exactly one call to each.
const limiterKey = "analysis"

func NewAnalyzer(sentiment SentimentProvider, recommendation RecommendationProvider, limiter domain.RateLimiter, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		sentiment:      sentiment,
		recommendation: recommendation,
		limiter:        limiter,
		logger:         logger.With(slog.String("component", "analyzer")),
	}
}

// AnalyzeAll evaluates each opportunity in order. The two provider calls for
// one opportunity run concurrently; consecutive opportunities are spaced by
// the rate limiter. Provider failures skip the opportunity and continue; the
// only error returned is ctx cancellation.
func (a *Analyzer) AnalyzeAll(ctx context.Context, opportunities []domain.ArbitrageOpportunity) ([]Analyzed, error) {
	results := make([]Analyzed, 0, len(opportunities))

	for _, opp := range opportunities {
		if err := a.limiter.Wait(ctx, limiterKey); err != nil {
			return results, err
		}

		analyzed, err := a.analyzeOne(ctx, opp)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			a.logger.WarnContext(ctx, "skipping opportunity, analysis unavailable",
				slog.String("market_id", opp.Market.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		a.logger.InfoContext(ctx, "opportunity analyzed",
			slog.String("market_id", opp.Market.ID),
			slog.String("sentiment", string(analyzed.Sentiment.Sentiment)),
			slog.String("recommendation", string(analyzed.Recommendation.Recommendation)),
			slog.Int("risk_score", analyzed.Recommendation.RiskScore),
		)
		results = append(results, analyzed)
	}

	return results, nil
}

func (a *Analyzer) analyzeOne(ctx context.Context, opp domain.ArbitrageOpportunity) (Analyzed, error) {
	var (
		sentiment      domain.SentimentOpinion
		recommendation domain.RecommendationOpinion
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sentiment, err = a.sentiment.Analyze(gctx, opp.Market.Question, opp.Market.YesPrice, opp.Market.NoPrice)
		return err
	})
	g.Go(func() error {
		var err error
		recommendation, err = a.recommendation.Analyze(gctx,
			opp.Market.Question, opp.Market.YesPrice, opp.Market.NoPrice, opp.SpreadPercent)
		return err
	})
	if err := g.Wait(); err != nil {
		return Analyzed{}, err
	}

	return Analyzed{
		Opportunity:    opp,
		Sentiment:      sentiment,
		Recommendation: recommendation,
	}, nil
}
