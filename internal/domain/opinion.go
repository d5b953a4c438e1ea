package domain

import "time"

// Sentiment classifies the social/news mood around a market question.
type Sentiment string

const (
	SentimentBullish Sentiment = "BULLISH"
	SentimentBearish Sentiment = "BEARISH"
	SentimentNeutral Sentiment = "NEUTRAL"
	SentimentMixed   Sentiment = "MIXED"
)

// SentimentOpinion is the structured result of the real-time sentiment
// service for one market. Confidence is expressed 0-100.
type SentimentOpinion struct {
	Sentiment  Sentiment
	Confidence float64
	Summary    string
	Trends     []string
	CapturedAt time.Time
}

// Recommendation is the risk service's verdict on an opportunity.
type Recommendation string

const (
	RecommendationStrongBuy Recommendation = "STRONG_BUY"
	RecommendationBuy       Recommendation = "BUY"
	RecommendationHold      Recommendation = "HOLD"
	RecommendationAvoid     Recommendation = "AVOID"
)

// RecommendationOpinion is the structured result of the risk/recommendation
// service for one opportunity. RiskScore runs 1 (safest) to 10 (riskiest).
type RecommendationOpinion struct {
	Recommendation Recommendation
	RiskScore      int
	GenuineArb     bool
	SuggestedSize  float64 // USD
	Reasoning      string
	ExitStrategy   string
	Concerns       []string
	CapturedAt     time.Time
}
