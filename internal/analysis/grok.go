// Package analysis integrates the two external opinion services: a
// real-time social sentiment signal and a risk/recommendation signal. Both
// are treated as unreliable and optional per call; a failed call degrades
// the affected opportunity, never the batch.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/arbsentinel/internal/domain"
)

// GrokClient requests sentiment opinions from the xAI chat completion API.
type GrokClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

var _ SentimentProvider = (*GrokClient)(nil)

// NewGrokClient creates a sentiment client. baseURL is the API root, e.g.
// "https://api.x.ai".
func NewGrokClient(baseURL, apiKey, model string, timeout time.Duration) *GrokClient {
	return &GrokClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

const grokSystemPrompt = `You are a prediction-market sentiment analyst with access to real-time social data.
Respond with a single JSON object and nothing else:
{"sentiment":"BULLISH|BEARISH|NEUTRAL|MIXED","confidence":0-100,"summary":"one paragraph","trends":["tag",...]}`

// grokCompletionRequest is the chat completion payload.
type grokCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type grokCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// grokOpinion is the model's JSON answer.
type grokOpinion struct {
	Sentiment  string   `json:"sentiment"`
	Confidence float64  `json:"confidence"`
	Summary    string   `json:"summary"`
	Trends     []string `json:"trends"`
}

// Analyze requests a sentiment opinion for the given market question and
// its current prices. Failures map to domain.ErrAnalysisUnavailable.
func (g *GrokClient) Analyze(ctx context.Context, question string, yesPrice, noPrice float64) (domain.SentimentOpinion, error) {
	prompt := fmt.Sprintf(
		"Market question: %s\nCurrent YES price: %.1f%%\nCurrent NO price: %.1f%%\nWhat is the current sentiment around this question?",
		question, yesPrice, noPrice,
	)

	payload := grokCompletionRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: grokSystemPrompt},
			{Role: "user", Content: prompt},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.SentimentOpinion{}, fmt.Errorf("analysis/grok: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return domain.SentimentOpinion{}, fmt.Errorf("analysis/grok: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return domain.SentimentOpinion{}, fmt.Errorf("analysis/grok: %w: %v", domain.ErrAnalysisUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.SentimentOpinion{}, fmt.Errorf("analysis/grok: %w: status %d: %s",
			domain.ErrAnalysisUnavailable, resp.StatusCode, string(respBody))
	}

	var completion grokCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return domain.SentimentOpinion{}, fmt.Errorf("analysis/grok: %w: decode response: %v", domain.ErrAnalysisUnavailable, err)
	}
	if len(completion.Choices) == 0 {
		return domain.SentimentOpinion{}, fmt.Errorf("analysis/grok: %w: empty completion", domain.ErrAnalysisUnavailable)
	}

	var opinion grokOpinion
	if err := json.Unmarshal([]byte(extractJSON(completion.Choices[0].Message.Content)), &opinion); err != nil {
		return domain.SentimentOpinion{}, fmt.Errorf("analysis/grok: %w: parse opinion: %v", domain.ErrAnalysisUnavailable, err)
	}

	return domain.SentimentOpinion{
		Sentiment:  normalizeSentiment(opinion.Sentiment),
		Confidence: clamp(opinion.Confidence, 0, 100),
		Summary:    opinion.Summary,
		Trends:     opinion.Trends,
		CapturedAt: time.Now().UTC(),
	}, nil
}

// normalizeSentiment maps free-form model output onto the closed enum,
// defaulting to NEUTRAL for anything unrecognized.
func normalizeSentiment(s string) domain.Sentiment {
	switch domain.Sentiment(strings.ToUpper(strings.TrimSpace(s))) {
	case domain.SentimentBullish:
		return domain.SentimentBullish
	case domain.SentimentBearish:
		return domain.SentimentBearish
	case domain.SentimentMixed:
		return domain.SentimentMixed
	default:
		return domain.SentimentNeutral
	}
}

// extractJSON strips any prose around the first top-level JSON object in s.
// Models occasionally wrap the answer in markdown fences despite the prompt.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
