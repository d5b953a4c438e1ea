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

// ClaudeClient requests trade recommendations from the Anthropic messages
// API.
type ClaudeClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

var _ RecommendationProvider = (*ClaudeClient)(nil)

// NewClaudeClient creates a recommendation client. baseURL is the API root,
// e.g. "https://api.anthropic.com".
func NewClaudeClient(baseURL, apiKey, model string, timeout time.Duration) *ClaudeClient {
	return &ClaudeClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

const claudeSystemPrompt = `You are a prediction-market risk analyst evaluating arbitrage candidates.
Respond with a single JSON object and nothing else:
{"recommendation":"STRONG_BUY|BUY|HOLD|AVOID","risk_score":1-10,"genuine_arb":true|false,"suggested_size":USD,"reasoning":"...","exit_strategy":"...","concerns":["...",...]}`

type claudeMessageRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system"`
	Messages  []chatMessage `json:"messages"`
}

type claudeMessageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type claudeOpinion struct {
	Recommendation string   `json:"recommendation"`
	RiskScore      int      `json:"risk_score"`
	GenuineArb     bool     `json:"genuine_arb"`
	SuggestedSize  float64  `json:"suggested_size"`
	Reasoning      string   `json:"reasoning"`
	ExitStrategy   string   `json:"exit_strategy"`
	Concerns       []string `json:"concerns"`
}

// Analyze requests a recommendation for the given opportunity. Failures map
// to domain.ErrAnalysisUnavailable.
func (c *ClaudeClient) Analyze(ctx context.Context, question string, yesPrice, noPrice, spread float64) (domain.RecommendationOpinion, error) {
	prompt := fmt.Sprintf(
		"Market question: %s\nYES price: %.1f%%\nNO price: %.1f%%\nCombined spread: %.1f%%\nIs this a genuine arbitrage opportunity and how should it be traded?",
		question, yesPrice, noPrice, spread,
	)

	payload := claudeMessageRequest{
		Model:     c.model,
		MaxTokens: 1024,
		System:    claudeSystemPrompt,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.RecommendationOpinion{}, fmt.Errorf("analysis/claude: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return domain.RecommendationOpinion{}, fmt.Errorf("analysis/claude: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.RecommendationOpinion{}, fmt.Errorf("analysis/claude: %w: %v", domain.ErrAnalysisUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.RecommendationOpinion{}, fmt.Errorf("analysis/claude: %w: status %d: %s",
			domain.ErrAnalysisUnavailable, resp.StatusCode, string(respBody))
	}

	var message claudeMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&message); err != nil {
		return domain.RecommendationOpinion{}, fmt.Errorf("analysis/claude: %w: decode response: %v", domain.ErrAnalysisUnavailable, err)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return domain.RecommendationOpinion{}, fmt.Errorf("analysis/claude: %w: empty message", domain.ErrAnalysisUnavailable)
	}

	var opinion claudeOpinion
	if err := json.Unmarshal([]byte(extractJSON(text)), &opinion); err != nil {
		return domain.RecommendationOpinion{}, fmt.Errorf("analysis/claude: %w: parse opinion: %v", domain.ErrAnalysisUnavailable, err)
	}

	riskScore := opinion.RiskScore
	if riskScore < 1 {
		riskScore = 1
	} else if riskScore > 10 {
		riskScore = 10
	}

	return domain.RecommendationOpinion{
		Recommendation: normalizeRecommendation(opinion.Recommendation),
		RiskScore:      riskScore,
		GenuineArb:     opinion.GenuineArb,
		SuggestedSize:  opinion.SuggestedSize,
		Reasoning:      opinion.Reasoning,
		ExitStrategy:   opinion.ExitStrategy,
		Concerns:       opinion.Concerns,
		CapturedAt:     time.Now().UTC(),
	}, nil
}

// normalizeRecommendation maps free-form model output onto the closed enum.
// Anything unrecognized is treated as AVOID: an answer we cannot parse is
// not an answer to trade on.
func normalizeRecommendation(s string) domain.Recommendation {
	switch domain.Recommendation(strings.ToUpper(strings.TrimSpace(s))) {
	case domain.RecommendationStrongBuy:
		return domain.RecommendationStrongBuy
	case domain.RecommendationBuy:
		return domain.RecommendationBuy
	case domain.RecommendationHold:
		return domain.RecommendationHold
	default:
		return domain.RecommendationAvoid
	}
}
