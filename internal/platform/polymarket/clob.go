package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/arbsentinel/internal/crypto"
	"github.com/alanyoungcy/arbsentinel/internal/domain"
)

// OrderRequest describes a single order submission: buy amount USD of the
// given outcome token at up to limitPrice (0-100 scale).
type OrderRequest struct {
	MarketID   string
	TokenID    string
	Side       domain.Side
	Amount     float64
	LimitPrice float64
}

// ClobClient is the REST client for the Polymarket CLOB order API. It
// handles order submission and status lookups with HMAC authentication.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
	auth       *crypto.HMACAuth
	retry      RetryPolicy
}

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
func NewClobClient(baseURL string, auth *crypto.HMACAuth, timeout time.Duration, retry RetryPolicy) *ClobClient {
	return &ClobClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		auth:       auth,
		retry:      retry,
	}
}

// SubmitOrder places a market-priced buy order for the requested outcome and
// returns the venue's result. Venue rejections map to domain.ErrOrderRejected;
// transport failures to domain.ErrProviderUnavailable.
func (c *ClobClient) SubmitOrder(ctx context.Context, req OrderRequest) (domain.OrderResult, error) {
	payload := map[string]any{
		"market":    req.MarketID,
		"asset_id":  req.TokenID,
		"side":      "BUY",
		"size":      strconv.FormatFloat(req.Amount, 'f', 2, 64),
		"price":     strconv.FormatFloat(req.LimitPrice/100, 'f', 4, 64),
		"orderType": "FAK",
	}

	respBody, err := c.doAuthenticated(ctx, http.MethodPost, "/order", payload)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: post order: %w", err)
	}

	var apiResult APIOrderResult
	if err := json.Unmarshal(respBody, &apiResult); err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: decode order result: %w", err)
	}

	result := apiResult.ToDomainOrderResult()
	if !result.Success {
		return result, fmt.Errorf("polymarket/clob: %w: %s", domain.ErrOrderRejected, result.Message)
	}
	return result, nil
}

// GetOrderStatus retrieves the current venue status of a submitted order.
// Status reads are idempotent, so transport failures are retried under the
// configured policy; SubmitOrder is never retried here to avoid duplicate
// orders (re-submission is the next poll cycle's decision).
func (c *ClobClient) GetOrderStatus(ctx context.Context, submissionID string) (domain.OrderResult, error) {
	var respBody []byte
	err := c.retry.do(ctx, func() error {
		var err error
		respBody, err = c.doAuthenticated(ctx, http.MethodGet, "/order/"+submissionID, nil)
		return err
	})
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: get order %s: %w", submissionID, err)
	}

	var apiResult APIOrderResult
	if err := json.Unmarshal(respBody, &apiResult); err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: decode order status: %w", err)
	}
	return apiResult.ToDomainOrderResult(), nil
}

// doAuthenticated performs an HMAC-authenticated request against the CLOB
// API. Only transport-level failures are retried; a venue response is
// returned as-is so order submissions are never duplicated by the client.
func (c *ClobClient) doAuthenticated(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var bodyBytes []byte
	if payload != nil {
		var err error
		bodyBytes, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.auth.Headers(method, path, string(bodyBytes)) {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrProviderUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return respBody, fmt.Errorf("%w: status %d: %s", domain.ErrOrderRejected, resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
