package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/arbsentinel/internal/domain"
)

// GammaClient is the REST client for the Polymarket Gamma API, which
// provides market discovery and metadata. It is the market snapshot reader:
// a stateless transform from the provider's representation into the
// canonical domain.Market model.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
	retry      RetryPolicy
	categories map[string]bool // allow-list; nil means no filter
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
// categories is the operator's category allow-list; the sentinel "all"
// (or an empty list) disables filtering.
func NewGammaClient(baseURL string, timeout time.Duration, retry RetryPolicy, categories []string) *GammaClient {
	// Entries are lowercased to match the normalized market category.
	var allow map[string]bool
	for _, c := range categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "all" {
			allow = nil
			break
		}
		if allow == nil {
			allow = make(map[string]bool, len(categories))
		}
		allow[c] = true
	}
	return &GammaClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		retry:      retry,
		categories: allow,
	}
}

// GetActiveMarkets returns up to limit open markets, normalized into the
// canonical model. Markets the provider marks closed or inactive are
// excluded, as are markets outside the category allow-list.
func (g *GammaClient) GetActiveMarkets(ctx context.Context, limit int) ([]domain.Market, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("active", "true")
	params.Set("closed", "false")
	params.Set("order", "volume24hr")
	params.Set("ascending", "false")

	body, err := g.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: get markets: %w", err)
	}

	var apiMarkets []APIMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}

	markets := make([]domain.Market, 0, len(apiMarkets))
	for i := range apiMarkets {
		m := &apiMarkets[i]
		if !m.Tradable() {
			continue
		}
		dm := m.ToDomainMarket()
		if g.categories != nil && !g.categories[dm.Category] {
			continue
		}
		markets = append(markets, dm)
	}

	return markets, nil
}

// GetMarket returns a single market by its ID, or domain.ErrNotFound when
// the provider does not know it.
func (g *GammaClient) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	body, err := g.doGet(ctx, "/markets/"+url.PathEscape(id))
	if err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: get market %s: %w", id, err)
	}

	var apiMarket APIMarket
	if err := json.Unmarshal(body, &apiMarket); err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: decode market: %w", err)
	}
	if apiMarket.ID == "" {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: market %s: %w", id, domain.ErrNotFound)
	}

	return apiMarket.ToDomainMarket(), nil
}

// doGet performs a GET request against the Gamma API with the configured
// retry policy. Network errors and non-2xx responses are reported as
// domain.ErrProviderUnavailable, except 404 which maps to domain.ErrNotFound.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	var body []byte

	err := g.retry.do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return permanent(domain.ErrNotFound)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
			return fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: read body: %v", domain.ErrProviderUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
