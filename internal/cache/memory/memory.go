// Package memory provides in-process implementations of the domain cache
// interfaces for deployments without Redis. Data does not survive a
// restart, which is acceptable: prices and markets are refreshed every poll
// cycle anyway.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alanyoungcy/arbsentinel/internal/domain"
)

type pricePoint struct {
	price float64
	ts    time.Time
}

// PriceCache is a mutex-guarded map of latest token prices.
type PriceCache struct {
	mu     sync.RWMutex
	prices map[string]pricePoint
}

func NewPriceCache() *PriceCache {
	return &PriceCache{prices: make(map[string]pricePoint)}
}

func (pc *PriceCache) SetPrice(_ context.Context, tokenID string, price float64) error {
	pc.mu.Lock()
	pc.prices[tokenID] = pricePoint{price: price, ts: time.Now()}
	pc.mu.Unlock()
	return nil
}

func (pc *PriceCache) GetPrice(_ context.Context, tokenID string) (float64, time.Time, error) {
	pc.mu.RLock()
	p, ok := pc.prices[tokenID]
	pc.mu.RUnlock()
	if !ok {
		return 0, time.Time{}, fmt.Errorf("memory: price %s: %w", tokenID, domain.ErrNotFound)
	}
	return p.price, p.ts, nil
}

// MarketCache is a mutex-guarded map of the most recently fetched markets,
// indexed by market ID and by outcome token ID.
type MarketCache struct {
	mu      sync.RWMutex
	byID    map[string]domain.Market
	byToken map[string]string
}

func NewMarketCache() *MarketCache {
	return &MarketCache{
		byID:    make(map[string]domain.Market),
		byToken: make(map[string]string),
	}
}

func (mc *MarketCache) Set(_ context.Context, market domain.Market) error {
	mc.mu.Lock()
	mc.byID[market.ID] = market
	if market.YesToken != "" {
		mc.byToken[market.YesToken] = market.ID
	}
	if market.NoToken != "" {
		mc.byToken[market.NoToken] = market.ID
	}
	mc.mu.Unlock()
	return nil
}

func (mc *MarketCache) Get(_ context.Context, marketID string) (domain.Market, error) {
	mc.mu.RLock()
	m, ok := mc.byID[marketID]
	mc.mu.RUnlock()
	if !ok {
		return domain.Market{}, fmt.Errorf("memory: market %s: %w", marketID, domain.ErrNotFound)
	}
	return m, nil
}

// GetByToken looks up a market by one of its outcome token IDs.
func (mc *MarketCache) GetByToken(ctx context.Context, tokenID string) (domain.Market, error) {
	mc.mu.RLock()
	id, ok := mc.byToken[tokenID]
	mc.mu.RUnlock()
	if !ok {
		return domain.Market{}, fmt.Errorf("memory: market token %s: %w", tokenID, domain.ErrNotFound)
	}
	return mc.Get(ctx, id)
}

// Compile-time interface checks.
var (
	_ domain.PriceCache  = (*PriceCache)(nil)
	_ domain.MarketCache = (*MarketCache)(nil)
)
