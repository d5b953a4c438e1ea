package domain

import (
	"context"
	"io"
	"time"
)

// AlertStore persists terminal alert history for audit. PENDING alerts are
// never persisted; only resolved alerts reach the store.
type AlertStore interface {
	Create(ctx context.Context, alert TradingAlert) error
	ListRecent(ctx context.Context, limit int) ([]TradingAlert, error)
	ListBefore(ctx context.Context, before time.Time) ([]TradingAlert, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// TradeStore persists executed trade history.
type TradeStore interface {
	Create(ctx context.Context, trade Trade) error
	Update(ctx context.Context, trade Trade) error
	ListByAlert(ctx context.Context, alertID string) ([]Trade, error)
	ListRecent(ctx context.Context, limit int) ([]Trade, error)
	ListBefore(ctx context.Context, before time.Time) ([]Trade, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// PriceCache stores the latest observed outcome prices per token so position
// P&L can be valued between poll cycles.
type PriceCache interface {
	SetPrice(ctx context.Context, tokenID string, price float64) error
	GetPrice(ctx context.Context, tokenID string) (float64, time.Time, error)
}

// MarketCache caches normalized markets from the most recent fetch.
type MarketCache interface {
	Set(ctx context.Context, market Market) error
	Get(ctx context.Context, marketID string) (Market, error)
}

// RateLimiter throttles calls to an upstream identified by key.
type RateLimiter interface {
	// Wait blocks until a request for key is allowed or ctx is done.
	Wait(ctx context.Context, key string) error
}

// BlobWriter uploads an object to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
