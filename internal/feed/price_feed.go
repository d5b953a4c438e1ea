// Package feed streams live outcome prices from the venue WebSocket into
// the price cache so positions can be valued between poll cycles.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/arbsentinel/internal/domain"
	"github.com/alanyoungcy/arbsentinel/internal/platform/polymarket"
)

const (
	reconnectBase = 2 * time.Second
	reconnectMax  = 30 * time.Second
)

// PriceFeed maintains one WebSocket connection, keeps its token
// subscriptions in sync with whatever the polling loop is tracking, and
// writes every price change into the cache.
type PriceFeed struct {
	wsURL  string
	cache  domain.PriceCache
	logger *slog.Logger

	mu     sync.Mutex
	tokens []string
	client *polymarket.WSClient
}

func NewPriceFeed(wsURL string, cache domain.PriceCache, logger *slog.Logger) *PriceFeed {
	return &PriceFeed{
		wsURL:  wsURL,
		cache:  cache,
		logger: logger.With(slog.String("component", "price_feed")),
	}
}

// Track replaces the subscribed token set. Called by the polling loop after
// each scan; a live connection is resubscribed immediately.
func (f *PriceFeed) Track(tokenIDs []string) {
	f.mu.Lock()
	f.tokens = append([]string(nil), tokenIDs...)
	client := f.client
	tokens := f.tokens
	f.mu.Unlock()

	if client == nil || len(tokens) == 0 {
		return
	}
	if err := client.Subscribe(tokens); err != nil {
		f.logger.Warn("resubscribe failed", slog.String("error", err.Error()))
	}
}

// Run connects and streams until ctx is cancelled, reconnecting with
// backoff on disconnect.
func (f *PriceFeed) Run(ctx context.Context) error {
	backoff := reconnectBase
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := f.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			f.logger.Warn("ws disconnected, reconnecting",
				slog.String("error", err.Error()),
				slog.Duration("backoff", backoff),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

func (f *PriceFeed) runConnection(ctx context.Context) error {
	client := polymarket.NewWSClient(f.wsURL, func(update polymarket.PriceUpdate) {
		if err := f.cache.SetPrice(context.Background(), update.TokenID, update.Price); err != nil {
			f.logger.Warn("cache price update failed",
				slog.String("token_id", update.TokenID),
				slog.String("error", err.Error()),
			)
		}
	})
	defer client.Close()

	if err := client.Connect(ctx); err != nil {
		return err
	}

	f.mu.Lock()
	f.client = client
	tokens := append([]string(nil), f.tokens...)
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.client = nil
		f.mu.Unlock()
	}()

	if len(tokens) > 0 {
		if err := client.Subscribe(tokens); err != nil {
			return err
		}
		f.logger.Info("ws subscribed", slog.Int("tokens", len(tokens)))
	}

	return client.WaitDisconnect(ctx)
}
