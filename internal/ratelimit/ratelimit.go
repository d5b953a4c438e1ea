// Package ratelimit provides request throttling for upstream APIs. The
// in-process limiter is a token bucket; a Redis-backed sliding window is
// available when a cycle must share budget across restarts.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/arbsentinel/internal/domain"
)

// Local is an in-process, per-key token bucket limiter.
type Local struct {
	interval time.Duration
	burst    int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

var _ domain.RateLimiter = (*Local)(nil)

// NewLocal creates a limiter that allows one request per key every interval,
// with an initial burst of one so the first call never waits.
func NewLocal(interval time.Duration) *Local {
	return &Local{
		interval: interval,
		burst:    1,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request for key is allowed or ctx is done.
func (l *Local) Wait(ctx context.Context, key string) error {
	return l.limiterFor(key).Wait(ctx)
}

func (l *Local) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.interval), l.burst)
		l.limiters[key] = lim
	}
	return lim
}
