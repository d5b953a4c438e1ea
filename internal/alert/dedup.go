package alert

import (
	"sync"
	"time"
)

// dedup suppresses repeat admissions of the same market within a TTL
// window. Without it every poll cycle over an unchanged snapshot would
// mint a fresh alert for the same opportunity until the queue cap fills.
type dedup struct {
	mu   sync.Mutex
	seen map[string]time.Time // market ID -> last admission time
	ttl  time.Duration
}

func newDedup(ttl time.Duration) *dedup {
	return &dedup{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

// isDuplicate reports whether marketID was admitted within the TTL window.
// A miss (or an expired entry) records the market and returns false.
func (d *dedup) isDuplicate(marketID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if last, ok := d.seen[marketID]; ok && now.Sub(last) < d.ttl {
		return true
	}
	d.seen[marketID] = now
	return false
}

// cleanup drops expired entries so the map stays bounded by the set of
// markets seen within one TTL window.
func (d *dedup) cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	for id, ts := range d.seen {
		if now.Sub(ts) >= d.ttl {
			delete(d.seen, id)
		}
	}
}
