package polymarket

import (
	"context"
	"errors"
	"time"
)

// errPermanent wraps errors that must not be retried (e.g. a definitive 404).
type errPermanent struct{ err error }

func (e errPermanent) Error() string { return e.err.Error() }
func (e errPermanent) Unwrap() error { return e.err }

func permanent(err error) error { return errPermanent{err: err} }

// RetryPolicy makes retry behavior an explicit, observable parameter of each
// external call rather than a framework default. Zero values disable retry
// (one attempt, no delay).
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// do runs fn up to MaxAttempts times with exponential backoff between
// attempts (BaseDelay, 2x per retry). It honors ctx between attempts; an
// in-flight fn is allowed to complete.
func (p RetryPolicy) do(ctx context.Context, fn func() error) error {
	delay := p.BaseDelay
	var err error
	for attempt := 1; attempt <= p.attempts(); attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		var perm errPermanent
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt == p.attempts() {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return err
}
