package google

import (
	"context"
	"sync"
	"time"
)

// Family identifies an upstream API family with an independently governed quota
type Family string

const (
	FamilyAccounts     Family = "accounts"
	FamilyBusinessInfo Family = "businessinfo"
	FamilyReviews      Family = "reviews"
)

// acquireMargin is added to the computed wait so the oldest timestamp has
// definitely left the window when the caller rechecks
const acquireMargin = 50 * time.Millisecond

// RateLimiter bounds the number of outbound calls within a trailing window
// using a sliding-window log. It shapes traffic only; usage accounting is the
// quota monitor's job.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	calls  []time.Time
}

// NewRateLimiter creates a limiter admitting at most max calls per window
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		window: window,
		max:    max,
	}
}

// Acquire blocks until a call slot is available or ctx is cancelled.
// Expressed as a loop because multiple waiters may race for the freed slot;
// a woken caller must recheck before recording its timestamp.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		r.prune(now)

		if len(r.calls) < r.max {
			r.calls = append(r.calls, now)
			r.mu.Unlock()
			return nil
		}

		wait := r.calls[0].Add(r.window).Sub(now) + acquireMargin
		r.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// InWindow returns the number of calls currently recorded in the window
func (r *RateLimiter) InWindow() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune(time.Now())
	return len(r.calls)
}

// prune drops timestamps older than now - window. Caller must hold mu.
func (r *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-r.window)
	i := 0
	for i < len(r.calls) && !r.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		r.calls = append(r.calls[:0], r.calls[i:]...)
	}
}
