package google

import (
	"context"
	"strings"
	"time"

	"github.com/reviewloop/review-service/internal/domain"
)

// RetryPolicy retries an operation with bounded exponential backoff, but only
// when the failure is a quota/rate-limit signal. Any other error propagates
// to the caller unchanged and immediately.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryPolicy returns the policy used for all upstream calls
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
	}
}

// NewRetryPolicy returns the default policy with a custom retry cap
func NewRetryPolicy(maxRetries int) *RetryPolicy {
	p := DefaultRetryPolicy()
	if maxRetries > 0 {
		p.MaxRetries = maxRetries
	}
	return p
}

// Do runs fn, retrying on quota failures with exponential backoff. On
// exhausted retries or a non-quota failure the original error is returned,
// not a wrapped one, so callers can inspect it.
func (p *RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	delay := p.InitialDelay

	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}

		if !isQuotaSignal(err) || attempt >= p.MaxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}

// isQuotaSignal reports whether err is an HTTP 429 or an error payload whose
// message indicates quota exhaustion
func isQuotaSignal(err error) bool {
	if err == nil {
		return false
	}
	if domain.IsQuotaExceeded(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota exceeded") || strings.Contains(msg, "rate limit exceeded")
}
