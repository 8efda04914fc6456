package google

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	limiter := NewRateLimiter(3, time.Minute)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Acquire(ctx))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond, "calls within the limit must not block")
}

func TestRateLimiterBlocksWhenFull(t *testing.T) {
	limiter := NewRateLimiter(2, 300*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, limiter.Acquire(ctx))
	require.NoError(t, limiter.Acquire(ctx))

	start := time.Now()
	require.NoError(t, limiter.Acquire(ctx))
	waited := time.Since(start)

	assert.GreaterOrEqual(t, waited, 200*time.Millisecond, "third call must wait for the window to slide")
}

func TestRateLimiterContextCancellation(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	require.NoError(t, limiter.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := limiter.Acquire(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	limiter := NewRateLimiter(2, 150*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, limiter.Acquire(ctx))
	require.NoError(t, limiter.Acquire(ctx))

	time.Sleep(200 * time.Millisecond)

	// The window has slid past both calls, no waiting expected
	start := time.Now()
	require.NoError(t, limiter.Acquire(ctx))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestRateLimiterInWindow(t *testing.T) {
	limiter := NewRateLimiter(5, time.Minute)
	ctx := context.Background()

	assert.Equal(t, 0, limiter.InWindow())

	require.NoError(t, limiter.Acquire(ctx))
	require.NoError(t, limiter.Acquire(ctx))
	assert.Equal(t, 2, limiter.InWindow())
}
