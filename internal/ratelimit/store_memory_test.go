package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStoreSlidingWindow(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	s := NewInMemoryStore()
	s.now = func() time.Time { return clock }

	for i := range 3 {
		res, err := s.Allow(ctx, "verify:203.0.113.7", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := s.Allow(ctx, "verify:203.0.113.7", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, clock.Add(time.Minute), res.ResetAt)
	assert.Equal(t, 60, res.RetryAfter(clock))

	other, err := s.Allow(ctx, "verify:198.51.100.2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys are independent")

	clock = clock.Add(time.Minute + time.Millisecond)
	res, err = s.Allow(ctx, "verify:203.0.113.7", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "window slid past the first burst")
}

func TestInMemoryStoreConcurrentCallersRespectLimit(t *testing.T) {
	s := NewInMemoryStore()
	const limit = 10

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 50 {
		wg.Go(func() {
			res, err := s.Allow(context.Background(), "k", limit, time.Hour)
			assert.NoError(t, err)
			if res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	assert.Equal(t, limit, allowed)
}

func TestRetryAfterIsAtLeastOneSecond(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 1, Result{ResetAt: now}.RetryAfter(now))
	assert.Equal(t, 1, Result{ResetAt: now.Add(200 * time.Millisecond)}.RetryAfter(now))
}
