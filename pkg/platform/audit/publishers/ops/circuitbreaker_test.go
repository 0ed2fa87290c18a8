package ops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volid/pkg/requestcontext"
)

var breakerEpoch = time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)

func at(offset time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), breakerEpoch.Add(offset))
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	cb.RecordFailure(at(0))
	cb.RecordFailure(at(0))
	cb.RecordSuccess(at(0))
	cb.RecordFailure(at(0))
	cb.RecordFailure(at(0))
	assert.Equal(t, BreakerClosed, cb.State(), "a success resets the count")
	assert.True(t, cb.Allow(at(0)))

	cb.RecordFailure(at(0))
	assert.Equal(t, BreakerOpen, cb.State())
	assert.False(t, cb.Allow(at(59*time.Second)))
}

func TestBreakerAdmitsOneTrialAfterCooldown(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)
	cb.RecordFailure(at(0))

	require.True(t, cb.Allow(at(time.Minute)))
	assert.Equal(t, BreakerHalfOpen, cb.State())
	assert.False(t, cb.Allow(at(time.Minute)), "second caller waits for the trial")

	cb.RecordSuccess(at(time.Minute))
	assert.Equal(t, BreakerClosed, cb.State())
	assert.True(t, cb.Allow(at(time.Minute)))
}

func TestFailedTrialReopensImmediately(t *testing.T) {
	cb := NewCircuitBreaker(5, time.Minute)
	for range 5 {
		cb.RecordFailure(at(0))
	}
	require.True(t, cb.Allow(at(2*time.Minute)))

	cb.RecordFailure(at(2 * time.Minute))
	assert.Equal(t, BreakerOpen, cb.State())
	assert.False(t, cb.Allow(at(2*time.Minute+59*time.Second)))
	assert.True(t, cb.Allow(at(3*time.Minute)))
}

func TestBreakerDefaults(t *testing.T) {
	cb := NewCircuitBreaker(0, -time.Second)
	assert.Equal(t, DefaultBreakerThreshold, cb.threshold)
	assert.Equal(t, DefaultBreakerCooldown, cb.cooldown)
	assert.Equal(t, "half_open", BreakerHalfOpen.String())
}
