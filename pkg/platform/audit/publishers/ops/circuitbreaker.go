package ops

import (
	"context"
	"sync"
	"time"

	"volid/pkg/requestcontext"
)

const (
	DefaultBreakerThreshold = 5
	DefaultBreakerCooldown  = 30 * time.Second
)

// BreakerState is the position of a CircuitBreaker. The numeric values are
// exported on the state gauge.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerHalfOpen
	BreakerOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerHalfOpen:
		return "half_open"
	case BreakerOpen:
		return "open"
	}
	return "unknown"
}

// CircuitBreaker stops credential-issued audit writes while the audit store is
// failing.
//
// After threshold consecutive failures it opens for cooldown. The first Allow
// after the cooldown admits exactly one trial write (half-open); its outcome
// closes the breaker or reopens it for another cooldown. Time comes from the
// request context, so a request carries one consistent clock.
type CircuitBreaker struct {
	mu sync.Mutex

	threshold int
	cooldown  time.Duration

	state     BreakerState
	failures  int
	openUntil time.Time
	trial     bool
}

// NewCircuitBreaker applies the defaults to non-positive arguments.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = DefaultBreakerThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultBreakerCooldown
	}
	return &CircuitBreaker{threshold: threshold, cooldown: cooldown}
}

// Allow reports whether a write may be attempted now.
func (cb *CircuitBreaker) Allow(ctx context.Context) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if requestcontext.Now(ctx).Before(cb.openUntil) {
			return false
		}
		cb.state = BreakerHalfOpen
		cb.trial = true
		return true
	default:
		// One trial at a time while half-open.
		if cb.trial {
			return false
		}
		cb.trial = true
		return true
	}
}

// RecordSuccess closes the breaker.
func (cb *CircuitBreaker) RecordSuccess(context.Context) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = BreakerClosed
	cb.failures = 0
	cb.trial = false
}

// RecordFailure counts a failed write. A failed half-open trial reopens at
// once; otherwise the breaker opens when the consecutive count reaches the
// threshold.
func (cb *CircuitBreaker) RecordFailure(ctx context.Context) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	if cb.state == BreakerHalfOpen || cb.failures >= cb.threshold {
		cb.state = BreakerOpen
		cb.openUntil = requestcontext.Now(ctx).Add(cb.cooldown)
		cb.trial = false
	}
}

func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
