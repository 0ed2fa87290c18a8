// Package ops provides a best-effort audit tracker for routine events.
//
// Track never returns an error and never fails the caller's operation. A circuit
// breaker stops hammering an unhealthy store; events are dropped while it is open.
//
// Use for: credential_issued
package ops

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "volid/pkg/platform/audit"
	"volid/pkg/requestcontext"
)

const defaultWriteTimeout = 2 * time.Second

type Tracker struct {
	store   audit.Store
	breaker *CircuitBreaker
	logger  *slog.Logger
	metrics *Metrics
	timeout time.Duration
}

type Option func(*Tracker)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(t *Tracker) {
		t.metrics = m
	}
}

func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(t *Tracker) {
		if cb != nil {
			t.breaker = cb
		}
	}
}

func New(store audit.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:   store,
		breaker: NewCircuitBreaker(DefaultBreakerThreshold, DefaultBreakerCooldown),
		timeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track persists the event unless the breaker is open. The write is detached
// from ctx cancellation but bounded by its own timeout.
func (t *Tracker) Track(ctx context.Context, event audit.Event) {
	if !t.breaker.Allow(ctx) {
		if t.metrics != nil {
			t.metrics.IncCircuitBreakerDropped()
		}
		return
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	event.Category = audit.AuditEvent(event.Action).Category()
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ActorID == "" {
		event.ActorID = requestcontext.Caller(ctx).UserID
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
	defer cancel()

	before := t.breaker.State()
	if err := t.store.Append(writeCtx, event); err != nil {
		t.breaker.RecordFailure(ctx)
		state := t.breaker.State()
		if t.metrics != nil {
			t.metrics.IncPersistFailures()
			t.metrics.SetCircuitBreakerState(state)
		}
		if t.logger != nil {
			t.logger.WarnContext(ctx, "ops audit dropped",
				"action", event.Action,
				"request_id", event.RequestID,
				"breaker", state.String(),
				"error", err,
			)
		}
		return
	}

	t.breaker.RecordSuccess(ctx)
	if t.metrics != nil {
		t.metrics.IncTracked()
		t.metrics.SetCircuitBreakerState(BreakerClosed)
	}
	if before != BreakerClosed && t.logger != nil {
		t.logger.InfoContext(ctx, "ops audit store recovered",
			"request_id", event.RequestID,
		)
	}
}
