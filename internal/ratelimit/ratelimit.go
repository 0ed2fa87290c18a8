// Package ratelimit throttles anonymous endpoints by client IP using a sliding
// window.
package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	dErrors "volid/pkg/domain-errors"
	"volid/pkg/platform/httputil"
	"volid/pkg/requestcontext"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole-second wait before the window admits another request.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetAt.Sub(now).Round(time.Second) / time.Second)
	return max(secs, 1)
}

// Store counts requests per key inside a sliding window.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// Limiter is HTTP middleware enforcing limit requests per window per client IP.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	scope  string
	logger *slog.Logger
}

func New(store Store, scope string, limit int, window time.Duration, logger *slog.Logger) *Limiter {
	return &Limiter{
		store:  store,
		limit:  limit,
		window: window,
		scope:  scope,
		logger: logger,
	}
}

// Handler fails open: a store error lets the request through and is logged.
func (l *Limiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := requestcontext.ClientIP(ctx)
		if ip == "" {
			next.ServeHTTP(w, r)
			return
		}

		result, err := l.store.Allow(ctx, l.scope+":"+ip, l.limit, l.window)
		if err != nil {
			l.logger.ErrorContext(ctx, "rate limit check failed",
				"request_id", requestcontext.RequestID(ctx),
				"scope", l.scope,
				"error", err,
			)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			l.logger.WarnContext(ctx, "rate limit exceeded",
				"request_id", requestcontext.RequestID(ctx),
				"scope", l.scope,
			)
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter(requestcontext.Now(ctx))))
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, try again later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
