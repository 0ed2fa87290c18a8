package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volid/pkg/requestcontext"
)

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (Result, error) {
	return Result{}, errors.New("redis: connection refused")
}

func serve(t *testing.T, h http.Handler, ip string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/id-card/verify/VOL0503264821", nil)
	req = req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, "test"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLimiterHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("rejects once the window is full", func(t *testing.T) {
		h := New(NewInMemoryStore(), "verify", 2, time.Minute, logger).Handler(ok)

		for range 2 {
			rec := serve(t, h, "203.0.113.7")
			require.Equal(t, http.StatusOK, rec.Code)
		}
		rec := serve(t, h, "203.0.113.7")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.JSONEq(t, `{"error":"rate_limited","error_description":"too many requests, try again later"}`, rec.Body.String())
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))

		assert.Equal(t, http.StatusOK, serve(t, h, "198.51.100.2").Code)
	})

	t.Run("fails open when the store errors", func(t *testing.T) {
		h := New(failingStore{}, "verify", 1, time.Minute, logger).Handler(ok)
		for range 3 {
			assert.Equal(t, http.StatusOK, serve(t, h, "203.0.113.7").Code)
		}
	})
}
