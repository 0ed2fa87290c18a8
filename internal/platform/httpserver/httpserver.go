package httpserver

import (
	"net/http"
	"time"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultReadTimeout       = 15 * time.Second
	defaultIdleTimeout       = 120 * time.Second

	// writeSlack is the time left after the slowest handler for the response
	// itself to be written.
	writeSlack = 30 * time.Second
)

type Option func(*http.Server)

// WithSlowestHandler sizes the write timeout so a handler that runs for d
// (a credential render, say) can still deliver its response.
func WithSlowestHandler(d time.Duration) Option {
	return func(s *http.Server) {
		if d > 0 {
			s.WriteTimeout = d + writeSlack
		}
	}
}

// New builds the HTTP server. Without options the write timeout allows a 60s
// handler.
func New(addr string, handler http.Handler, opts ...Option) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      60*time.Second + writeSlack,
		IdleTimeout:       defaultIdleTimeout,
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}
