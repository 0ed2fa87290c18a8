package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	credentialhandler "volid/internal/credential/handler"
	verificationhandler "volid/internal/verification/handler"
	volunteerhandler "volid/internal/volunteer/handler"
	dErrors "volid/pkg/domain-errors"
	"volid/pkg/platform/httputil"
	"volid/pkg/platform/middleware/admin"
	"volid/pkg/platform/middleware/auth"
	"volid/pkg/platform/middleware/metadata"
	"volid/pkg/platform/middleware/request"
	"volid/pkg/platform/middleware/requesttime"
)

// requestTimeout covers the slowest route (credential rendering).
const requestTimeout = 75 * time.Second

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps are the handlers and cross-cutting collaborators the router mounts.
type Deps struct {
	Logger       *slog.Logger
	Latency      request.LatencyObserver
	JWTValidator auth.JWTValidator
	Volunteers   *volunteerhandler.Handler
	Credentials  *credentialhandler.Handler
	Verification *verificationhandler.Handler
	VerifyLimit  func(http.Handler) http.Handler
	HealthChecks map[string]HealthCheck
}

// NewRouter wires public, authenticated and admin routes.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(d.Logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(d.Logger, d.Latency))
	r.Use(chimiddleware.Timeout(requestTimeout))

	r.Get("/healthz", healthHandler(d.HealthChecks))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if d.VerifyLimit != nil {
			r.Use(d.VerifyLimit)
		}
		d.Verification.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(d.JWTValidator, d.Logger))
		d.Volunteers.RegisterApplicant(r)
		d.Credentials.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(admin.RequireAdmin(d.Logger))
			d.Volunteers.RegisterAdmin(r)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = "unavailable"
				continue
			}
			results[name] = "ok"
		}
		httputil.WriteJSON(w, status, map[string]any{
			"status": http.StatusText(status),
			"checks": results,
		})
	}
}
