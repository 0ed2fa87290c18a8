package admin

import (
	"log/slog"
	"net/http"

	"volid/pkg/requestcontext"
)

// RequireAdmin rejects callers without the admin role. Mount after auth.RequireAuth.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			caller := requestcontext.Caller(ctx)
			if !caller.IsAuthenticated() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"authentication required"}`))
				return
			}
			if !caller.IsAdmin() {
				logger.WarnContext(ctx, "admin route denied",
					"request_id", requestcontext.RequestID(ctx),
					"user_id", caller.UserID,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"admin role required"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
