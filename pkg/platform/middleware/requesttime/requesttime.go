// Package requesttime pins a single "now" per request so that domain timestamps,
// audit events and identifier dates agree within one operation.
package requesttime

import (
	"net/http"
	"time"

	"volid/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
