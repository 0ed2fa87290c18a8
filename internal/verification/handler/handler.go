package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"volid/internal/verification"
	dErrors "volid/pkg/domain-errors"
	"volid/pkg/platform/httputil"
	"volid/pkg/requestcontext"
)

// Service resolves public identifiers.
type Service interface {
	Verify(ctx context.Context, raw string) (*verification.PublicStatus, error)
}

// Handler serves the public verification endpoint. It is mounted outside the
// auth middleware.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/id-card/verify/{volunteerId}", h.HandleVerify)
}

// HandleVerify handles GET /id-card/verify/{volunteerId}.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	status, err := h.service.Verify(ctx, chi.URLParam(r, "volunteerId"))
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "verification failed",
				"request_id", requestID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, status)
}
