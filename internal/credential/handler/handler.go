package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"volid/internal/credential"
	"volid/internal/volunteer/models"
	dErrors "volid/pkg/domain-errors"
	audit "volid/pkg/platform/audit"
	"volid/pkg/platform/httputil"
	"volid/pkg/requestcontext"
)

// VolunteerLookup loads the record a credential is requested for.
type VolunteerLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Volunteer, error)
}

type Renderer interface {
	Render(ctx context.Context, v *models.Volunteer) ([]byte, error)
}

// Tracker records best-effort operational events.
type Tracker interface {
	Track(ctx context.Context, event audit.Event)
}

// Handler serves credential downloads. Routes must sit behind RequireAuth.
type Handler struct {
	volunteers VolunteerLookup
	renderer   Renderer
	tracker    Tracker
	logger     *slog.Logger
}

func New(volunteers VolunteerLookup, renderer Renderer, tracker Tracker, logger *slog.Logger) *Handler {
	return &Handler{
		volunteers: volunteers,
		renderer:   renderer,
		tracker:    tracker,
		logger:     logger,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/id-card/download/{id}", h.HandleDownload)
}

// HandleDownload handles GET /id-card/download/{id}. Only an admin or the
// owning applicant may download, and only while the record is active.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller := requestcontext.Caller(ctx)
	if !caller.IsAuthenticated() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid volunteer id"))
		return
	}

	v, err := h.volunteers.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !caller.IsAdmin() && !v.OwnedBy(caller.UserID) {
		h.logger.WarnContext(ctx, "credential download denied",
			"request_id", requestID,
			"caller_id", caller.UserID,
			"record_id", id,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "not allowed to download this credential"))
		return
	}
	if err := credential.CheckEligible(v); err != nil {
		httputil.WriteError(w, err)
		return
	}

	pdf, err := h.renderer.Render(ctx, v)
	if err != nil {
		h.logger.ErrorContext(ctx, "credential render failed",
			"request_id", requestID,
			"volunteer_id", v.VolunteerID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	if h.tracker != nil {
		h.tracker.Track(ctx, audit.Event{
			Action:      string(audit.EventCredentialIssued),
			Subject:     v.ID.String(),
			VolunteerID: string(v.VolunteerID),
		})
	}
	h.logger.InfoContext(ctx, "credential issued",
		"request_id", requestID,
		"volunteer_id", v.VolunteerID,
		"caller_id", caller.UserID,
		"bytes", len(pdf),
	)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+string(v.VolunteerID)+".pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
