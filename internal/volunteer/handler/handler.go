package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"volid/internal/volunteer/models"
	dErrors "volid/pkg/domain-errors"
	"volid/pkg/platform/httputil"
	"volid/pkg/requestcontext"
)

// Service defines the volunteer operations exposed over HTTP.
type Service interface {
	Apply(ctx context.Context, applicantID string, app models.Application) (*models.Volunteer, error)
	GetMine(ctx context.Context, applicantID string) (*models.Volunteer, error)
	UpdateProfileImage(ctx context.Context, applicantID, ref string) (*models.Volunteer, error)
	Transition(ctx context.Context, id uuid.UUID, target, reason string) (*models.Volunteer, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Volunteer, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Volunteer, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Handler wires volunteer endpoints to the volunteer service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterApplicant mounts routes for any authenticated caller.
func (h *Handler) RegisterApplicant(r chi.Router) {
	r.Post("/volunteers/apply", h.HandleApply)
	r.Get("/volunteers/me", h.HandleGetMine)
	r.Patch("/volunteers/me/profile-image", h.HandleUpdateProfileImage)
}

// RegisterAdmin mounts routes that must sit behind RequireAdmin.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Put("/volunteers/status/{id}", h.HandleTransition)
	r.Get("/volunteers", h.HandleList)
	r.Get("/volunteers/{id}", h.HandleGet)
	r.Delete("/volunteers/{id}", h.HandleDelete)
}

// HandleApply handles POST /volunteers/apply.
func (h *Handler) HandleApply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[ApplyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	v, err := h.service.Apply(ctx, caller.UserID, req.Application())
	if err != nil {
		h.logFailure(ctx, "application rejected", err, "applicant_id", caller.UserID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromVolunteer(v))
}

// HandleGetMine handles GET /volunteers/me.
func (h *Handler) HandleGetMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}
	v, err := h.service.GetMine(ctx, caller.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVolunteer(v))
}

// HandleUpdateProfileImage handles PATCH /volunteers/me/profile-image.
func (h *Handler) HandleUpdateProfileImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[ProfileImageRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	v, err := h.service.UpdateProfileImage(ctx, caller.UserID, req.ProfileImage)
	if err != nil {
		h.logFailure(ctx, "profile image update failed", err, "applicant_id", caller.UserID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVolunteer(v))
}

// HandleTransition handles PUT /volunteers/status/{id}.
func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[TransitionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	v, err := h.service.Transition(ctx, id, req.Status, req.Reason)
	if err != nil {
		h.logFailure(ctx, "status transition failed", err,
			"record_id", id,
			"target_status", req.Status,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVolunteer(v))
}

// HandleList handles GET /volunteers.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	filter, err := parseListFilter(q.Get("status"), q.Get("limit"), q.Get("offset"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	vs, err := h.service.List(ctx, filter)
	if err != nil {
		h.logFailure(ctx, "list volunteers failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVolunteers(vs))
}

// HandleGet handles GET /volunteers/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}
	v, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVolunteer(v))
}

// HandleDelete handles DELETE /volunteers/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(ctx, id); err != nil {
		h.logFailure(ctx, "delete volunteer failed", err, "record_id", id)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) requireCaller(w http.ResponseWriter, ctx context.Context) (requestcontext.CallerInfo, bool) {
	caller := requestcontext.Caller(ctx)
	if !caller.IsAuthenticated() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return caller, false
	}
	return caller, true
}

func (h *Handler) recordID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid volunteer id"))
		return uuid.Nil, false
	}
	return id, true
}

// logFailure logs client errors at warn and everything else at error.
func (h *Handler) logFailure(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append([]any{"request_id", requestcontext.RequestID(ctx), "error", err}, attrs...)
	if httputil.StatusFor(dErrors.CodeOf(err)) < http.StatusInternalServerError {
		h.logger.WarnContext(ctx, msg, attrs...)
		return
	}
	h.logger.ErrorContext(ctx, msg, attrs...)
}
