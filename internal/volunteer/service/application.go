package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"volid/internal/notification"
	"volid/internal/volunteer/models"
	dErrors "volid/pkg/domain-errors"
	audit "volid/pkg/platform/audit"
	"volid/pkg/platform/sentinel"
	"volid/pkg/requestcontext"
)

// Apply records a new pending application for the applicant. A previously
// rejected application is superseded; any other existing record blocks it.
func (s *Service) Apply(ctx context.Context, applicantID string, app models.Application) (*models.Volunteer, error) {
	now := requestcontext.Now(ctx)
	v, err := models.NewVolunteer(uuid.New(), applicantID, app, now)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		superseded, err := s.store.Create(txCtx, v)
		if err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeDuplicateApplication, "an application already exists for this account")
			}
			return wrapStoreErr(err, "failed to create application")
		}
		if superseded != nil {
			if err := s.emit(txCtx, audit.Event{
				Action:  string(audit.EventApplicationSuperseded),
				Subject: superseded.ID.String(),
			}); err != nil {
				return err
			}
		}
		return s.emit(txCtx, audit.Event{
			Action:  string(audit.EventApplicationSubmitted),
			Subject: v.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementApplicationsSubmitted()
	}
	s.logger.InfoContext(ctx, "application submitted",
		"request_id", requestcontext.RequestID(ctx),
		"record_id", v.ID,
	)

	msg := notification.ApplicationReceived(v, now)
	msg.RequestID = requestcontext.RequestID(ctx)
	s.notify(ctx, msg)
	return v, nil
}

// GetMine returns the caller's own application.
func (s *Service) GetMine(ctx context.Context, applicantID string) (*models.Volunteer, error) {
	v, err := s.store.FindByApplicant(ctx, applicantID)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load application")
	}
	return v, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Volunteer, error) {
	v, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load volunteer")
	}
	return v, nil
}

func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]*models.Volunteer, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidStatus, "unknown status filter")
	}
	out, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to list volunteers")
	}
	return out, nil
}

// UpdateProfileImage replaces the caller's profile image reference.
func (s *Service) UpdateProfileImage(ctx context.Context, applicantID, ref string) (*models.Volunteer, error) {
	current, err := s.store.FindByApplicant(ctx, applicantID)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load application")
	}

	now := requestcontext.Now(ctx)
	var updated *models.Volunteer
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		v, err := s.store.Execute(txCtx, current.ID, func(v *models.Volunteer) error {
			if !v.OwnedBy(applicantID) {
				return dErrors.New(dErrors.CodeNotFound, "volunteer not found")
			}
			return v.ApplyProfileImage(ref, now)
		})
		if err != nil {
			return wrapStoreErr(err, "failed to update profile image")
		}
		updated = v
		return s.emit(txCtx, audit.Event{
			Action:      string(audit.EventProfileImageUpdated),
			Subject:     v.ID.String(),
			VolunteerID: string(v.VolunteerID),
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, updated.VolunteerID)
	return updated, nil
}

// Delete removes a record (admin). Its identifier stays retired and is never
// issued again.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	var deleted *models.Volunteer
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		v, err := s.store.Delete(txCtx, id)
		if err != nil {
			return wrapStoreErr(err, "failed to delete volunteer")
		}
		deleted = v
		return s.emit(txCtx, audit.Event{
			Action:      string(audit.EventVolunteerDeleted),
			Subject:     v.ID.String(),
			VolunteerID: string(v.VolunteerID),
		})
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, deleted.VolunteerID)
	s.logger.InfoContext(ctx, "volunteer deleted",
		"request_id", requestcontext.RequestID(ctx),
		"record_id", id,
		"actor_id", requestcontext.Caller(ctx).UserID,
	)
	return nil
}
