package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"volid/internal/notification"
	"volid/internal/volunteer/models"
	dErrors "volid/pkg/domain-errors"
	audit "volid/pkg/platform/audit"
	"volid/pkg/platform/sentinel"
	"volid/pkg/requestcontext"
)

// transitionResult captures what one committed attempt changed.
type transitionResult struct {
	record  *models.Volunteer
	from    models.Status
	changed bool
	minted  bool
}

// Transition moves a record to the target status. Entering active or temporary
// binds an identifier the first time; later entries reuse it. Status, reason,
// identifier and audit trail commit together, and a collision on the identifier
// index retries the whole attempt.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, target, reason string) (*models.Volunteer, error) {
	start := time.Now()
	status, err := models.ParseStatus(target)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "volunteer.transition",
		trace.WithAttributes(
			attribute.String("volunteer.record_id", id.String()),
			attribute.String("volunteer.target_status", string(status)),
		),
	)
	defer span.End()

	var result transitionResult
	for attempt := 1; ; attempt++ {
		result, err = s.transitionOnce(ctx, id, status, reason)
		if err == nil {
			break
		}
		if !errors.Is(err, sentinel.ErrAlreadyUsed) {
			span.RecordError(err)
			span.SetStatus(codes.Error, dErrors.MessageOf(err))
			return nil, err
		}
		s.logger.WarnContext(ctx, "identifier collided at commit, retrying transition",
			"request_id", requestcontext.RequestID(ctx),
			"record_id", id,
			"attempt", attempt,
		)
		if attempt >= s.commitAttempts {
			if s.metrics != nil {
				s.metrics.IncrementAllocationExhausted()
			}
			span.SetStatus(codes.Error, "identifier allocation exhausted")
			return nil, dErrors.Wrap(err, dErrors.CodeAllocationExhausted, "could not allocate a unique volunteer id, retry later")
		}
	}

	v := result.record
	span.SetAttributes(attribute.Bool("volunteer.changed", result.changed))
	if !result.changed {
		return v, nil
	}

	if s.metrics != nil {
		s.metrics.IncrementTransition(string(result.from), string(v.Status))
		s.metrics.ObserveTransition(start)
	}
	s.logger.InfoContext(ctx, "volunteer status changed",
		"request_id", requestcontext.RequestID(ctx),
		"record_id", v.ID,
		"from", result.from,
		"to", v.Status,
		"volunteer_id", v.VolunteerID,
		"identifier_minted", result.minted,
	)

	s.invalidate(ctx, v.VolunteerID)
	if v.Status.BindsIdentifier() {
		msg := notification.Approved(v, requestcontext.Now(ctx))
		msg.RequestID = requestcontext.RequestID(ctx)
		s.notify(ctx, msg)
	}
	return v, nil
}

func (s *Service) transitionOnce(ctx context.Context, id uuid.UUID, status models.Status, reason string) (transitionResult, error) {
	now := requestcontext.Now(ctx)
	var result transitionResult

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		result = transitionResult{}
		v, err := s.store.Execute(txCtx, id, func(v *models.Volunteer) error {
			result.from = v.Status
			changed, err := v.CanTransition(status, reason)
			if err != nil {
				return err
			}
			if !changed {
				return nil
			}
			result.changed = true
			if v.NeedsVolunteerID(status) {
				vid, err := s.allocator.Allocate(txCtx, v.JoiningDate)
				if err != nil {
					return err
				}
				if err := v.BindVolunteerID(vid, now); err != nil {
					return err
				}
				result.minted = true
			}
			v.ApplyTransition(status, reason, now)
			return nil
		})
		if err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return err
			}
			return wrapStoreErr(err, "failed to apply status transition")
		}
		result.record = v
		if !result.changed {
			return nil
		}

		if err := s.emit(txCtx, audit.Event{
			Action:      string(audit.EventStatusChanged),
			Subject:     v.ID.String(),
			VolunteerID: string(v.VolunteerID),
			Reason:      string(result.from) + "->" + string(v.Status),
		}); err != nil {
			return err
		}
		if result.minted {
			return s.emit(txCtx, audit.Event{
				Action:      string(audit.EventIdentifierAllocated),
				Subject:     v.ID.String(),
				VolunteerID: string(v.VolunteerID),
			})
		}
		return nil
	})
	return result, err
}
