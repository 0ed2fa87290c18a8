package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers lifecycle decisions that must be reconstructible:
	// submissions, status changes, identifier binding, deletions.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine activity that may be dropped under
	// store pressure (credential downloads).
	CategoryOperations EventCategory = "operations"
)

type AuditEvent string

const (
	EventApplicationSubmitted  AuditEvent = "application_submitted"
	EventApplicationSuperseded AuditEvent = "application_superseded"
	EventStatusChanged         AuditEvent = "status_changed"
	EventIdentifierAllocated   AuditEvent = "identifier_allocated"
	EventProfileImageUpdated   AuditEvent = "profile_image_updated"
	EventVolunteerDeleted      AuditEvent = "volunteer_deleted"
	EventCredentialIssued      AuditEvent = "credential_issued"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventApplicationSubmitted:  CategoryCompliance,
	EventApplicationSuperseded: CategoryCompliance,
	EventStatusChanged:         CategoryCompliance,
	EventIdentifierAllocated:   CategoryCompliance,
	EventProfileImageUpdated:   CategoryCompliance,
	EventVolunteerDeleted:      CategoryCompliance,
	EventCredentialIssued:      CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted from domain logic to capture key actions. It never carries
// applicant contact or government-ID data.
type Event struct {
	ID          uuid.UUID
	Category    EventCategory
	Timestamp   time.Time
	Action      string
	Subject     string // internal record id
	VolunteerID string // public identifier, when bound
	ActorID     string // caller who performed the action
	Reason      string // status change detail, e.g. "pending->active"
	RequestID   string
	ClientIP    string
}

// Store persists audit events. Implementations join the caller's transaction when
// ctx carries one.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}
