package notification

import (
	"context"
	"time"

	"volid/internal/volunteer/models"
)

// Kind names the notification template the mail collaborator renders.
type Kind string

const (
	KindApplicationReceived Kind = "application_received"
	KindVolunteerApproved   Kind = "volunteer_approved"
)

// Message is the payload handed to the notification collaborator. It carries the
// recipient address and the fields the templates need, nothing else.
type Message struct {
	Kind        Kind      `json:"kind"`
	RecordID    string    `json:"record_id"`
	To          string    `json:"to"`
	Name        string    `json:"name"`
	VolunteerID string    `json:"volunteer_id,omitempty"`
	Status      string    `json:"status"`
	RequestID   string    `json:"request_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Sender delivers one message. Errors are delivery errors; callers log them.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

func ApplicationReceived(v *models.Volunteer, now time.Time) Message {
	return Message{
		Kind:      KindApplicationReceived,
		RecordID:  v.ID.String(),
		To:        v.Email,
		Name:      v.FullName,
		Status:    string(v.Status),
		CreatedAt: now,
	}
}

// Approved describes a transition into active or temporary, including the
// identifier the record now carries.
func Approved(v *models.Volunteer, now time.Time) Message {
	return Message{
		Kind:        KindVolunteerApproved,
		RecordID:    v.ID.String(),
		To:          v.Email,
		Name:        v.FullName,
		VolunteerID: string(v.VolunteerID),
		Status:      string(v.Status),
		CreatedAt:   now,
	}
}
