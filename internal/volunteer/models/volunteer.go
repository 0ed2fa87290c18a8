package models

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	dErrors "volid/pkg/domain-errors"
	platformstrings "volid/pkg/platform/strings"
)

// Volunteer is the aggregate root for one applicant's application and lifecycle.
//
// Invariants:
//   - ApplicantID is immutable; at most one non-rejected record exists per applicant
//   - EmergencyContact differs from Phone
//   - TermsAccepted is true
//   - VolunteerID is assigned at most once and never changes afterwards
//   - RejectionReason is set only while Status is rejected, BanReason only while banned
//   - Status never returns to pending once left
type Volunteer struct {
	ID          uuid.UUID   `json:"id"`
	ApplicantID string      `json:"applicant_id"`
	VolunteerID VolunteerID `json:"volunteer_id,omitempty"`

	FullName          string    `json:"full_name"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone"`
	EmergencyContact  string    `json:"emergency_contact"`
	Gender            string    `json:"gender,omitempty"`
	Address           string    `json:"address,omitempty"`
	City              string    `json:"city,omitempty"`
	Occupation        string    `json:"occupation,omitempty"`
	GovernmentIDType  string    `json:"government_id_type"`
	GovernmentIDImage string    `json:"government_id_image,omitempty"`
	ProfileImage      string    `json:"profile_image,omitempty"`
	Availability      string    `json:"availability,omitempty"`
	Skills            []string  `json:"skills,omitempty"`
	TermsAccepted     bool      `json:"terms_accepted"`
	DateOfBirth       time.Time `json:"date_of_birth"`
	JoiningDate       time.Time `json:"joining_date"`

	Status          Status     `json:"status"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	BanReason       string     `json:"ban_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ActivatedAt     *time.Time `json:"activated_at,omitempty"`
}

// Application is the applicant-supplied data for a new record. Image fields carry
// URLs returned by the file-storage collaborator.
type Application struct {
	FullName          string    `validate:"required,max=128"`
	Email             string    `validate:"required,email,max=254"`
	Phone             string    `validate:"required,min=7,max=20"`
	EmergencyContact  string    `validate:"required,min=7,max=20"`
	Gender            string    `validate:"omitempty,oneof=male female other undisclosed"`
	Address           string    `validate:"max=256"`
	City              string    `validate:"max=128"`
	Occupation        string    `validate:"max=128"`
	GovernmentIDType  string    `validate:"required,oneof=passport national_id driving_license voter_id other"`
	GovernmentIDImage string    `validate:"omitempty,url,max=2048"`
	ProfileImage      string    `validate:"omitempty,url,max=2048"`
	Availability      string    `validate:"max=256"`
	Skills            []string  `validate:"max=32,dive,required,max=64"`
	TermsAccepted     bool
	DateOfBirth       time.Time `validate:"required"`
	JoiningDate       time.Time `validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewVolunteer builds a pending record from an application.
func NewVolunteer(id uuid.UUID, applicantID string, app Application, now time.Time) (*Volunteer, error) {
	if strings.TrimSpace(applicantID) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "applicant id cannot be empty")
	}
	app.Skills = platformstrings.DedupeAndTrim(app.Skills)
	if err := validate.Struct(app); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, describeValidation(err))
	}
	if !app.TermsAccepted {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "terms must be accepted")
	}
	if SamePhoneNumber(app.Phone, app.EmergencyContact) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "emergency contact must differ from phone number")
	}
	if !app.DateOfBirth.Before(now) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "date of birth must be in the past")
	}

	return &Volunteer{
		ID:                id,
		ApplicantID:       applicantID,
		FullName:          app.FullName,
		Email:             strings.ToLower(app.Email),
		Phone:             app.Phone,
		EmergencyContact:  app.EmergencyContact,
		Gender:            app.Gender,
		Address:           app.Address,
		City:              app.City,
		Occupation:        app.Occupation,
		GovernmentIDType:  app.GovernmentIDType,
		GovernmentIDImage: app.GovernmentIDImage,
		ProfileImage:      app.ProfileImage,
		Availability:      app.Availability,
		Skills:            app.Skills,
		TermsAccepted:     true,
		DateOfBirth:       truncateToDate(app.DateOfBirth),
		JoiningDate:       truncateToDate(app.JoiningDate),
		Status:            StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func (v *Volunteer) IsActive() bool {
	return v.Status == StatusActive
}

// OwnedBy reports whether the applicant identity owns the record.
func (v *Volunteer) OwnedBy(applicantID string) bool {
	return applicantID != "" && v.ApplicantID == applicantID
}

// CanTransition checks a status change request against the lifecycle graph.
// It returns changed=false for idempotent re-entry into active or temporary.
// Use with ApplyTransition in Execute callbacks.
func (v *Volunteer) CanTransition(target Status, reason string) (changed bool, err error) {
	if !target.IsValid() {
		return false, dErrors.New(dErrors.CodeInvalidStatus, "unknown status")
	}
	if target == v.Status {
		switch {
		case target.BindsIdentifier():
			return false, nil
		case target.RequiresReason():
			// Same-state: only the reason is replaced.
		default:
			return false, dErrors.New(dErrors.CodeInvalidStatus,
				fmt.Sprintf("cannot transition from %s to %s", v.Status, target))
		}
	} else if !v.Status.CanTransitionTo(target) {
		return false, dErrors.New(dErrors.CodeInvalidStatus,
			fmt.Sprintf("cannot transition from %s to %s", v.Status, target))
	}
	if target.RequiresReason() && strings.TrimSpace(reason) == "" {
		return false, dErrors.New(dErrors.CodeMissingReason,
			fmt.Sprintf("a reason is required to set status %s", target))
	}
	return true, nil
}

// NeedsVolunteerID reports whether entering target must first bind an identifier.
func (v *Volunteer) NeedsVolunteerID(target Status) bool {
	return target.BindsIdentifier() && v.VolunteerID.IsZero()
}

// BindVolunteerID assigns the public identifier. Identifiers are permanent.
func (v *Volunteer) BindVolunteerID(vid VolunteerID, now time.Time) error {
	if !v.VolunteerID.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "volunteer identifier is already assigned")
	}
	v.VolunteerID = vid
	activated := now
	v.ActivatedAt = &activated
	return nil
}

// ApplyTransition sets the status and keeps the reason fields consistent with it.
// Call CanTransition first.
func (v *Volunteer) ApplyTransition(target Status, reason string, now time.Time) {
	reason = strings.TrimSpace(reason)
	v.Status = target
	v.RejectionReason = ""
	v.BanReason = ""
	switch target {
	case StatusRejected:
		v.RejectionReason = reason
	case StatusBanned:
		v.BanReason = reason
	}
	v.UpdatedAt = now
}

// ApplyProfileImage replaces the profile image reference (owner edit).
func (v *Volunteer) ApplyProfileImage(ref string, now time.Time) error {
	ref = strings.TrimSpace(ref)
	if ref != "" && !IsRemoteReference(ref) {
		return dErrors.New(dErrors.CodeInvalidInput, "profile image must be an absolute http(s) URL")
	}
	v.ProfileImage = ref
	v.UpdatedAt = now
	return nil
}

// IsRemoteReference reports whether ref is a fully-qualified http(s) URL.
func IsRemoteReference(ref string) bool {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// SamePhoneNumber compares two phone numbers ignoring formatting characters.
func SamePhoneNumber(a, b string) bool {
	na, nb := normalizePhone(a), normalizePhone(b)
	return na != "" && na == nb
}

func normalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) || (r == '+' && b.Len() == 0) {
			b.WriteRune(r)
		}
	}
	return strings.TrimPrefix(b.String(), "+")
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("%s failed %s validation", toSnake(fe.Field()), fe.Tag())
	}
	return "invalid application"
}

func toSnake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Clone returns a deep copy safe to mutate outside the store.
func (v *Volunteer) Clone() *Volunteer {
	c := *v
	if v.Skills != nil {
		c.Skills = append([]string(nil), v.Skills...)
	}
	if v.ActivatedAt != nil {
		t := *v.ActivatedAt
		c.ActivatedAt = &t
	}
	return &c
}

// ListFilter narrows admin listings. A zero Status lists every record.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}
