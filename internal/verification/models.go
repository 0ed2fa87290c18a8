package verification

import (
	"time"

	"volid/internal/volunteer/models"
)

// PublicStatus is everything the unauthenticated verification endpoint may
// reveal about a volunteer. Fields are added here deliberately or not at all.
type PublicStatus struct {
	Name         string    `json:"name"`
	VolunteerID  string    `json:"volunteer_id"`
	Status       string    `json:"status"`
	Verified     bool      `json:"verified"`
	MemberSince  time.Time `json:"member_since"`
	ProfileImage string    `json:"profile_image,omitempty"`
}

// FromVolunteer projects a record onto its public view.
func FromVolunteer(v *models.Volunteer) *PublicStatus {
	ps := &PublicStatus{
		Name:        v.FullName,
		VolunteerID: string(v.VolunteerID),
		Status:      string(v.Status),
		Verified:    v.Status == models.StatusActive,
		MemberSince: v.JoiningDate,
	}
	if models.IsRemoteReference(v.ProfileImage) {
		ps.ProfileImage = v.ProfileImage
	}
	return ps
}
