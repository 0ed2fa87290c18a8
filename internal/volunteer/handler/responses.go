package handler

import (
	"time"

	"volid/internal/volunteer/models"
)

// VolunteerResponse is the record as seen by its owner and by admins.
type VolunteerResponse struct {
	ID                string     `json:"id"`
	VolunteerID       string     `json:"volunteer_id,omitempty"`
	FullName          string     `json:"full_name"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone"`
	EmergencyContact  string     `json:"emergency_contact"`
	Gender            string     `json:"gender,omitempty"`
	Address           string     `json:"address,omitempty"`
	City              string     `json:"city,omitempty"`
	Occupation        string     `json:"occupation,omitempty"`
	GovernmentIDType  string     `json:"government_id_type"`
	GovernmentIDImage string     `json:"government_id_image,omitempty"`
	ProfileImage      string     `json:"profile_image,omitempty"`
	Availability      string     `json:"availability,omitempty"`
	Skills            []string   `json:"skills"`
	DateOfBirth       string     `json:"date_of_birth"`
	JoiningDate       string     `json:"joining_date"`
	Status            string     `json:"status"`
	RejectionReason   string     `json:"rejection_reason,omitempty"`
	BanReason         string     `json:"ban_reason,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	ActivatedAt       *time.Time `json:"activated_at,omitempty"`
}

type ListResponse struct {
	Volunteers []VolunteerResponse `json:"volunteers"`
	Count      int                 `json:"count"`
}

func FromVolunteer(v *models.Volunteer) VolunteerResponse {
	skills := v.Skills
	if skills == nil {
		skills = []string{}
	}
	return VolunteerResponse{
		ID:                v.ID.String(),
		VolunteerID:       string(v.VolunteerID),
		FullName:          v.FullName,
		Email:             v.Email,
		Phone:             v.Phone,
		EmergencyContact:  v.EmergencyContact,
		Gender:            v.Gender,
		Address:           v.Address,
		City:              v.City,
		Occupation:        v.Occupation,
		GovernmentIDType:  v.GovernmentIDType,
		GovernmentIDImage: v.GovernmentIDImage,
		ProfileImage:      v.ProfileImage,
		Availability:      v.Availability,
		Skills:            skills,
		DateOfBirth:       v.DateOfBirth.Format(dateLayout),
		JoiningDate:       v.JoiningDate.Format(dateLayout),
		Status:            string(v.Status),
		RejectionReason:   v.RejectionReason,
		BanReason:         v.BanReason,
		CreatedAt:         v.CreatedAt,
		UpdatedAt:         v.UpdatedAt,
		ActivatedAt:       v.ActivatedAt,
	}
}

func FromVolunteers(vs []*models.Volunteer) ListResponse {
	out := ListResponse{Volunteers: make([]VolunteerResponse, 0, len(vs)), Count: len(vs)}
	for _, v := range vs {
		out.Volunteers = append(out.Volunteers, FromVolunteer(v))
	}
	return out
}
