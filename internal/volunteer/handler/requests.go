package handler

import (
	"strconv"
	"time"

	"volid/internal/volunteer/models"
	dErrors "volid/pkg/domain-errors"
)

const dateLayout = "2006-01-02"

// ApplyRequest is the body for POST /volunteers/apply. Dates are YYYY-MM-DD.
type ApplyRequest struct {
	FullName          string   `json:"full_name"`
	Email             string   `json:"email"`
	Phone             string   `json:"phone"`
	EmergencyContact  string   `json:"emergency_contact"`
	Gender            string   `json:"gender"`
	Address           string   `json:"address"`
	City              string   `json:"city"`
	Occupation        string   `json:"occupation"`
	GovernmentIDType  string   `json:"government_id_type"`
	GovernmentIDImage string   `json:"government_id_image"`
	ProfileImage      string   `json:"profile_image"`
	Availability      string   `json:"availability"`
	Skills            []string `json:"skills"`
	TermsAccepted     bool     `json:"terms_accepted"`
	DateOfBirth       string   `json:"date_of_birth"`
	JoiningDate       string   `json:"joining_date"`

	dateOfBirth time.Time
	joiningDate time.Time
}

// Validate parses the dates. Field rules are enforced when the record is built.
func (r *ApplyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	dob, err := parseDate("date_of_birth", r.DateOfBirth)
	if err != nil {
		return err
	}
	joining, err := parseDate("joining_date", r.JoiningDate)
	if err != nil {
		return err
	}
	r.dateOfBirth, r.joiningDate = dob, joining
	return nil
}

func (r *ApplyRequest) Application() models.Application {
	return models.Application{
		FullName:          r.FullName,
		Email:             r.Email,
		Phone:             r.Phone,
		EmergencyContact:  r.EmergencyContact,
		Gender:            r.Gender,
		Address:           r.Address,
		City:              r.City,
		Occupation:        r.Occupation,
		GovernmentIDType:  r.GovernmentIDType,
		GovernmentIDImage: r.GovernmentIDImage,
		ProfileImage:      r.ProfileImage,
		Availability:      r.Availability,
		Skills:            r.Skills,
		TermsAccepted:     r.TermsAccepted,
		DateOfBirth:       r.dateOfBirth,
		JoiningDate:       r.joiningDate,
	}
}

// TransitionRequest is the body for PUT /volunteers/status/{id}.
type TransitionRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (r *TransitionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Status == "" {
		return dErrors.New(dErrors.CodeValidation, "status is required")
	}
	if len(r.Reason) > 1024 {
		return dErrors.New(dErrors.CodeValidation, "reason must be at most 1024 characters")
	}
	return nil
}

// ProfileImageRequest is the body for PATCH /volunteers/me/profile-image.
// An empty URL clears the image.
type ProfileImageRequest struct {
	ProfileImage string `json:"profile_image"`
}

func (r *ProfileImageRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.ProfileImage) > 2048 {
		return dErrors.New(dErrors.CodeValidation, "profile_image must be at most 2048 characters")
	}
	return nil
}

func parseDate(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, field+" must be a date in YYYY-MM-DD format")
	}
	return t, nil
}

// parseListFilter reads ?status=&limit=&offset=.
func parseListFilter(status, limit, offset string) (models.ListFilter, error) {
	var filter models.ListFilter
	if status != "" {
		s, err := models.ParseStatus(status)
		if err != nil {
			return filter, err
		}
		filter.Status = s
	}
	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 || n > 500 {
			return filter, dErrors.New(dErrors.CodeValidation, "limit must be between 1 and 500")
		}
		filter.Limit = n
	}
	if offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			return filter, dErrors.New(dErrors.CodeValidation, "offset must be a non-negative integer")
		}
		filter.Offset = n
	}
	return filter, nil
}
