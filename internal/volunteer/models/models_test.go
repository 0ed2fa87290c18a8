package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	dErrors "volid/pkg/domain-errors"
)

func validApplication() Application {
	return Application{
		FullName:         "Amara Okafor",
		Email:            "Amara@Example.org",
		Phone:            "+234 801 234 5678",
		EmergencyContact: "+234 809 876 5432",
		GovernmentIDType: "passport",
		TermsAccepted:    true,
		DateOfBirth:      time.Date(1995, 7, 14, 0, 0, 0, 0, time.UTC),
		JoiningDate:      time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
	}
}

type VolunteerModelSuite struct {
	suite.Suite
	now time.Time
}

func TestVolunteerModelSuite(t *testing.T) {
	suite.Run(t, new(VolunteerModelSuite))
}

func (s *VolunteerModelSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *VolunteerModelSuite) newPending() *Volunteer {
	v, err := NewVolunteer(uuid.New(), "user-1", validApplication(), s.now)
	s.Require().NoError(err)
	return v
}

func (s *VolunteerModelSuite) TestNewVolunteer() {
	s.Run("creates a pending record", func() {
		v := s.newPending()
		s.Equal(StatusPending, v.Status)
		s.Equal("amara@example.org", v.Email)
		s.True(v.VolunteerID.IsZero())
		s.Nil(v.ActivatedAt)
	})

	s.Run("emergency contact equal to phone is invalid input", func() {
		app := validApplication()
		app.EmergencyContact = "+2348012345678"
		_, err := NewVolunteer(uuid.New(), "user-1", app, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("terms must be accepted", func() {
		app := validApplication()
		app.TermsAccepted = false
		_, err := NewVolunteer(uuid.New(), "user-1", app, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("struct validation names the field", func() {
		app := validApplication()
		app.GovernmentIDType = "library_card"
		_, err := NewVolunteer(uuid.New(), "user-1", app, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.Contains(dErrors.MessageOf(err), "government_id_type")
	})

	s.Run("missing applicant is an invariant violation", func() {
		_, err := NewVolunteer(uuid.New(), " ", validApplication(), s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *VolunteerModelSuite) TestCanTransition() {
	cases := []struct {
		from    Status
		to      Status
		reason  string
		changed bool
		code    dErrors.Code
	}{
		{StatusPending, StatusActive, "", true, ""},
		{StatusPending, StatusTemporary, "", true, ""},
		{StatusPending, StatusRejected, "incomplete documents", true, ""},
		{StatusPending, StatusRejected, "  ", false, dErrors.CodeMissingReason},
		{StatusPending, StatusBanned, "", false, dErrors.CodeMissingReason},
		{StatusPending, StatusPending, "", false, dErrors.CodeInvalidStatus},
		{StatusActive, StatusActive, "", false, ""},
		{StatusTemporary, StatusTemporary, "", false, ""},
		{StatusActive, StatusBanned, "misconduct", true, ""},
		{StatusActive, StatusRejected, "late", false, dErrors.CodeInvalidStatus},
		{StatusActive, StatusPending, "", false, dErrors.CodeInvalidStatus},
		{StatusBanned, StatusActive, "", true, ""},
		{StatusBanned, StatusBanned, "updated reason", true, ""},
		{StatusBanned, StatusPending, "", false, dErrors.CodeInvalidStatus},
		{StatusRejected, StatusActive, "", true, ""},
		{StatusRejected, StatusRejected, "new reason", true, ""},
		{StatusTemporary, StatusRejected, "x", false, dErrors.CodeInvalidStatus},
	}
	for _, tc := range cases {
		s.Run(string(tc.from)+"->"+string(tc.to), func() {
			v := s.newPending()
			v.Status = tc.from
			changed, err := v.CanTransition(tc.to, tc.reason)
			if tc.code != "" {
				s.True(dErrors.HasCode(err, tc.code), "got %v", err)
				return
			}
			s.Require().NoError(err)
			s.Equal(tc.changed, changed)
		})
	}

	s.Run("unknown target", func() {
		_, err := s.newPending().CanTransition(Status("archived"), "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidStatus))
	})
}

func (s *VolunteerModelSuite) TestApplyTransitionKeepsReasonsConsistent() {
	v := s.newPending()
	v.ApplyTransition(StatusBanned, " misconduct ", s.now)
	s.Equal("misconduct", v.BanReason)
	s.Empty(v.RejectionReason)

	v.ApplyTransition(StatusActive, "ignored", s.now)
	s.Empty(v.BanReason)
	s.Empty(v.RejectionReason)
}

func (s *VolunteerModelSuite) TestBindVolunteerIDIsPermanent() {
	v := s.newPending()
	s.True(v.NeedsVolunteerID(StatusActive))
	s.False(v.NeedsVolunteerID(StatusBanned))

	s.Require().NoError(v.BindVolunteerID("VOL0503261234", s.now))
	s.False(v.NeedsVolunteerID(StatusActive))
	s.Require().NotNil(v.ActivatedAt)

	err := v.BindVolunteerID("VOL0503269999", s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	s.Equal(VolunteerID("VOL0503261234"), v.VolunteerID)
}

func (s *VolunteerModelSuite) TestApplyProfileImage() {
	v := s.newPending()
	s.Require().NoError(v.ApplyProfileImage("https://cdn.example.org/p/1.jpg", s.now))
	s.Equal("https://cdn.example.org/p/1.jpg", v.ProfileImage)

	err := v.ApplyProfileImage("/uploads/1.jpg", s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	s.Require().NoError(v.ApplyProfileImage("", s.now))
	s.Empty(v.ProfileImage)
}

func (s *VolunteerModelSuite) TestNewVolunteerNormalizesSkills() {
	app := validApplication()
	app.Skills = []string{" first aid", "logistics", "first aid ", "  "}

	v, err := NewVolunteer(uuid.New(), "user-1", app, s.now)
	s.Require().NoError(err)
	s.Equal([]string{"first aid", "logistics"}, v.Skills)
}

func TestVolunteerIDFormat(t *testing.T) {
	joining := time.Date(2026, 3, 5, 23, 30, 0, 0, time.UTC)

	vid, err := NewVolunteerID("VOL", joining, 1234)
	require.NoError(t, err)
	assert.Equal(t, VolunteerID("VOL0503261234"), vid)

	_, err = NewVolunteerID("VOL", joining, 999)
	assert.Error(t, err)
	_, err = NewVolunteerID("vol", joining, 1234)
	assert.Error(t, err)
	_, err = NewVolunteerID("TOOLONG", joining, 1234)
	assert.Error(t, err)
}

func TestParseVolunteerID(t *testing.T) {
	cases := []struct {
		in   string
		want VolunteerID
		ok   bool
	}{
		{"VOL0503261234", "VOL0503261234", true},
		{" vol0503261234 ", "VOL0503261234", true},
		{"VOL050326123", "", false},
		{"VOL0503260123", "", false},
		{"VOL3202261234", "", false},
		{"ABC0503261234", "", false},
		{"VOL05032612A4", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseVolunteerID("VOL", tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" Active ")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, st)

	_, err = ParseStatus("archived")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidStatus))
}

func TestSamePhoneNumber(t *testing.T) {
	assert.True(t, SamePhoneNumber("+1 (555) 010-2000", "15550102000"))
	assert.False(t, SamePhoneNumber("+1 555 010 2000", "+1 555 010 2001"))
	assert.False(t, SamePhoneNumber("", ""))
}

func TestIsRemoteReference(t *testing.T) {
	assert.True(t, IsRemoteReference("https://cdn.example.org/a.png"))
	assert.True(t, IsRemoteReference("http://cdn.example.org/a.png"))
	assert.False(t, IsRemoteReference("ftp://cdn.example.org/a.png"))
	assert.False(t, IsRemoteReference("uploads/a.png"))
	assert.False(t, IsRemoteReference("https:///a.png"))
}
