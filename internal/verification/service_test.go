package verification

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"volid/internal/volunteer/models"
	"volid/internal/volunteer/store"
	dErrors "volid/pkg/domain-errors"
)

// countingStore counts lookups and optionally holds them until release is closed.
// With holdAfterRead the record is read first and returned after the release.
type countingStore struct {
	Store
	calls         atomic.Int32
	release       chan struct{}
	holdAfterRead bool
}

func (s *countingStore) FindByVolunteerID(ctx context.Context, vid models.VolunteerID) (*models.Volunteer, error) {
	if s.holdAfterRead {
		v, err := s.Store.FindByVolunteerID(ctx, vid)
		s.calls.Add(1)
		<-s.release
		return v, err
	}
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Store.FindByVolunteerID(ctx, vid)
}

type VerificationSuite struct {
	suite.Suite
	store  *store.InMemory
	logger *slog.Logger
	ctx    context.Context
	active *models.Volunteer
}

func TestVerificationSuite(t *testing.T) {
	suite.Run(t, new(VerificationSuite))
}

func (s *VerificationSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.active = s.seed("applicant-1", models.StatusActive, "VOL0503264821")
}

func (s *VerificationSuite) seed(applicant string, status models.Status, vid models.VolunteerID) *models.Volunteer {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	v, err := models.NewVolunteer(uuid.New(), applicant, models.Application{
		FullName:          "Amara Okafor",
		Email:             "amara@example.org",
		Phone:             "+234 801 234 5678",
		EmergencyContact:  "+234 809 876 5432",
		Address:           "12 Marina Road",
		GovernmentIDType:  "passport",
		GovernmentIDImage: "https://files.example.org/ids/passport.png",
		ProfileImage:      "https://files.example.org/photos/amara.png",
		TermsAccepted:     true,
		DateOfBirth:       time.Date(1995, 7, 14, 0, 0, 0, 0, time.UTC),
		JoiningDate:       time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
	}, now)
	s.Require().NoError(err)
	_, err = s.store.Create(s.ctx, v)
	s.Require().NoError(err)

	out, err := s.store.Execute(s.ctx, v.ID, func(v *models.Volunteer) error {
		if !vid.IsZero() {
			if err := v.BindVolunteerID(vid, now); err != nil {
				return err
			}
		}
		reason := ""
		if status.RequiresReason() {
			reason = "conduct complaint"
		}
		v.ApplyTransition(status, reason, now)
		return nil
	})
	s.Require().NoError(err)
	return out
}

func (s *VerificationSuite) TestVerifyActiveVolunteer() {
	svc := New("VOL", s.store, WithLogger(s.logger))

	status, err := svc.Verify(s.ctx, "VOL0503264821")
	s.Require().NoError(err)
	s.True(status.Verified)
	s.Equal("active", status.Status)
	s.Equal("VOL0503264821", status.VolunteerID)
	s.Equal("Amara Okafor", status.Name)
	s.Equal(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), status.MemberSince)
	s.Equal("https://files.example.org/photos/amara.png", status.ProfileImage)
}

func (s *VerificationSuite) TestVerifyNormalizesInput() {
	svc := New("VOL", s.store, WithLogger(s.logger))

	status, err := svc.Verify(s.ctx, "  vol0503264821 ")
	s.Require().NoError(err)
	s.Equal("VOL0503264821", status.VolunteerID)
}

func (s *VerificationSuite) TestMalformedAndUnknownLookLikeNotFound() {
	svc := New("VOL", s.store, WithLogger(s.logger))

	for _, raw := range []string{"", "VOL", "XYZ0503264821", "VOL0503260821", "VOL3202261234", "VOL050326482", "VOL0503269999"} {
		_, err := svc.Verify(s.ctx, raw)
		s.Require().Error(err, raw)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound), raw)
		s.Equal("volunteer not found", dErrors.MessageOf(err), raw)
	}
}

func (s *VerificationSuite) TestBannedVolunteerIsNotVerified() {
	s.seed("applicant-2", models.StatusBanned, "VOL0503261111")
	svc := New("VOL", s.store, WithLogger(s.logger))

	status, err := svc.Verify(s.ctx, "VOL0503261111")
	s.Require().NoError(err)
	s.False(status.Verified)
	s.Equal("banned", status.Status)
}

func (s *VerificationSuite) TestPublicViewCarriesOnlyPublicFields() {
	banned := s.seed("applicant-3", models.StatusBanned, "VOL0503262222")
	for _, v := range []*models.Volunteer{s.active, banned} {
		raw, err := json.Marshal(FromVolunteer(v))
		s.Require().NoError(err)

		var fields map[string]any
		s.Require().NoError(json.Unmarshal(raw, &fields))
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		s.ElementsMatch([]string{"name", "volunteer_id", "status", "verified", "member_since", "profile_image"}, keys)

		body := string(raw)
		for _, secret := range []string{v.Email, "801 234", "809 876", "Marina", "passport", "conduct complaint", v.ID.String(), v.ApplicantID} {
			s.NotContains(body, secret)
		}
	}
}

func (s *VerificationSuite) TestLocalProfileImageIsOmitted() {
	v := s.active.Clone()
	v.ProfileImage = "uploads/amara.png"
	s.Empty(FromVolunteer(v).ProfileImage)
}

func (s *VerificationSuite) TestCacheReadThroughAndInvalidate() {
	counting := &countingStore{Store: s.store}
	cache := NewMemoryCache(time.Minute)
	svc := New("VOL", counting, WithCache(cache), WithLogger(s.logger))

	_, err := svc.Verify(s.ctx, "VOL0503264821")
	s.Require().NoError(err)
	_, err = svc.Verify(s.ctx, "VOL0503264821")
	s.Require().NoError(err)
	s.Equal(int32(1), counting.calls.Load())

	_, err = s.store.Execute(s.ctx, s.active.ID, func(v *models.Volunteer) error {
		v.ApplyTransition(models.StatusBanned, "no-show", time.Now())
		return nil
	})
	s.Require().NoError(err)
	svc.Invalidate(s.ctx, "VOL0503264821")
	cached, err := cache.Get(s.ctx, "VOL0503264821")
	s.Require().NoError(err)
	s.Nil(cached)

	status, err := svc.Verify(s.ctx, "VOL0503264821")
	s.Require().NoError(err)
	s.False(status.Verified)
	s.Equal(int32(2), counting.calls.Load())
}

func (s *VerificationSuite) TestConcurrentLookupsShareOneStoreRead() {
	counting := &countingStore{Store: s.store, release: make(chan struct{})}
	svc := New("VOL", counting, WithLogger(s.logger))

	const callers = 16
	var wg sync.WaitGroup
	results := make([]*PublicStatus, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = svc.Verify(s.ctx, "VOL0503264821")
		}()
	}
	s.Eventually(func() bool { return counting.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(counting.release)
	wg.Wait()

	for _, r := range results {
		s.Require().NotNil(r)
		s.Equal("VOL0503264821", r.VolunteerID)
	}
	s.Less(counting.calls.Load(), int32(callers))
}

func (s *VerificationSuite) TestInvalidateDuringLoadKeepsStaleViewOutOfCache() {
	counting := &countingStore{Store: s.store, release: make(chan struct{}), holdAfterRead: true}
	cache := NewMemoryCache(time.Minute)
	svc := New("VOL", counting, WithCache(cache), WithLogger(s.logger))

	inFlight := make(chan *PublicStatus, 1)
	go func() {
		status, _ := svc.Verify(s.ctx, "VOL0503264821")
		inFlight <- status
	}()
	s.Require().Eventually(func() bool { return counting.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, err := s.store.Execute(s.ctx, s.active.ID, func(v *models.Volunteer) error {
		v.ApplyTransition(models.StatusBanned, "misconduct", time.Now())
		return nil
	})
	s.Require().NoError(err)
	svc.Invalidate(s.ctx, "VOL0503264821")
	close(counting.release)

	stale := <-inFlight
	s.Require().NotNil(stale)
	s.True(stale.Verified, "the in-flight answer reflects the read it made")

	cached, err := cache.Get(s.ctx, "VOL0503264821")
	s.Require().NoError(err)
	s.Nil(cached, "a load that started before the ban must not repopulate the cache")

	got, err := svc.Verify(s.ctx, "VOL0503264821")
	s.Require().NoError(err)
	s.False(got.Verified)
	s.Equal("banned", got.Status)
}

func (s *VerificationSuite) TestCallerDisconnectDoesNotFailOtherWaiters() {
	counting := &countingStore{Store: s.store, release: make(chan struct{})}
	svc := New("VOL", counting, WithLogger(s.logger))

	firstCtx, cancelFirst := context.WithCancel(s.ctx)
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Verify(firstCtx, "VOL0503264821")
		firstErr <- err
	}()
	s.Require().Eventually(func() bool { return counting.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	second := make(chan *PublicStatus, 1)
	go func() {
		status, err := svc.Verify(s.ctx, "VOL0503264821")
		s.NoError(err)
		second <- status
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	err := <-firstErr
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))

	close(counting.release)
	status := <-second
	s.Require().NotNil(status)
	s.True(status.Verified)
	s.Equal(int32(1), counting.calls.Load())
}

func TestMemoryCacheGenerationFencesWrites(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(time.Minute)
	now := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	gen, err := cache.Generation(ctx, "VOL0503264821")
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, "VOL0503264821"))

	stored, err := cache.SetIfCurrent(ctx, "VOL0503264821", gen, &PublicStatus{VolunteerID: "VOL0503264821"})
	require.NoError(t, err)
	assert.False(t, stored)

	gen, err = cache.Generation(ctx, "VOL0503264821")
	require.NoError(t, err)
	stored, err = cache.SetIfCurrent(ctx, "VOL0503264821", gen, &PublicStatus{VolunteerID: "VOL0503264821"})
	require.NoError(t, err)
	assert.True(t, stored)

	hit, err := cache.Get(ctx, "VOL0503264821")
	require.NoError(t, err)
	assert.NotNil(t, hit)

	now = now.Add(time.Minute)
	miss, err := cache.Get(ctx, "VOL0503264821")
	require.NoError(t, err)
	assert.Nil(t, miss)
}
