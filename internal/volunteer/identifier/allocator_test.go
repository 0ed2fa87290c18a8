package identifier

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"volid/internal/volunteer/models"
	dErrors "volid/pkg/domain-errors"
)

type stubStore struct {
	mu    sync.Mutex
	taken map[models.VolunteerID]bool
	err   error
	calls atomic.Int32
}

func newStubStore(taken ...models.VolunteerID) *stubStore {
	s := &stubStore{taken: make(map[models.VolunteerID]bool)}
	for _, vid := range taken {
		s.taken[vid] = true
	}
	return s
}

func (s *stubStore) VolunteerIDExists(_ context.Context, vid models.VolunteerID) (bool, error) {
	s.calls.Add(1)
	if s.err != nil {
		return false, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taken[vid], nil
}

// sequence returns suffixes in order, repeating the last one.
func sequence(values ...int) func() int {
	var mu sync.Mutex
	i := 0
	return func() int {
		mu.Lock()
		defer mu.Unlock()
		v := values[min(i, len(values)-1)]
		i++
		return v
	}
}

type AllocatorSuite struct {
	suite.Suite
	ctx     context.Context
	joining time.Time
}

func TestAllocatorSuite(t *testing.T) {
	suite.Run(t, new(AllocatorSuite))
}

func (s *AllocatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.joining = time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
}

func (s *AllocatorSuite) TestFormat() {
	a, err := New("VOL", newStubStore())
	s.Require().NoError(err)

	vid, err := a.Allocate(s.ctx, s.joining)
	s.Require().NoError(err)
	s.Regexp(regexp.MustCompile(`^VOL050326[1-9][0-9]{3}$`), string(vid))
}

func (s *AllocatorSuite) TestRejectsBadPrefix() {
	_, err := New("vol-1", newStubStore())
	s.Error(err)
}

func (s *AllocatorSuite) TestSkipsTakenCandidates() {
	store := newStubStore("VOL0503261000", "VOL0503261001")
	a, err := New("VOL", store, WithSuffixSource(sequence(1000, 1001, 1002)))
	s.Require().NoError(err)

	vid, err := a.Allocate(s.ctx, s.joining)
	s.Require().NoError(err)
	s.Equal(models.VolunteerID("VOL0503261002"), vid)
	s.Equal(int32(3), store.calls.Load())
}

func (s *AllocatorSuite) TestSkipsReservedCandidates() {
	reserver := NewMemoryReserver(time.Minute)
	ok, err := reserver.Reserve(s.ctx, "VOL0503261000")
	s.Require().NoError(err)
	s.Require().True(ok)

	a, err := New("VOL", newStubStore(), WithReserver(reserver), WithSuffixSource(sequence(1000, 1500)))
	s.Require().NoError(err)

	vid, err := a.Allocate(s.ctx, s.joining)
	s.Require().NoError(err)
	s.Equal(models.VolunteerID("VOL0503261500"), vid)
}

func (s *AllocatorSuite) TestExhaustionIsBounded() {
	store := newStubStore("VOL0503264242")
	a, err := New("VOL", store, WithMaxAttempts(8), WithSuffixSource(sequence(4242)))
	s.Require().NoError(err)

	_, err = a.Allocate(s.ctx, s.joining)
	s.True(dErrors.HasCode(err, dErrors.CodeAllocationExhausted))
	s.Equal(int32(8), store.calls.Load())
}

func (s *AllocatorSuite) TestCancelledContextStopsLoop() {
	store := newStubStore()
	a, err := New("VOL", store)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err = a.Allocate(ctx, s.joining)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
	s.Equal(int32(0), store.calls.Load())
}

func (s *AllocatorSuite) TestStoreErrorPropagates() {
	store := newStubStore()
	store.err = errors.New("connection reset")
	a, err := New("VOL", store)
	s.Require().NoError(err)

	_, err = a.Allocate(s.ctx, s.joining)
	s.ErrorIs(err, store.err)
}

// TestConcurrentAllocationsAreUnique draws from a narrow suffix range so that
// collisions are frequent; the reserver must still keep every result distinct.
func (s *AllocatorSuite) TestConcurrentAllocationsAreUnique() {
	var counter atomic.Int32
	narrow := func() int {
		return models.SuffixMin + int(counter.Add(1)%64)
	}
	a, err := New("VOL", newStubStore(),
		WithReserver(NewMemoryReserver(time.Minute)),
		WithSuffixSource(narrow),
		WithMaxAttempts(512),
	)
	s.Require().NoError(err)

	const goroutines = 48
	results := make(chan models.VolunteerID, goroutines)
	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vid, err := a.Allocate(s.ctx, s.joining)
			if err == nil {
				results <- vid
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[models.VolunteerID]bool)
	for vid := range results {
		s.False(seen[vid], "duplicate identifier %s", vid)
		seen[vid] = true
	}
	s.Len(seen, goroutines)
}

func TestMemoryReserverExpiry(t *testing.T) {
	r := NewMemoryReserver(time.Minute)
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	ok, _ := r.Reserve(context.Background(), "VOL0503261234")
	if !ok {
		t.Fatal("first reservation should succeed")
	}
	ok, _ = r.Reserve(context.Background(), "VOL0503261234")
	if ok {
		t.Fatal("second reservation inside TTL should fail")
	}
	now = now.Add(2 * time.Minute)
	ok, _ = r.Reserve(context.Background(), "VOL0503261234")
	if !ok {
		t.Fatal("reservation after TTL should succeed")
	}
}
