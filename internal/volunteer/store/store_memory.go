package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"volid/internal/volunteer/models"
	"volid/pkg/platform/sentinel"
)

const defaultListLimit = 100

// InMemory keeps volunteer records in process memory.
//
// The global mutex guards the maps; a per-record mutex serializes Execute calls on
// one record so the validate-then-mutate callback runs without holding the global
// lock (the callback may query the store, e.g. identifier existence checks).
// Every identifier ever bound stays in issued, including those of deleted records.
type InMemory struct {
	mu            sync.RWMutex
	records       map[uuid.UUID]*models.Volunteer
	byApplicant   map[string]uuid.UUID
	byVolunteerID map[models.VolunteerID]uuid.UUID
	issued        map[models.VolunteerID]struct{}
	recordLocks   map[uuid.UUID]*sync.Mutex
}

func NewInMemory() *InMemory {
	return &InMemory{
		records:       make(map[uuid.UUID]*models.Volunteer),
		byApplicant:   make(map[string]uuid.UUID),
		byVolunteerID: make(map[models.VolunteerID]uuid.UUID),
		issued:        make(map[models.VolunteerID]struct{}),
		recordLocks:   make(map[uuid.UUID]*sync.Mutex),
	}
}

// Create inserts a new application. A rejected record held by the same applicant
// is removed in the same critical section and returned as superseded.
func (s *InMemory) Create(_ context.Context, v *models.Volunteer) (*models.Volunteer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var superseded *models.Volunteer
	if existingID, ok := s.byApplicant[v.ApplicantID]; ok {
		existing := s.records[existingID]
		if existing.Status.BlocksReapplication() {
			return nil, fmt.Errorf("applicant %s has a live application: %w", v.ApplicantID, sentinel.ErrAlreadyUsed)
		}
		superseded = existing.Clone()
		s.removeLocked(existing)
	}
	if _, ok := s.records[v.ID]; ok {
		return nil, fmt.Errorf("volunteer %s: %w", v.ID, sentinel.ErrAlreadyUsed)
	}
	if !v.VolunteerID.IsZero() {
		if _, taken := s.issued[v.VolunteerID]; taken {
			return nil, fmt.Errorf("volunteer id %s: %w", v.VolunteerID, sentinel.ErrAlreadyUsed)
		}
	}

	stored := v.Clone()
	s.records[v.ID] = stored
	s.byApplicant[v.ApplicantID] = v.ID
	if !v.VolunteerID.IsZero() {
		s.byVolunteerID[v.VolunteerID] = v.ID
		s.issued[v.VolunteerID] = struct{}{}
	}
	return superseded, nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.Volunteer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return v.Clone(), nil
}

func (s *InMemory) FindByApplicant(_ context.Context, applicantID string) (*models.Volunteer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byApplicant[applicantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.records[id].Clone(), nil
}

func (s *InMemory) FindByVolunteerID(_ context.Context, vid models.VolunteerID) (*models.Volunteer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byVolunteerID[vid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.records[id].Clone(), nil
}

// VolunteerIDExists reports whether vid was ever bound, even to a deleted record.
func (s *InMemory) VolunteerIDExists(_ context.Context, vid models.VolunteerID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.issued[vid]
	return ok, nil
}

// Execute runs fn against a copy of the record and persists the copy when fn
// succeeds. Calls on the same record are serialized. Binding an identifier that
// was ever issued before fails with sentinel.ErrAlreadyUsed.
func (s *InMemory) Execute(ctx context.Context, id uuid.UUID, fn func(*models.Volunteer) error) (*models.Volunteer, error) {
	lock := s.recordLock(id)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(current); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if current.VolunteerID != stored.VolunteerID {
		if _, taken := s.issued[current.VolunteerID]; taken {
			return nil, fmt.Errorf("volunteer id %s: %w", current.VolunteerID, sentinel.ErrAlreadyUsed)
		}
		if !stored.VolunteerID.IsZero() {
			delete(s.byVolunteerID, stored.VolunteerID)
		}
		if !current.VolunteerID.IsZero() {
			s.byVolunteerID[current.VolunteerID] = id
			s.issued[current.VolunteerID] = struct{}{}
		}
	}
	s.records[id] = current.Clone()
	return current, nil
}

func (s *InMemory) Delete(_ context.Context, id uuid.UUID) (*models.Volunteer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	s.removeLocked(v)
	return v.Clone(), nil
}

// List returns records newest first.
func (s *InMemory) List(_ context.Context, filter models.ListFilter) ([]*models.Volunteer, error) {
	s.mu.RLock()
	out := make([]*models.Volunteer, 0, len(s.records))
	for _, v := range s.records {
		if filter.Status != "" && v.Status != filter.Status {
			continue
		}
		out = append(out, v.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := max(filter.Offset, 0)
	if offset >= len(out) {
		return []*models.Volunteer{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) recordLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.recordLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.recordLocks[id] = l
	}
	return l
}

// removeLocked drops a record and its lookup indexes; issued keeps the identifier.
// Caller holds s.mu.
func (s *InMemory) removeLocked(v *models.Volunteer) {
	delete(s.records, v.ID)
	if s.byApplicant[v.ApplicantID] == v.ID {
		delete(s.byApplicant, v.ApplicantID)
	}
	if !v.VolunteerID.IsZero() {
		delete(s.byVolunteerID, v.VolunteerID)
	}
	delete(s.recordLocks, v.ID)
}
