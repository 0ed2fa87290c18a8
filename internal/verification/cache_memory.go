package verification

import (
	"context"
	"sync"
	"time"

	"volid/internal/volunteer/models"
)

type memoryEntry struct {
	status    *PublicStatus
	expiresAt time.Time
}

// MemoryCache is the single-process Cache. Generations are never pruned; there is
// one counter per identifier that was ever invalidated.
type MemoryCache struct {
	mu          sync.Mutex
	ttl         time.Duration
	entries     map[models.VolunteerID]memoryEntry
	generations map[models.VolunteerID]uint64
	now         func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MemoryCache{
		ttl:         ttl,
		entries:     make(map[models.VolunteerID]memoryEntry),
		generations: make(map[models.VolunteerID]uint64),
		now:         time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, vid models.VolunteerID) (*PublicStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[vid]
	if !ok {
		return nil, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, vid)
		return nil, nil
	}
	out := *e.status
	return &out, nil
}

func (c *MemoryCache) Generation(_ context.Context, vid models.VolunteerID) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[vid], nil
}

func (c *MemoryCache) SetIfCurrent(_ context.Context, vid models.VolunteerID, gen uint64, status *PublicStatus) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[vid] != gen {
		return false, nil
	}
	stored := *status
	c.entries[vid] = memoryEntry{status: &stored, expiresAt: c.now().Add(c.ttl)}
	return true, nil
}

func (c *MemoryCache) Invalidate(_ context.Context, vid models.VolunteerID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[vid]++
	delete(c.entries, vid)
	return nil
}
