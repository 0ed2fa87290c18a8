package identifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"volid/internal/volunteer/models"
)

// DefaultReservationTTL outlives the transition transaction that persists the
// identifier.
const DefaultReservationTTL = 2 * time.Minute

// MemoryReserver holds reservations in process memory (single instance deployments).
type MemoryReserver struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	reserved map[models.VolunteerID]time.Time
}

func NewMemoryReserver(ttl time.Duration) *MemoryReserver {
	if ttl <= 0 {
		ttl = DefaultReservationTTL
	}
	return &MemoryReserver{
		ttl:      ttl,
		now:      time.Now,
		reserved: make(map[models.VolunteerID]time.Time),
	}
}

func (r *MemoryReserver) Reserve(_ context.Context, vid models.VolunteerID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if expiresAt, ok := r.reserved[vid]; ok && now.Before(expiresAt) {
		return false, nil
	}
	r.reserved[vid] = now.Add(r.ttl)

	// Opportunistic sweep keeps the map bounded by the TTL window.
	for k, exp := range r.reserved {
		if !now.Before(exp) {
			delete(r.reserved, k)
		}
	}
	return true, nil
}

// RedisReserver reserves candidates with SET NX so every instance sharing the
// Redis deployment sees the same claims.
type RedisReserver struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisReserver(client *redis.Client, ttl time.Duration) *RedisReserver {
	if ttl <= 0 {
		ttl = DefaultReservationTTL
	}
	return &RedisReserver{
		client: client,
		ttl:    ttl,
		prefix: "volid:idreserve:",
	}
}

func (r *RedisReserver) Reserve(ctx context.Context, vid models.VolunteerID) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.prefix+string(vid), "1", r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis reserve identifier: %w", err)
	}
	return ok, nil
}
