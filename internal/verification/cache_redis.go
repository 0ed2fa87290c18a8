package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"volid/internal/volunteer/models"
)

const (
	verifyKeyPrefix = "volid:verify:"

	DefaultCacheTTL = 60 * time.Second

	// generationTTL outlives any in-flight load by a wide margin.
	generationTTL = 24 * time.Hour
)

// setIfCurrent writes the view only while the generation key still holds the
// value the loader read. A missing generation key counts as 0.
var setIfCurrent = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if (current or '0') ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// RedisCache stores public views as JSON with a fixed TTL, next to a generation
// counter that Invalidate bumps.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Both keys share a hash tag so the script stays on one slot.
func viewKey(vid models.VolunteerID) string {
	return verifyKeyPrefix + "{" + string(vid) + "}"
}

func generationKey(vid models.VolunteerID) string {
	return verifyKeyPrefix + "{" + string(vid) + "}:gen"
}

func (c *RedisCache) Get(ctx context.Context, vid models.VolunteerID) (*PublicStatus, error) {
	raw, err := c.client.Get(ctx, viewKey(vid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var status PublicStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("decode cached status %s: %w", vid, err)
	}
	return &status, nil
}

func (c *RedisCache) Generation(ctx context.Context, vid models.VolunteerID) (uint64, error) {
	gen, err := c.client.Get(ctx, generationKey(vid)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read cache generation %s: %w", vid, err)
	}
	return gen, nil
}

func (c *RedisCache) SetIfCurrent(ctx context.Context, vid models.VolunteerID, gen uint64, status *PublicStatus) (bool, error) {
	raw, err := json.Marshal(status)
	if err != nil {
		return false, fmt.Errorf("encode status %s: %w", vid, err)
	}
	stored, err := setIfCurrent.Run(ctx, c.client,
		[]string{generationKey(vid), viewKey(vid)},
		strconv.FormatUint(gen, 10), raw, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("store cached status %s: %w", vid, err)
	}
	return stored == 1, nil
}

// Invalidate bumps the generation and drops the view in one transaction.
func (c *RedisCache) Invalidate(ctx context.Context, vid models.VolunteerID) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(vid))
		pipe.Expire(ctx, generationKey(vid), generationTTL)
		pipe.Del(ctx, viewKey(vid))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate cached status %s: %w", vid, err)
	}
	return nil
}
