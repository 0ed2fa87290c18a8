//go:build integration

package containers

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"volid/internal/platform/config"
	"volid/internal/platform/redis"
)

const redisImage = "redis:7-alpine"

// RedisContainer is a Redis server reached through the same client
// constructor the service uses, with the pool settings from FromEnv defaults.
type RedisContainer struct {
	Container testcontainers.Container
	URL       string
	Client    *goredis.Client
	health    func(context.Context) error
}

func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, redisImage)
	if err != nil {
		abort(t, nil, "start redis container", err)
	}
	url, err := container.ConnectionString(ctx)
	if err != nil {
		abort(t, container, "redis connection string", err)
	}
	client, err := redis.New(ctx, config.RedisConfig{
		URL:          url,
		PoolSize:     10,
		MinIdleConns: 1,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err != nil {
		abort(t, container, "connect to redis", err)
	}

	return &RedisContainer{
		Container: container,
		URL:       url,
		Client:    client.Client,
		health:    client.Health,
	}
}

// Reset empties the database and confirms the server still answers.
func (r *RedisContainer) Reset(ctx context.Context) error {
	if err := r.Client.FlushDB(ctx).Err(); err != nil {
		return err
	}
	return r.health(ctx)
}
