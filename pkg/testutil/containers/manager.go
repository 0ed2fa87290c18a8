//go:build integration

package containers

import (
	"context"
	"sync"
	"testing"

	"github.com/testcontainers/testcontainers-go"
)

// Manager lazily starts one container per backend and shares it across the
// suites of a test binary. Ryuk reaps the containers when the binary exits, so
// nothing here registers t.Cleanup.
type Manager struct {
	mu       sync.Mutex
	postgres *PostgresContainer
	redis    *RedisContainer
	redpanda *RedpandaContainer
}

var (
	manager     *Manager
	managerOnce sync.Once
)

// GetManager returns the process-wide container manager.
func GetManager() *Manager {
	managerOnce.Do(func() {
		manager = &Manager{}
	})
	return manager
}

func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	return shared(t, m, &m.postgres, NewPostgresContainer)
}

func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	return shared(t, m, &m.redis, NewRedisContainer)
}

func (m *Manager) GetRedpanda(t *testing.T) *RedpandaContainer {
	t.Helper()
	return shared(t, m, &m.redpanda, NewRedpandaContainer)
}

// shared starts the backend in slot on first use.
func shared[C comparable](t *testing.T, m *Manager, slot *C, start func(*testing.T) C) C {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero C
	if *slot == zero {
		*slot = start(t)
	}
	return *slot
}

// abort terminates a half-started container and fails the test.
func abort(t *testing.T, c testcontainers.Container, step string, err error) {
	t.Helper()
	if c != nil {
		_ = c.Terminate(context.Background())
	}
	t.Fatalf("%s: %v", step, err)
}
