//go:build integration

package containers

import (
	"sync"
	"testing"
)

// Manager shares one container per backend across all suites of a test
// binary. Ryuk removes the containers when the binary exits.
type Manager struct {
	redisOnce    sync.Once
	redis        *RedisContainer
	postgresOnce sync.Once
	postgres     *PostgresContainer
}

var (
	managerOnce sync.Once
	manager     *Manager
)

func GetManager() *Manager {
	managerOnce.Do(func() {
		manager = &Manager{}
	})
	return manager
}

func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	m.redisOnce.Do(func() {
		m.redis = NewRedisContainer(t)
	})
	if m.redis == nil {
		t.Fatal("redis container failed to start earlier in this run")
	}
	return m.redis
}

func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	m.postgresOnce.Do(func() {
		m.postgres = NewPostgresContainer(t)
	})
	if m.postgres == nil {
		t.Fatal("postgres container failed to start earlier in this run")
	}
	return m.postgres
}
