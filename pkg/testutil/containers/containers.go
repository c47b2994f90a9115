//go:build integration

// Package containers starts the backing services integration tests run
// against: Postgres and Redis for the consent repositories, Kafka for the
// audit sink. Each container starts once per test binary and is shared; Ryuk
// removes it when the process exits, so tests call Reset instead of
// restarting.
package containers

import (
	"sync"
	"testing"

	"github.com/testcontainers/testcontainers-go"
)

// Manager hands out the shared containers.
type Manager struct {
	mu       sync.Mutex
	postgres *PostgresContainer
	redis    *RedisContainer
	kafka    *KafkaContainer
}

var manager = &Manager{}

// GetManager returns the process-wide manager.
func GetManager() *Manager {
	return manager
}

func shared[T any](t *testing.T, m *Manager, slot **T, start func(*testing.T) *T) *T {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	m.mu.Lock()
	defer m.mu.Unlock()
	if *slot == nil {
		*slot = start(t)
	}
	return *slot
}

// GetPostgres returns the Postgres container with the consent schema applied.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	return shared(t, m, &m.postgres, NewPostgresContainer)
}

// GetRedis returns the Redis container.
func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	return shared(t, m, &m.redis, NewRedisContainer)
}

// GetKafka returns the Kafka container.
func (m *Manager) GetKafka(t *testing.T) *KafkaContainer {
	t.Helper()
	return shared(t, m, &m.kafka, NewKafkaContainer)
}
