//go:build integration

// Package containers starts Postgres, Redis and Redpanda once per test binary
// and hands the same instance to every suite that asks for it.
package containers

import (
	"sync"
	"testing"
)

type Manager struct {
	postgres shared[*PostgresContainer]
	redis    shared[*RedisContainer]
	kafka    shared[*KafkaContainer]
}

var manager = &Manager{}

func GetManager() *Manager { return manager }

func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	return m.postgres.get(t, NewPostgresContainer)
}

func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	return m.redis.get(t, NewRedisContainer)
}

func (m *Manager) GetKafka(t *testing.T) *KafkaContainer {
	t.Helper()
	return m.kafka.get(t, NewKafkaContainer)
}

// shared holds one lazily started container. A failed start is not cached,
// so a later suite retries.
type shared[C any] struct {
	mu      sync.Mutex
	started bool
	c       C
}

func (s *shared[C]) get(t *testing.T, start func(*testing.T) C) C {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.c = start(t)
		s.started = true
	}
	return s.c
}
