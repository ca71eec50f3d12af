package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockCache provides an in-memory implementation for tests and for
// running without Redis. TTLs are ignored.
type MockCache struct {
	mu   sync.Mutex
	data map[uuid.UUID]string
}

func NewMockCache() *MockCache {
	return &MockCache{
		data: make(map[uuid.UUID]string),
	}
}

func (m *MockCache) Close() error {
	return nil
}

func (m *MockCache) IsUnchanged(ctx context.Context, feedID uuid.UUID, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[feedID] == hash, nil
}

func (m *MockCache) Remember(ctx context.Context, feedID uuid.UUID, hash string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[feedID] = hash
	return nil
}

func (m *MockCache) Forget(ctx context.Context, feedID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, feedID)
	return nil
}
