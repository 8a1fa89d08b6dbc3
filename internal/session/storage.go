package session

import (
	"context"
	"sync"
)

// Storage persists the serialized identity record of a tab scope.
// Load returns nil data and a nil error when nothing is stored.
type Storage interface {
	Load(ctx context.Context, scope string) ([]byte, error)
	Save(ctx context.Context, scope string, data []byte) error
	Delete(ctx context.Context, scope string) error
}

// MemoryStorage keeps records in process memory. It is what a tab gets
// when no shared storage is configured.
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (m *MemoryStorage) Load(_ context.Context, scope string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.data[scope]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), b...), nil
}

func (m *MemoryStorage) Save(_ context.Context, scope string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[scope] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, scope string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, scope)
	return nil
}
