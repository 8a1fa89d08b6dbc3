package profile

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps profiles in process memory. The profile service
// falls back to it when no database is configured.
type MemoryRepository struct {
	mu       sync.Mutex
	profiles map[string]*Profile // lower(email) -> profile
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{profiles: make(map[string]*Profile)}
}

func (m *MemoryRepository) FindByEmail(_ context.Context, email string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	c := *p
	return &c, nil
}

func (m *MemoryRepository) Create(_ context.Context, req CreateRequest) (*Profile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(req.Email)
	if p, ok := m.profiles[key]; ok {
		c := *p
		return &c, false, nil
	}

	p := &Profile{
		ID:           uuid.NewString(),
		ExternalID:   req.ExternalID,
		Email:        req.Email,
		Role:         req.Role,
		Name:         req.Name,
		Balance:      req.Balance,
		BusinessName: req.BusinessName,
		Status:       "active",
		CreatedAt:    time.Now().UTC(),
	}
	m.profiles[key] = p

	c := *p
	return &c, true, nil
}

func (m *MemoryRepository) UpdateExternalID(_ context.Context, email, externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[strings.ToLower(email)]
	if !ok {
		return ErrNotFound
	}
	p.ExternalID = externalID
	return nil
}

func (m *MemoryRepository) Ping(context.Context) error { return nil }
