package user

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*User
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[uuid.UUID]*User), now: time.Now}
}

func (m *MemoryStore) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if strings.EqualFold(existing.Email, u.Email) || existing.Username == u.Username {
			return ErrUserExists
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = m.now().UTC()
	u.UpdatedAt = u.CreatedAt
	m.items[u.ID] = u.clone()
	return nil
}

func (m *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u.clone(), nil
}

func (m *MemoryStore) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.items {
		if strings.EqualFold(u.Email, email) {
			return u.clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLogin = &at
	u.UpdatedAt = m.now().UTC()
	return nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items), nil
}
