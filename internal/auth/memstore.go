package auth

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a process-local UserStore for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]User
	byEmail map[string]int64
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[int64]User),
		byEmail: make(map[string]int64),
		now:     time.Now,
	}
}

func (m *MemoryStore) UserByID(_ context.Context, id int64) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok || !u.IsActive {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *MemoryStore) FindUser(_ context.Context, id int64) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// UserByEmail returns inactive accounts too; login decides what to do with them.
func (m *MemoryStore) UserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[normalizeEmail(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return m.byID[id], nil
}

func (m *MemoryStore) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLogin = &at
	m.byID[id] = u
	return nil
}

func (m *MemoryStore) CreateUser(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := normalizeEmail(u.Email)
	if _, exists := m.byEmail[email]; exists {
		return User{}, ErrConflict
	}
	m.nextID++
	now := m.now().UTC()
	u.ID = m.nextID
	u.Email = email
	u.CreatedAt = now
	u.UpdatedAt = now
	m.byID[u.ID] = u
	m.byEmail[email] = u.ID
	return u, nil
}

func (m *MemoryStore) UpdateUser(_ context.Context, id int64, upd UserUpdate) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.Address != nil {
		u.Address = *upd.Address
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	u.UpdatedAt = m.now().UTC()
	m.byID[id] = u
	return u, nil
}

func (m *MemoryStore) ListUsers(_ context.Context, limit, offset int) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]User, 0, len(m.byID))
	for _, u := range m.byID {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset >= len(all) {
		return []User{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// MemoryProjects is a process-local ProjectStore.
type MemoryProjects struct {
	mu       sync.RWMutex
	refs     map[int64]ProjectRef
	progress map[int64]int
}

func NewMemoryProjects(refs ...ProjectRef) *MemoryProjects {
	m := &MemoryProjects{refs: make(map[int64]ProjectRef), progress: make(map[int64]int)}
	for _, ref := range refs {
		m.refs[ref.ID] = ref
	}
	return m
}

func (m *MemoryProjects) ProjectRef(_ context.Context, id int64) (ProjectRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ref, ok := m.refs[id]
	if !ok {
		return ProjectRef{}, ErrNotFound
	}
	return ref, nil
}

func (m *MemoryProjects) SetProgress(_ context.Context, id int64, progress int) error {
	if progress < 0 || progress > 100 {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.refs[id]; !ok {
		return ErrNotFound
	}
	m.progress[id] = progress
	return nil
}

// Progress reports the last value stored for id.
func (m *MemoryProjects) Progress(id int64) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.progress[id]
	return p, ok
}
