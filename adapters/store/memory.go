package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/all2prosperity/audio-svc/domain/entities"
	"github.com/all2prosperity/audio-svc/domain/repositories"
)

// MemoryStore is an in-memory implementation of repositories.Store.
// It backs tests and DATABASE_DRIVER=memory.
type MemoryStore struct {
	mu sync.RWMutex

	roles     map[string]*entities.Role
	userRoles map[string]*entities.UserRole
	sessions  map[string]*entities.Session
	sections  map[string][]*entities.Section // session_id -> sections in insertion order

	// insertion sequence, breaks timestamp ties
	seq      int64
	sequence map[string]int64
}

var _ repositories.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		roles:     make(map[string]*entities.Role),
		userRoles: make(map[string]*entities.UserRole),
		sessions:  make(map[string]*entities.Session),
		sections:  make(map[string][]*entities.Section),
		sequence:  make(map[string]int64),
	}
}

func (m *MemoryStore) Roles() repositories.RoleRepository         { return memoryRoles{m} }
func (m *MemoryStore) UserRoles() repositories.UserRoleRepository { return memoryUserRoles{m} }
func (m *MemoryStore) Sessions() repositories.SessionRepository   { return memorySessions{m} }
func (m *MemoryStore) Sections() repositories.SectionRepository   { return memorySections{m} }
func (m *MemoryStore) Close() error                               { return nil }

func (m *MemoryStore) next(key string) {
	m.seq++
	m.sequence[key] = m.seq
}

type memoryRoles struct{ m *MemoryStore }

func (r memoryRoles) Create(ctx context.Context, role *entities.Role) error {
	if role == nil {
		return errors.New("role cannot be nil")
	}
	if err := role.Validate(); err != nil {
		return err
	}

	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, exists := r.m.roles[role.ID]; exists {
		return fmt.Errorf("role %s already exists", role.ID)
	}
	r.m.putRole(role)
	return nil
}

func (r memoryRoles) GetByID(ctx context.Context, id string) (*entities.Role, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	role, exists := r.m.roles[id]
	if !exists {
		return nil, fmt.Errorf("role %s: %w", id, repositories.ErrNotFound)
	}
	roleCopy := *role
	return &roleCopy, nil
}

func (r memoryRoles) List(ctx context.Context) ([]*entities.Role, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	result := make([]*entities.Role, 0, len(r.m.roles))
	for _, role := range r.m.roles {
		roleCopy := *role
		result = append(result, &roleCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return r.m.sequence["role:"+result[i].ID] < r.m.sequence["role:"+result[j].ID]
	})
	return result, nil
}

func (r memoryRoles) EnsureDefault(ctx context.Context, role *entities.Role) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, exists := r.m.roles[role.ID]; exists {
		return nil
	}
	r.m.putRole(role)
	return nil
}

func (m *MemoryStore) putRole(role *entities.Role) {
	now := time.Now()
	role.CreatedAt = now
	role.UpdatedAt = now

	roleCopy := *role
	m.roles[role.ID] = &roleCopy
	m.next("role:" + role.ID)
}

type memoryUserRoles struct{ m *MemoryStore }

func (r memoryUserRoles) Upsert(ctx context.Context, userRole *entities.UserRole) error {
	if userRole == nil || userRole.ID == "" {
		return errors.New("user role requires a user id")
	}

	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	now := time.Now()
	userRole.UpdatedAt = now
	if existing, exists := r.m.userRoles[userRole.ID]; exists {
		userRole.CreatedAt = existing.CreatedAt
	} else {
		userRole.CreatedAt = now
	}

	userRoleCopy := *userRole
	r.m.userRoles[userRole.ID] = &userRoleCopy
	return nil
}

func (r memoryUserRoles) GetByUserID(ctx context.Context, userID string) (*entities.UserRole, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	userRole, exists := r.m.userRoles[userID]
	if !exists {
		return nil, fmt.Errorf("user role %s: %w", userID, repositories.ErrNotFound)
	}
	userRoleCopy := *userRole
	return &userRoleCopy, nil
}

type memorySessions struct{ m *MemoryStore }

func (r memorySessions) Create(ctx context.Context, session *entities.Session) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if err := session.Validate(); err != nil {
		return err
	}

	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, exists := r.m.sessions[session.SessionID]; exists {
		return fmt.Errorf("session %s already exists", session.SessionID)
	}
	if session.CreatedAt.IsZero() {
		session.Touch()
		session.CreatedAt = session.UpdatedAt
	}

	sessionCopy := *session
	r.m.sessions[session.SessionID] = &sessionCopy
	r.m.next("session:" + session.SessionID)
	return nil
}

func (r memorySessions) GetByID(ctx context.Context, sessionID string) (*entities.Session, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	session, exists := r.m.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("session %s: %w", sessionID, repositories.ErrNotFound)
	}
	sessionCopy := *session
	return &sessionCopy, nil
}

func (r memorySessions) Touch(ctx context.Context, sessionID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	session, exists := r.m.sessions[sessionID]
	if !exists {
		return fmt.Errorf("session %s: %w", sessionID, repositories.ErrNotFound)
	}
	session.Touch()
	r.m.next("session:" + sessionID)
	return nil
}

func (r memorySessions) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*entities.Session, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	owned := []*entities.Session{}
	for _, session := range r.m.sessions {
		if session.UserID == userID {
			sessionCopy := *session
			owned = append(owned, &sessionCopy)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].UpdatedAt.Equal(owned[j].UpdatedAt) {
			return owned[i].UpdatedAt.After(owned[j].UpdatedAt)
		}
		return r.m.sequence["session:"+owned[i].SessionID] > r.m.sequence["session:"+owned[j].SessionID]
	})
	return page(owned, offset, limit), nil
}

func (r memorySessions) CountByUser(ctx context.Context, userID string) (int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var count int64
	for _, session := range r.m.sessions {
		if session.UserID == userID {
			count++
		}
	}
	return count, nil
}

type memorySections struct{ m *MemoryStore }

func (r memorySections) Create(ctx context.Context, section *entities.Section) error {
	if section == nil {
		return errors.New("section cannot be nil")
	}
	if section.SessionID == "" {
		return errors.New("section requires a session id")
	}

	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if section.CreatedAt.IsZero() {
		section.CreatedAt = time.Now()
	}
	section.UpdatedAt = section.CreatedAt

	sectionCopy := *section
	r.m.sections[section.SessionID] = append(r.m.sections[section.SessionID], &sectionCopy)
	return nil
}

func (r memorySections) ListBySession(ctx context.Context, sessionID string, offset, limit int) ([]*entities.Section, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	stored := r.m.sections[sessionID]
	newestFirst := make([]*entities.Section, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		sectionCopy := *stored[i]
		newestFirst = append(newestFirst, &sectionCopy)
	}
	return page(newestFirst, offset, limit), nil
}

func (r memorySections) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	return int64(len(r.m.sections[sessionID])), nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
