package repositories

import (
	"context"
	"errors"

	"github.com/all2prosperity/audio-svc/domain/entities"
)

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("record not found")

// RoleRepository defines data access methods for roles
type RoleRepository interface {
	Create(ctx context.Context, role *entities.Role) error
	GetByID(ctx context.Context, id string) (*entities.Role, error)
	List(ctx context.Context) ([]*entities.Role, error)
	// EnsureDefault inserts role unless a role with the same id exists.
	EnsureDefault(ctx context.Context, role *entities.Role) error
}

// UserRoleRepository stores the role each user switched to
type UserRoleRepository interface {
	Upsert(ctx context.Context, userRole *entities.UserRole) error
	GetByUserID(ctx context.Context, userID string) (*entities.UserRole, error)
}

// SessionRepository defines data access methods for chat sessions
type SessionRepository interface {
	Create(ctx context.Context, session *entities.Session) error
	GetByID(ctx context.Context, sessionID string) (*entities.Session, error)
	// Touch moves the session's updated_at to now.
	Touch(ctx context.Context, sessionID string) error
	// ListByUser returns sessions of a user, most recently updated first.
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]*entities.Session, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
}

// SectionRepository defines data access methods for session exchanges
type SectionRepository interface {
	Create(ctx context.Context, section *entities.Section) error
	// ListBySession returns sections of a session, newest first.
	ListBySession(ctx context.Context, sessionID string, offset, limit int) ([]*entities.Section, error)
	CountBySession(ctx context.Context, sessionID string) (int64, error)
}

// Store groups the repositories backed by one database.
type Store interface {
	Roles() RoleRepository
	UserRoles() UserRoleRepository
	Sessions() SessionRepository
	Sections() SectionRepository
	Close() error
}
