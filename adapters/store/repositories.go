package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/all2prosperity/audio-svc/domain/entities"
	"github.com/all2prosperity/audio-svc/domain/repositories"
)

type RoleRepository struct {
	db *gorm.DB
}

var _ repositories.RoleRepository = (*RoleRepository)(nil)

// Create implements repositories.RoleRepository
func (r *RoleRepository) Create(ctx context.Context, role *entities.Role) error {
	if role == nil {
		return errors.New("role cannot be nil")
	}
	if err := role.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(role).Error; err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}
	return nil
}

// GetByID implements repositories.RoleRepository
func (r *RoleRepository) GetByID(ctx context.Context, id string) (*entities.Role, error) {
	var role entities.Role
	if err := r.db.WithContext(ctx).First(&role, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "role", id)
	}
	return &role, nil
}

// List implements repositories.RoleRepository
func (r *RoleRepository) List(ctx context.Context) ([]*entities.Role, error) {
	roles := []*entities.Role{}
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

// EnsureDefault implements repositories.RoleRepository
func (r *RoleRepository) EnsureDefault(ctx context.Context, role *entities.Role) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(role).Error
	if err != nil {
		return fmt.Errorf("failed to seed role %s: %w", role.ID, err)
	}
	return nil
}

type UserRoleRepository struct {
	db *gorm.DB
}

var _ repositories.UserRoleRepository = (*UserRoleRepository)(nil)

// Upsert implements repositories.UserRoleRepository
func (r *UserRoleRepository) Upsert(ctx context.Context, userRole *entities.UserRole) error {
	if userRole == nil || userRole.ID == "" {
		return errors.New("user role requires a user id")
	}
	userRole.UpdatedAt = time.Now()

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role_id", "updated_at"}),
		}).
		Create(userRole).Error
	if err != nil {
		return fmt.Errorf("failed to save role of user %s: %w", userRole.ID, err)
	}
	return nil
}

// GetByUserID implements repositories.UserRoleRepository
func (r *UserRoleRepository) GetByUserID(ctx context.Context, userID string) (*entities.UserRole, error) {
	var userRole entities.UserRole
	if err := r.db.WithContext(ctx).First(&userRole, "id = ?", userID).Error; err != nil {
		return nil, notFound(err, "user role", userID)
	}
	return &userRole, nil
}

type SessionRepository struct {
	db *gorm.DB
}

var _ repositories.SessionRepository = (*SessionRepository)(nil)

// Create implements repositories.SessionRepository
func (r *SessionRepository) Create(ctx context.Context, session *entities.Session) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if err := session.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByID implements repositories.SessionRepository
func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*entities.Session, error) {
	var session entities.Session
	if err := r.db.WithContext(ctx).First(&session, "session_id = ?", sessionID).Error; err != nil {
		return nil, notFound(err, "session", sessionID)
	}
	return &session, nil
}

// Touch implements repositories.SessionRepository
func (r *SessionRepository) Touch(ctx context.Context, sessionID string) error {
	result := r.db.WithContext(ctx).
		Model(&entities.Session{}).
		Where("session_id = ?", sessionID).
		Update("updated_at", time.Now())
	if result.Error != nil {
		return fmt.Errorf("failed to touch session %s: %w", sessionID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("session %s: %w", sessionID, repositories.ErrNotFound)
	}
	return nil
}

// ListByUser implements repositories.SessionRepository
func (r *SessionRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*entities.Session, error) {
	sessions := []*entities.Session{}
	err := paginate(r.db.WithContext(ctx), offset, limit).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions of user %s: %w", userID, err)
	}
	return sessions, nil
}

// CountByUser implements repositories.SessionRepository
func (r *SessionRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.Session{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count sessions of user %s: %w", userID, err)
	}
	return count, nil
}

type SectionRepository struct {
	db *gorm.DB
}

var _ repositories.SectionRepository = (*SectionRepository)(nil)

// Create implements repositories.SectionRepository
func (r *SectionRepository) Create(ctx context.Context, section *entities.Section) error {
	if section == nil {
		return errors.New("section cannot be nil")
	}
	if section.SessionID == "" {
		return errors.New("section requires a session id")
	}
	if err := r.db.WithContext(ctx).Create(section).Error; err != nil {
		return fmt.Errorf("failed to create section: %w", err)
	}
	return nil
}

// ListBySession implements repositories.SectionRepository
func (r *SectionRepository) ListBySession(ctx context.Context, sessionID string, offset, limit int) ([]*entities.Section, error) {
	sections := []*entities.Section{}
	err := paginate(r.db.WithContext(ctx), offset, limit).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&sections).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sections of session %s: %w", sessionID, err)
	}
	return sections, nil
}

// CountBySession implements repositories.SectionRepository
func (r *SectionRepository) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.Section{}).Where("session_id = ?", sessionID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count sections of session %s: %w", sessionID, err)
	}
	return count, nil
}

// paginate applies offset and limit; a non-positive limit means no limit.
func paginate(db *gorm.DB, offset, limit int) *gorm.DB {
	if offset > 0 {
		db = db.Offset(offset)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}
	return db
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, repositories.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s %s: %w", kind, id, err)
}
