package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/all2prosperity/audio-svc/domain/entities"
	"github.com/all2prosperity/audio-svc/domain/repositories"
)

// RoleService manages the role catalogue and each user's current role
type RoleService struct {
	store  repositories.Store
	logger *zap.Logger
}

func NewRoleService(store repositories.Store, logger *zap.Logger) *RoleService {
	return &RoleService{store: store, logger: logger}
}

// SeedDefault makes sure the default role exists.
func (s *RoleService) SeedDefault(ctx context.Context) error {
	return s.store.Roles().EnsureDefault(ctx, entities.DefaultRole())
}

func (s *RoleService) List(ctx context.Context) ([]*entities.Role, error) {
	return s.store.Roles().List(ctx)
}

// Switch records roleID as the user's current role.
func (s *RoleService) Switch(ctx context.Context, userID, roleID string) error {
	if _, err := s.store.Roles().GetByID(ctx, roleID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrRoleNotFound
		}
		return err
	}

	if err := s.store.UserRoles().Upsert(ctx, &entities.UserRole{ID: userID, RoleID: roleID}); err != nil {
		return err
	}

	s.logger.Info("User switched role",
		zap.String("userID", userID),
		zap.String("roleID", roleID))
	return nil
}

// Current returns the user's switched role, or the default role.
func (s *RoleService) Current(ctx context.Context, userID string) (*entities.Role, error) {
	roleID := entities.DefaultRoleID

	userRole, err := s.store.UserRoles().GetByUserID(ctx, userID)
	switch {
	case err == nil:
		roleID = userRole.RoleID
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, err
	}

	role, err := s.store.Roles().GetByID(ctx, roleID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrRoleNotFound
	}
	return role, err
}
