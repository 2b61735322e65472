package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ge-entretec/debours/internal/application/port"
	"github.com/ge-entretec/debours/internal/domain/entity"
)

// UserPatch carries the mutable user fields an administrator may change.
// Nil pointers leave the field untouched.
type UserPatch struct {
	Role              *entity.Role `json:"role,omitempty"`
	Entity            *string      `json:"entity,omitempty"`
	Unit              *string      `json:"unit,omitempty"`
	HasFixedAllowance *bool        `json:"has_fixed_allowance,omitempty"`
	GrantAdmin        *bool        `json:"grant_admin,omitempty"`
}

// UserService manages the user directory
type UserService interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	List(ctx context.Context, includeRemoved bool) ([]*entity.User, error)
	Update(ctx context.Context, actorID, userID string, patch UserPatch) (*entity.User, error)
	Remove(ctx context.Context, actorID, userID string) error
}

type userServiceImpl struct {
	userRepo port.UserRepository
	now      func() time.Time
	logger   Logger
}

// NewUserService creates a new UserService
func NewUserService(userRepo port.UserRepository, logger Logger) UserService {
	return &userServiceImpl{
		userRepo: userRepo,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *userServiceImpl) GetByID(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return u, nil
}

func (s *userServiceImpl) List(ctx context.Context, includeRemoved bool) ([]*entity.User, error) {
	return s.userRepo.List(ctx, includeRemoved)
}

// Update applies an administrative patch. Admin rights themselves can
// only be granted by a director; everything else needs an admin actor.
func (s *userServiceImpl) Update(ctx context.Context, actorID, userID string, patch UserPatch) (*entity.User, error) {
	actor, err := s.requireUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	target, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if actor.Role != entity.RoleAdmin && actor.Role != entity.RoleDirector {
		return nil, fmt.Errorf("role %s cannot manage users: %w", actor.Role, ErrForbidden)
	}

	fields := make(map[string]string)

	if patch.Role != nil {
		if !patch.Role.IsValid() {
			fields["role"] = fmt.Sprintf("unknown role %q", *patch.Role)
		} else if *patch.Role == entity.RoleAdmin {
			fields["role"] = "use grant_admin to grant administrator rights"
		} else {
			target.Role = *patch.Role
		}
	}
	if patch.Entity != nil {
		target.Entity = *patch.Entity
	}
	if patch.Unit != nil {
		target.Unit = *patch.Unit
	}
	if patch.HasFixedAllowance != nil {
		target.HasFixedAllowance = *patch.HasFixedAllowance
	}
	if patch.GrantAdmin != nil {
		if actor.Role != entity.RoleDirector {
			return nil, fmt.Errorf("only a director may grant or withdraw admin rights: %w", ErrForbidden)
		}
		if *patch.GrantAdmin {
			now := s.now()
			target.Role = entity.RoleAdmin
			target.AdminGrantedBy = actor.ID
			target.AdminSince = &now
		} else if target.Role == entity.RoleAdmin {
			target.Role = entity.RoleCollaborator
			target.AdminGrantedBy = ""
			target.AdminSince = nil
		}
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	target.UpdatedAt = s.now()
	if err := s.userRepo.Update(ctx, target); err != nil {
		s.logger.Error("Failed to update user", "error", err, "user_id", userID)
		return nil, err
	}

	s.logger.Info("User updated", "user_id", userID, "actor_id", actorID, "role", string(target.Role))
	return target, nil
}

// Remove soft-removes a user. Removed users stay referenceable from
// claim and delegation history.
func (s *userServiceImpl) Remove(ctx context.Context, actorID, userID string) error {
	actor, err := s.requireUser(ctx, actorID)
	if err != nil {
		return err
	}
	if actor.Role != entity.RoleAdmin {
		return fmt.Errorf("role %s cannot remove users: %w", actor.Role, ErrForbidden)
	}
	if actorID == userID {
		return fmt.Errorf("cannot remove oneself: %w", ErrForbidden)
	}
	target, err := s.requireUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.userRepo.SoftRemove(ctx, target.ID, s.now()); err != nil {
		s.logger.Error("Failed to remove user", "error", err, "user_id", userID)
		return err
	}

	s.logger.Info("User removed", "user_id", userID, "actor_id", actorID)
	return nil
}

func (s *userServiceImpl) requireUser(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil || u.IsRemoved() {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return u, nil
}
