package service

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"pingup_go/internal/domain"
)

// UserService covers the profile and connection reads the messaging surface
// needs; the full social graph workflow lives elsewhere.
type UserService struct {
	users       domain.UserRepository
	connections domain.ConnectionRepository
}

func NewUserService(users domain.UserRepository, connections domain.ConnectionRepository) *UserService {
	return &UserService{users: users, connections: connections}
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.UserSummary, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user.Summary(), nil
}

// Connect records a mutual connection between the caller and another user.
func (s *UserService) Connect(ctx context.Context, callerID, otherID string) error {
	if otherID == "" || otherID == callerID {
		return fmt.Errorf("%w: invalid connection target", domain.ErrValidation)
	}
	other, err := s.users.GetByID(ctx, otherID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if other == nil {
		return domain.ErrNotFound
	}
	already, err := s.connections.AreConnected(ctx, callerID, otherID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if already {
		return nil
	}
	if err := s.connections.Connect(ctx, callerID, otherID); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// ListConnections returns the caller's connections as public summaries. The
// client unions this with the recent-conversations list so fresh connections
// without history still show up.
func (s *UserService) ListConnections(ctx context.Context, callerID string) ([]*domain.UserSummary, error) {
	users, err := s.connections.ListConnections(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return lo.Map(users, func(u *domain.User, _ int) *domain.UserSummary {
		return u.Summary()
	}), nil
}
