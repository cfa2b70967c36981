package service

import (
	"context"
	"errors"

	"github.com/kaya2m/Camply-API-sub003/internal/model"
	"github.com/kaya2m/Camply-API-sub003/internal/repo"
)

type UserService interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
	GetDisplayName(ctx context.Context, userID string) string
}

type userService struct {
	repo repo.UserRepository
}

func NewUserService(repo repo.UserRepository) UserService {
	return &userService{
		repo: repo,
	}
}

func (s *userService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetDisplayName resolves a user's display name for notifications. Lookup
// failures degrade to an empty name rather than blocking delivery.
func (s *userService) GetDisplayName(ctx context.Context, userID string) string {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return ""
	}
	return user.DisplayName()
}
