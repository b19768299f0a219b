package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"chatlink/internal/models"
	"chatlink/internal/storage"
)

// UserService defines the user directory surface.
type UserService interface {
	GetUserProfile(ctx context.Context, userID uint) (*models.User, error)
	// ListOtherUsers returns everyone except the caller, for the contact
	// picker on the home screen.
	ListOtherUsers(ctx context.Context, currentUserID uint) ([]models.User, error)
}

// userService implements UserService.
type userService struct {
	userRepo storage.UserRepository
}

// NewUserService creates a new UserService instance.
func NewUserService(userRepo storage.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

// GetUserProfile fetches a user's public profile.
func (s *userService) GetUserProfile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user %d: %w", userID, err)
	}
	user.PasswordHash = ""
	return user, nil
}

// ListOtherUsers lists all users except the caller.
func (s *userService) ListOtherUsers(ctx context.Context, currentUserID uint) ([]models.User, error) {
	users, err := s.userRepo.ListOthers(ctx, currentUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}
