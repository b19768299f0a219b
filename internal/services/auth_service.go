package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"chatlink/internal/auth"
	"chatlink/internal/config"
	"chatlink/internal/models"
	"chatlink/internal/storage"
)

var (
	ErrUserAlreadyExists  = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// AuthService defines the user authentication surface.
type AuthService interface {
	Register(ctx context.Context, name, email, password, imageURL string) (*models.User, error)
	Login(ctx context.Context, email, password string) (token string, user *models.User, err error)
}

// authService implements AuthService.
type authService struct {
	userRepo storage.UserRepository
	cfg      config.Config
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(userRepo storage.UserRepository, cfg config.Config) AuthService {
	return &authService{
		userRepo: userRepo,
		cfg:      cfg,
	}
}

// Register creates a new account with a bcrypt-hashed password.
func (s *authService) Register(ctx context.Context, name, email, password, imageURL string) (*models.User, error) {
	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrUserAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hashedPassword,
		ImageURL:     imageURL,
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return newUser, nil
}

// Login verifies the credentials and mints a JWT.
func (s *authService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrUserNotFound
		}
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, user.Name, s.cfg.Auth)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return token, user, nil
}
