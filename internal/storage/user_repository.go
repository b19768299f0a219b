package storage

import (
	"context"

	"gorm.io/gorm"

	"chatlink/internal/models"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// ListOthers returns every user except currentUserID.
	ListOthers(ctx context.Context, currentUserID uint) ([]models.User, error)
	GetMultipleBasicInfoByIDs(ctx context.Context, userIDs []uint) ([]*models.UserBasicInfo, error)
}

// gormUserRepository implements UserRepository using GORM.
type gormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GORM-based UserRepository.
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

// Create creates a new user record in the database.
func (r *gormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID retrieves a user by their ID.
func (r *gormUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email.
func (r *gormUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListOthers lists all users except the given one.
func (r *gormUserRepository) ListOthers(ctx context.Context, currentUserID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Where("id <> ?", currentUserID).Order("id ASC").Find(&users).Error
	return users, err
}

// GetMultipleBasicInfoByIDs fetches the public profiles for a set of ids.
func (r *gormUserRepository) GetMultipleBasicInfoByIDs(ctx context.Context, userIDs []uint) ([]*models.UserBasicInfo, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var users []models.User
	err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error
	if err != nil {
		return nil, err
	}
	infos := make([]*models.UserBasicInfo, 0, len(users))
	for i := range users {
		infos = append(infos, users[i].BasicInfo())
	}
	return infos, nil
}
