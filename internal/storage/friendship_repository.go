package storage

import (
	"context"

	"gorm.io/gorm"

	"chatlink/internal/models"
)

// FriendshipRepository defines the interface for friendship data operations.
type FriendshipRepository interface {
	Create(ctx context.Context, friendship *models.Friendship) error
	AreUsersFriends(ctx context.Context, userID1, userID2 uint) (bool, error)
	GetFriendIDs(ctx context.Context, userID uint) ([]uint, error)
}

type gormFriendshipRepository struct {
	db *gorm.DB
}

// NewGormFriendshipRepository creates a new GORM-based FriendshipRepository.
func NewGormFriendshipRepository(db *gorm.DB) FriendshipRepository {
	return &gormFriendshipRepository{db: db}
}

// Create creates a new friendship record. It assumes
// friendship.EnsureCanonicalOrder() has been called before.
func (r *gormFriendshipRepository) Create(ctx context.Context, friendship *models.Friendship) error {
	return r.db.WithContext(ctx).Create(friendship).Error
}

// AreUsersFriends checks whether two users are already friends.
func (r *gormFriendshipRepository) AreUsersFriends(ctx context.Context, userID1, userID2 uint) (bool, error) {
	u1, u2 := userID1, userID2
	if u1 > u2 {
		u1, u2 = u2, u1
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("user_id1 = ? AND user_id2 = ?", u1, u2).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetFriendIDs retrieves the ids of everyone who is friends with userID.
func (r *gormFriendshipRepository) GetFriendIDs(ctx context.Context, userID uint) ([]uint, error) {
	var idsPart1 []uint
	err := r.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("user_id1 = ?", userID).
		Pluck("user_id2", &idsPart1).Error
	if err != nil {
		return nil, err
	}

	var idsPart2 []uint
	err = r.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("user_id2 = ?", userID).
		Pluck("user_id1", &idsPart2).Error
	if err != nil {
		return nil, err
	}

	return append(idsPart1, idsPart2...), nil
}
