package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"chatlink/internal/models"
)

// FriendRequestRepository defines the interface for friend request data operations.
type FriendRequestRepository interface {
	Create(ctx context.Context, request *models.FriendRequest) error
	GetByID(ctx context.Context, requestID uint) (*models.FriendRequest, error)
	// FindPendingBetween checks for an existing pending request between two
	// users, in either direction. A missing request is (nil, nil).
	FindPendingBetween(ctx context.Context, userID1, userID2 uint) (*models.FriendRequest, error)
	UpdateStatus(ctx context.Context, requestID uint, status models.FriendRequestStatus) error
	ListPendingForRecipient(ctx context.Context, recipientID uint) ([]models.FriendRequest, error)
	ListPendingFromRequester(ctx context.Context, requesterID uint) ([]models.FriendRequest, error)
}

type gormFriendRequestRepository struct {
	db *gorm.DB
}

// NewGormFriendRequestRepository creates a new GORM-based FriendRequestRepository.
func NewGormFriendRequestRepository(db *gorm.DB) FriendRequestRepository {
	return &gormFriendRequestRepository{db: db}
}

func (r *gormFriendRequestRepository) Create(ctx context.Context, request *models.FriendRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *gormFriendRequestRepository) GetByID(ctx context.Context, requestID uint) (*models.FriendRequest, error) {
	var request models.FriendRequest
	err := r.db.WithContext(ctx).First(&request, requestID).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *gormFriendRequestRepository) FindPendingBetween(ctx context.Context, userID1, userID2 uint) (*models.FriendRequest, error) {
	var request models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("(requester_id = ? AND recipient_id = ?) OR (requester_id = ? AND recipient_id = ?)",
			userID1, userID2, userID2, userID1).
		Where("status = ?", models.FriendRequestStatusPending).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

func (r *gormFriendRequestRepository) UpdateStatus(ctx context.Context, requestID uint, status models.FriendRequestStatus) error {
	return r.db.WithContext(ctx).Model(&models.FriendRequest{}).
		Where("id = ?", requestID).
		Update("status", status).Error
}

func (r *gormFriendRequestRepository) ListPendingForRecipient(ctx context.Context, recipientID uint) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("recipient_id = ? AND status = ?", recipientID, models.FriendRequestStatusPending).
		Find(&requests).Error
	return requests, err
}

func (r *gormFriendRequestRepository) ListPendingFromRequester(ctx context.Context, requesterID uint) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("requester_id = ? AND status = ?", requesterID, models.FriendRequestStatusPending).
		Find(&requests).Error
	return requests, err
}
