package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"chatlink/internal/models"
	"chatlink/internal/storage"
)

var (
	ErrFriendRequestSelf     = errors.New("cannot send a friend request to yourself")
	ErrFriendRequestExists   = errors.New("a pending friend request already exists")
	ErrRecipientNotFound     = errors.New("recipient user does not exist")
	ErrAlreadyFriends        = errors.New("users are already friends")
	ErrFriendRequestNotFound = errors.New("friend request not found")
	ErrNotRecipientOfRequest = errors.New("you are not the recipient of this friend request")
	ErrRequestNotPending     = errors.New("this friend request is not pending")
)

// FriendService covers the friend-request workflow: send, list pending,
// list sent, accept/reject, and the resulting friend graph queries.
type FriendService interface {
	SendFriendRequest(ctx context.Context, requesterID, recipientID uint) error
	AcceptFriendRequest(ctx context.Context, recipientID, requestID uint) error
	RejectFriendRequest(ctx context.Context, recipientID, requestID uint) error
	ListPendingRequests(ctx context.Context, userID uint) ([]*models.FriendRequestWithRequester, error)
	ListSentRequests(ctx context.Context, userID uint) ([]*models.UserBasicInfo, error)
	ListFriends(ctx context.Context, userID uint) ([]*models.UserBasicInfo, error)
	GetFriendIDs(ctx context.Context, userID uint) ([]uint, error)
	// AreFriends answers the "are users A and B connected" question the chat
	// core consumes.
	AreFriends(ctx context.Context, userA, userB uint) (bool, error)
}

type friendService struct {
	db             *gorm.DB // transaction scope for accept
	userRepo       storage.UserRepository
	requestRepo    storage.FriendRequestRepository
	friendshipRepo storage.FriendshipRepository
}

// NewFriendService creates a new FriendService instance.
func NewFriendService(db *gorm.DB, userRepo storage.UserRepository, requestRepo storage.FriendRequestRepository, friendshipRepo storage.FriendshipRepository) FriendService {
	return &friendService{
		db:             db,
		userRepo:       userRepo,
		requestRepo:    requestRepo,
		friendshipRepo: friendshipRepo,
	}
}

// SendFriendRequest validates and records a pending request.
func (s *friendService) SendFriendRequest(ctx context.Context, requesterID, recipientID uint) error {
	if requesterID == recipientID {
		return ErrFriendRequestSelf
	}

	if _, err := s.userRepo.GetByID(ctx, recipientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRecipientNotFound
		}
		return fmt.Errorf("failed to check recipient %d: %w", recipientID, err)
	}

	areFriends, err := s.friendshipRepo.AreUsersFriends(ctx, requesterID, recipientID)
	if err != nil {
		return fmt.Errorf("failed to check friendship: %w", err)
	}
	if areFriends {
		return ErrAlreadyFriends
	}

	existing, err := s.requestRepo.FindPendingBetween(ctx, requesterID, recipientID)
	if err != nil {
		return fmt.Errorf("failed to check existing requests: %w", err)
	}
	if existing != nil {
		return ErrFriendRequestExists
	}

	request := &models.FriendRequest{
		RequesterID: requesterID,
		RecipientID: recipientID,
		Status:      models.FriendRequestStatusPending,
	}
	if err := s.requestRepo.Create(ctx, request); err != nil {
		return fmt.Errorf("failed to create friend request: %w", err)
	}
	return nil
}

// AcceptFriendRequest resolves a pending request and establishes the
// friendship, both inside one transaction.
func (s *friendService) AcceptFriendRequest(ctx context.Context, recipientID, requestID uint) error {
	request, err := s.loadPendingRequestFor(ctx, recipientID, requestID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRequestRepo := storage.NewGormFriendRequestRepository(tx)
		txFriendshipRepo := storage.NewGormFriendshipRepository(tx)

		if err := txRequestRepo.UpdateStatus(ctx, request.ID, models.FriendRequestStatusAccepted); err != nil {
			return fmt.Errorf("failed to update request status: %w", err)
		}

		friendship := &models.Friendship{UserID1: request.RequesterID, UserID2: request.RecipientID}
		friendship.EnsureCanonicalOrder()
		if err := txFriendshipRepo.Create(ctx, friendship); err != nil {
			return fmt.Errorf("failed to create friendship: %w", err)
		}
		return nil
	})
}

// RejectFriendRequest marks a pending request as rejected.
func (s *friendService) RejectFriendRequest(ctx context.Context, recipientID, requestID uint) error {
	request, err := s.loadPendingRequestFor(ctx, recipientID, requestID)
	if err != nil {
		return err
	}
	return s.requestRepo.UpdateStatus(ctx, request.ID, models.FriendRequestStatusRejected)
}

func (s *friendService) loadPendingRequestFor(ctx context.Context, recipientID, requestID uint) (*models.FriendRequest, error) {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFriendRequestNotFound
		}
		return nil, fmt.Errorf("failed to load friend request %d: %w", requestID, err)
	}
	if request.RecipientID != recipientID {
		return nil, ErrNotRecipientOfRequest
	}
	if request.Status != models.FriendRequestStatusPending {
		return nil, ErrRequestNotPending
	}
	return request, nil
}

// ListPendingRequests returns incoming pending requests with the requester's
// public profile attached.
func (s *friendService) ListPendingRequests(ctx context.Context, userID uint) ([]*models.FriendRequestWithRequester, error) {
	requests, err := s.requestRepo.ListPendingForRecipient(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}

	requesterIDs := lo.Map(requests, func(r models.FriendRequest, _ int) uint { return r.RequesterID })
	infos, err := s.userRepo.GetMultipleBasicInfoByIDs(ctx, requesterIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load requester profiles: %w", err)
	}
	infoByID := lo.KeyBy(infos, func(i *models.UserBasicInfo) uint { return i.ID })

	result := make([]*models.FriendRequestWithRequester, 0, len(requests))
	for _, r := range requests {
		item := &models.FriendRequestWithRequester{FriendRequest: r}
		if info, ok := infoByID[r.RequesterID]; ok {
			item.Requester = info
		} else {
			log.Printf("pending request %d references missing requester %d", r.ID, r.RequesterID)
		}
		result = append(result, item)
	}
	return result, nil
}

// ListSentRequests returns the public profiles of users the caller has a
// pending outgoing request to.
func (s *friendService) ListSentRequests(ctx context.Context, userID uint) ([]*models.UserBasicInfo, error) {
	requests, err := s.requestRepo.ListPendingFromRequester(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sent requests: %w", err)
	}
	recipientIDs := lo.Map(requests, func(r models.FriendRequest, _ int) uint { return r.RecipientID })
	return s.userRepo.GetMultipleBasicInfoByIDs(ctx, recipientIDs)
}

// ListFriends returns the public profiles of the caller's accepted friends.
func (s *friendService) ListFriends(ctx context.Context, userID uint) ([]*models.UserBasicInfo, error) {
	friendIDs, err := s.friendshipRepo.GetFriendIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friend ids: %w", err)
	}
	return s.userRepo.GetMultipleBasicInfoByIDs(ctx, friendIDs)
}

// GetFriendIDs returns only the ids, for the friends screen's exclusion list.
func (s *friendService) GetFriendIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.friendshipRepo.GetFriendIDs(ctx, userID)
}

// AreFriends checks whether two users are connected.
func (s *friendService) AreFriends(ctx context.Context, userA, userB uint) (bool, error) {
	return s.friendshipRepo.AreUsersFriends(ctx, userA, userB)
}
