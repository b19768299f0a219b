package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"chatlink/internal/apperrors"
	"chatlink/internal/models"
	"chatlink/internal/protocol"
	"chatlink/internal/storage"
)

// MessageService is the message store: an append-only log of messages between
// user pairs with a mutable read-state flag. Conversations are never stored,
// they are recomputed as a filtered view over the pair.
type MessageService interface {
	// Append validates the payload pairing, persists the message and returns
	// the stored record with the sender's profile resolved.
	Append(ctx context.Context, senderID, recipientID uint, payload protocol.Payload) (*protocol.Message, error)

	// ListConversation returns all messages between the two users in either
	// direction, ascending by creation order.
	ListConversation(ctx context.Context, userA, userB uint) ([]*protocol.Message, error)

	// MarkRead sets isRead on each message whose recipient is readerID and
	// which is still unread. Idempotent; returns the number updated.
	MarkRead(ctx context.Context, messageIDs []uint, readerID uint) (int64, error)

	// Delete removes the messages and best-effort deletes any media they
	// reference. Unknown ids are skipped silently; only an empty id list is
	// an error.
	Delete(ctx context.Context, messageIDs []uint) (int64, error)
}

// messageService implements MessageService.
type messageService struct {
	msgRepo  storage.MessageRepository
	userRepo storage.UserRepository
	media    protocol.MediaStorage
}

// NewMessageService creates a new MessageService instance.
func NewMessageService(msgRepo storage.MessageRepository, userRepo storage.UserRepository, media protocol.MediaStorage) MessageService {
	return &messageService{
		msgRepo:  msgRepo,
		userRepo: userRepo,
		media:    media,
	}
}

// Append persists a new message. The timestamp and id are assigned here, at
// persistence time, so insertion order is the authoritative tie-breaker.
func (s *messageService) Append(ctx context.Context, senderID, recipientID uint, payload protocol.Payload) (*protocol.Message, error) {
	if !payload.Valid() {
		return nil, apperrors.Validationf("message of type %q must carry exactly its own payload field", payload.Type)
	}

	if _, err := s.userRepo.GetByID(ctx, recipientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(fmt.Sprintf("recipient %d does not exist", recipientID))
		}
		return nil, fmt.Errorf("failed to check recipient %d: %w", recipientID, err)
	}

	dbMessage := &models.Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		Type:        payload.Type,
		Body:        payload.Body,
		ImageURL:    payload.ImageURL,
		SentAt:      time.Now().UTC(),
	}
	if err := s.msgRepo.Create(ctx, dbMessage); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	// Re-read with the sender preloaded; the resolved profile is a read-side
	// join, not a stored field.
	stored, err := s.msgRepo.GetByID(ctx, dbMessage.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored message %d: %w", dbMessage.ID, err)
	}
	return stored.ToWire(), nil
}

// ListConversation produces the derived conversation snapshot for a pair.
func (s *messageService) ListConversation(ctx context.Context, userA, userB uint) ([]*protocol.Message, error) {
	messages, err := s.msgRepo.ListConversation(ctx, userA, userB)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation between %d and %d: %w", userA, userB, err)
	}
	return lo.Map(messages, func(m *models.Message, _ int) *protocol.Message {
		return m.ToWire()
	}), nil
}

// MarkRead flips the read flag for messages addressed to readerID. The flag
// only ever moves false to true; re-marking is a no-op, not an error.
func (s *messageService) MarkRead(ctx context.Context, messageIDs []uint, readerID uint) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	count, err := s.msgRepo.MarkRead(ctx, messageIDs, readerID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read for user %d: %w", readerID, err)
	}
	return count, nil
}

// Delete removes messages and their stored media. Media cleanup is
// best-effort: a failed object deletion is logged and never blocks the
// authoritative store deletion.
func (s *messageService) Delete(ctx context.Context, messageIDs []uint) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, apperrors.NotFound("no message ids given")
	}

	found, err := s.msgRepo.GetByIDs(ctx, messageIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch messages for deletion: %w", err)
	}

	imageMessages := lo.Filter(found, func(m *models.Message, _ int) bool {
		return m.Type == protocol.ImageMessage && m.ImageURL != ""
	})
	for _, m := range imageMessages {
		if err := s.media.Delete(ctx, m.ImageURL); err != nil {
			log.Printf("failed to delete media %q for message %d: %v", m.ImageURL, m.ID, err)
		}
	}

	count, err := s.msgRepo.DeleteByIDs(ctx, messageIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}
	return count, nil
}
