package storage

import (
	"context"

	"gorm.io/gorm"

	"chatlink/internal/models"
)

// MessageRepository defines the interface for message data operations.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Message, error)
	// ListConversation returns every message between the two users, in either
	// direction, ascending by send time with insertion order breaking ties.
	ListConversation(ctx context.Context, userA, userB uint) ([]*models.Message, error)
	// MarkRead flips is_read to true for the given ids where readerID is the
	// recipient and the flag is still false, returning the number updated.
	MarkRead(ctx context.Context, ids []uint, readerID uint) (int64, error)
	// DeleteByIDs removes the records and returns the number deleted. Unknown
	// ids are skipped silently.
	DeleteByIDs(ctx context.Context, ids []uint) (int64, error)
}

// gormMessageRepository implements MessageRepository using GORM.
type gormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-based MessageRepository.
func NewGormMessageRepository(db *gorm.DB) MessageRepository {
	return &gormMessageRepository{db: db}
}

// Create inserts a new message record.
func (r *gormMessageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// GetByID retrieves a message with its sender preloaded.
func (r *gormMessageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).Preload("Sender").First(&message, id).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// GetByIDs retrieves the messages matching ids. Missing ids are simply absent
// from the result.
func (r *gormMessageRepository) GetByIDs(ctx context.Context, ids []uint) ([]*models.Message, error) {
	var messages []*models.Message
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// ListConversation retrieves the derived conversation view for a user pair.
// Secondary ordering by id keeps the sequence stable under clock skew.
func (r *gormMessageRepository) ListConversation(ctx context.Context, userA, userB uint) ([]*models.Message, error) {
	var messages []*models.Message
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userA, userB, userB, userA).
		Order("sent_at ASC, id ASC").
		Preload("Sender").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkRead performs the monotonic false-to-true transition. Re-marking already
// read messages matches zero rows, which makes the operation idempotent.
func (r *gormMessageRepository) MarkRead(ctx context.Context, ids []uint, readerID uint) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id IN ? AND recipient_id = ? AND is_read = ?", ids, readerID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

// DeleteByIDs hard-deletes the matching records.
func (r *gormMessageRepository) DeleteByIDs(ctx context.Context, ids []uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Message{})
	return result.RowsAffected, result.Error
}
