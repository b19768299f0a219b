package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chatlink/internal/models"
	"chatlink/internal/protocol"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := AutoMigrateTables(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, name, email string) *models.User {
	t.Helper()
	user := &models.User{Name: name, Email: email, PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newTextMessage(sender, recipient uint, body string, sentAt time.Time) *models.Message {
	return &models.Message{
		SenderID:    sender,
		RecipientID: recipient,
		Type:        protocol.TextMessage,
		Body:        body,
		SentAt:      sentAt,
	}
}

func TestMessageRepository_ListConversation_OrderAndScope(t *testing.T) {
	req := require.New(t)
	db := setupTestDB(t)
	repo := NewGormMessageRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice", "alice@example.com")
	bob := createTestUser(t, db, "bob", "bob@example.com")
	carol := createTestUser(t, db, "carol", "carol@example.com")

	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	// Inserted out of chronological order; both directions of the pair plus
	// one message that belongs to a different pair.
	second := newTextMessage(bob.ID, alice.ID, "second", base.Add(time.Minute))
	first := newTextMessage(alice.ID, bob.ID, "first", base)
	third := newTextMessage(alice.ID, bob.ID, "third", base.Add(2*time.Minute))
	other := newTextMessage(alice.ID, carol.ID, "other pair", base)
	for _, m := range []*models.Message{second, first, third, other} {
		req.NoError(repo.Create(ctx, m))
	}

	got, err := repo.ListConversation(ctx, alice.ID, bob.ID)
	req.NoError(err)
	req.Len(got, 3)
	req.Equal("first", got[0].Body)
	req.Equal("second", got[1].Body)
	req.Equal("third", got[2].Body)

	// Sender profile is resolved on the read side.
	req.Equal("bob", got[1].Sender.Name)

	// Same pair queried from the other side yields the same view.
	flipped, err := repo.ListConversation(ctx, bob.ID, alice.ID)
	req.NoError(err)
	req.Len(flipped, 3)
}

func TestMessageRepository_ListConversation_TieBreakByID(t *testing.T) {
	req := require.New(t)
	db := setupTestDB(t)
	repo := NewGormMessageRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice", "alice@example.com")
	bob := createTestUser(t, db, "bob", "bob@example.com")

	// Identical timestamps: insertion order decides.
	at := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	for _, body := range []string{"a", "b", "c"} {
		req.NoError(repo.Create(ctx, newTextMessage(alice.ID, bob.ID, body, at)))
	}

	got, err := repo.ListConversation(ctx, alice.ID, bob.ID)
	req.NoError(err)
	req.Len(got, 3)
	req.Equal("a", got[0].Body)
	req.Equal("b", got[1].Body)
	req.Equal("c", got[2].Body)
}

func TestMessageRepository_MarkRead(t *testing.T) {
	req := require.New(t)
	db := setupTestDB(t)
	repo := NewGormMessageRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice", "alice@example.com")
	bob := createTestUser(t, db, "bob", "bob@example.com")

	at := time.Now().UTC()
	inbound := newTextMessage(alice.ID, bob.ID, "for bob", at)
	outbound := newTextMessage(bob.ID, alice.ID, "from bob", at)
	req.NoError(repo.Create(ctx, inbound))
	req.NoError(repo.Create(ctx, outbound))

	// Only messages addressed to the reader flip.
	count, err := repo.MarkRead(ctx, []uint{inbound.ID, outbound.ID}, bob.ID)
	req.NoError(err)
	req.EqualValues(1, count)

	stored, err := repo.GetByID(ctx, inbound.ID)
	req.NoError(err)
	req.True(stored.IsRead)

	unaffected, err := repo.GetByID(ctx, outbound.ID)
	req.NoError(err)
	req.False(unaffected.IsRead)

	// Re-marking matches zero rows.
	count, err = repo.MarkRead(ctx, []uint{inbound.ID}, bob.ID)
	req.NoError(err)
	req.EqualValues(0, count)
}

func TestMessageRepository_DeleteByIDs(t *testing.T) {
	req := require.New(t)
	db := setupTestDB(t)
	repo := NewGormMessageRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice", "alice@example.com")
	bob := createTestUser(t, db, "bob", "bob@example.com")

	msg := newTextMessage(alice.ID, bob.ID, "doomed", time.Now().UTC())
	req.NoError(repo.Create(ctx, msg))

	// Unknown ids are skipped silently.
	count, err := repo.DeleteByIDs(ctx, []uint{msg.ID, 9999})
	req.NoError(err)
	req.EqualValues(1, count)

	_, err = repo.GetByID(ctx, msg.ID)
	req.ErrorIs(err, gorm.ErrRecordNotFound)

	count, err = repo.DeleteByIDs(ctx, []uint{msg.ID})
	req.NoError(err)
	req.EqualValues(0, count)
}
