package services

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chatlink/internal/apperrors"
	"chatlink/internal/models"
	"chatlink/internal/protocol"
	"chatlink/internal/storage"
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
	if err := storage.AutoMigrateTables(db); err != nil {
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

// fakeMediaStorage records deletions and can be made to fail.
type fakeMediaStorage struct {
	deleted   []string
	deleteErr error
}

func (f *fakeMediaStorage) Upload(ctx context.Context, reader io.Reader, size int64, fileName, mimeType string) (*protocol.FileInfo, error) {
	return &protocol.FileInfo{URL: "/uploads/" + fileName, FileName: fileName, Size: size, MimeType: mimeType}, nil
}

func (f *fakeMediaStorage) Delete(ctx context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return f.deleteErr
}

func newTestMessageService(t *testing.T) (MessageService, *gorm.DB, *fakeMediaStorage) {
	t.Helper()
	db := setupTestDB(t)
	media := &fakeMediaStorage{}
	svc := NewMessageService(storage.NewGormMessageRepository(db), storage.NewGormUserRepository(db), media)
	return svc, db, media
}

func TestMessageService_Append_RejectsMismatchedPayload(t *testing.T) {
	req := require.New(t)
	svc, db, _ := newTestMessageService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice", "alice@example.com")
	bob := createTestUser(t, db, "bob", "bob@example.com")

	cases := []protocol.Payload{
		{Type: protocol.TextMessage},                                         // empty body
		{Type: protocol.TextMessage, Body: "hi", ImageURL: "/uploads/x.png"}, // both set
		{Type: protocol.ImageMessage, Body: "hi"},                            // wrong field
		{Type: protocol.MessageType("video"), Body: "hi"},                    // unknown type
	}
	for _, payload := range cases {
		_, err := svc.Append(ctx, alice.ID, bob.ID, payload)
		req.Error(err)
		req.True(apperrors.IsValidation(err), "payload %+v should fail validation", payload)
	}
}

func TestMessageService_Append_UnknownRecipient(t *testing.T) {
	req := require.New(t)
	svc, db, _ := newTestMessageService(t)

	alice := createTestUser(t, db, "alice", "alice@example.com")

	_, err := svc.Append(context.Background(), alice.ID, 9999, protocol.TextPayload("hello"))
	req.Error(err)
	req.True(apperrors.IsNotFound(err))
}

func TestMessageService_Append_ResolvesSenderProfile(t *testing.T) {
	req := require.New(t)
	svc, db, _ := newTestMessageService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice", "alice@example.com")
	bob := createTestUser(t, db, "bob", "bob@example.com")

	msg, err := svc.Append(ctx, alice.ID, bob.ID, protocol.TextPayload("hello"))
	req.NoError(err)
	req.Equal("alice", msg.SenderName)
	req.Equal(alice.IDString(), msg.SenderID)
	req.Equal(bob.IDString(), msg.RecipientID)
	req.Equal(protocol.TextMessage, msg.Type)
	req.False(msg.IsRead)
	req.False(msg.SentAt.IsZero())
}

func TestMessageService_ListConversation_BothDirections(t *testing.T) {
	req := require.New(t)
	svc, db, _ := newTestMessageService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice", "alice@example.com")
	bob := createTestUser(t, db, "bob", "bob@example.com")

	_, err := svc.Append(ctx, alice.ID, bob.ID, protocol.TextPayload("hi bob"))
	req.NoError(err)
	_, err = svc.Append(ctx, bob.ID, alice.ID, protocol.TextPayload("hi alice"))
	req.NoError(err)

	got, err := svc.ListConversation(ctx, alice.ID, bob.ID)
	req.NoError(err)
	req.Len(got, 2)
	req.Equal("hi bob", got[0].Body)
	req.Equal("hi alice", got[1].Body)
}

func TestMessageService_MarkRead_EmptyIsNoop(t *testing.T) {
	req := require.New(t)
	svc, _, _ := newTestMessageService(t)

	count, err := svc.MarkRead(context.Background(), nil, 1)
	req.NoError(err)
	req.EqualValues(0, count)
}

func TestMessageService_Delete_EmptyIDsIsError(t *testing.T) {
	req := require.New(t)
	svc, _, _ := newTestMessageService(t)

	_, err := svc.Delete(context.Background(), nil)
	req.Error(err)
	req.True(apperrors.IsNotFound(err))
}

func TestMessageService_Delete_MediaCleanupIsBestEffort(t *testing.T) {
	req := require.New(t)
	svc, db, media := newTestMessageService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice", "alice@example.com")
	bob := createTestUser(t, db, "bob", "bob@example.com")

	text, err := svc.Append(ctx, alice.ID, bob.ID, protocol.TextPayload("keepsake"))
	req.NoError(err)
	image, err := svc.Append(ctx, alice.ID, bob.ID, protocol.ImagePayload("/uploads/pic.png"))
	req.NoError(err)

	// A failing object deletion must not block the store deletion.
	media.deleteErr = errors.New("disk on fire")

	ids, err := storage.StrsToUints([]string{text.ID, image.ID})
	req.NoError(err)

	count, err := svc.Delete(ctx, ids)
	req.NoError(err)
	req.EqualValues(2, count)
	req.Equal([]string{"/uploads/pic.png"}, media.deleted)

	remaining, err := svc.ListConversation(ctx, alice.ID, bob.ID)
	req.NoError(err)
	req.Empty(remaining)
}

func TestMessageService_Delete_UnknownIDsSkipped(t *testing.T) {
	req := require.New(t)
	svc, _, media := newTestMessageService(t)

	count, err := svc.Delete(context.Background(), []uint{12345})
	req.NoError(err)
	req.EqualValues(0, count)
	req.Empty(media.deleted)
}
