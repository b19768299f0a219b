package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"chatlink/internal/models"
	"chatlink/internal/storage"
)

func newTestFriendService(t *testing.T) (FriendService, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	svc := NewFriendService(
		db,
		storage.NewGormUserRepository(db),
		storage.NewGormFriendRequestRepository(db),
		storage.NewGormFriendshipRepository(db),
	)
	return svc, db
}

func TestFriendService_SendFriendRequest_Validation(t *testing.T) {
	req := require.New(t)
	svc, db := newTestFriendService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice", "alice@example.com")

	req.ErrorIs(svc.SendFriendRequest(ctx, alice.ID, alice.ID), ErrFriendRequestSelf)
	req.ErrorIs(svc.SendFriendRequest(ctx, alice.ID, 9999), ErrRecipientNotFound)
}

func TestFriendService_SendFriendRequest_DuplicatePending(t *testing.T) {
	req := require.New(t)
	svc, db := newTestFriendService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice", "alice@example.com")
	bob := createTestUser(t, db, "bob", "bob@example.com")

	req.NoError(svc.SendFriendRequest(ctx, alice.ID, bob.ID))
	req.ErrorIs(svc.SendFriendRequest(ctx, alice.ID, bob.ID), ErrFriendRequestExists)

	// The reverse direction counts as the same pending pair.
	req.ErrorIs(svc.SendFriendRequest(ctx, bob.ID, alice.ID), ErrFriendRequestExists)
}

func TestFriendService_AcceptFlow(t *testing.T) {
	req := require.New(t)
	svc, db := newTestFriendService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice", "alice@example.com")
	bob := createTestUser(t, db, "bob", "bob@example.com")

	req.NoError(svc.SendFriendRequest(ctx, alice.ID, bob.ID))

	pending, err := svc.ListPendingRequests(ctx, bob.ID)
	req.NoError(err)
	req.Len(pending, 1)
	req.Equal("alice", pending[0].Requester.Name)

	sent, err := svc.ListSentRequests(ctx, alice.ID)
	req.NoError(err)
	req.Len(sent, 1)

	req.NoError(svc.AcceptFriendRequest(ctx, bob.ID, pending[0].ID))

	friends, err := svc.ListFriends(ctx, alice.ID)
	req.NoError(err)
	req.Len(friends, 1)
	req.Equal("bob", friends[0].Name)

	ok, err := svc.AreFriends(ctx, bob.ID, alice.ID)
	req.NoError(err)
	req.True(ok)

	// The request left the pending state; accepting again fails.
	req.ErrorIs(svc.AcceptFriendRequest(ctx, bob.ID, pending[0].ID), ErrRequestNotPending)

	// Once friends, no new request is allowed.
	req.ErrorIs(svc.SendFriendRequest(ctx, alice.ID, bob.ID), ErrAlreadyFriends)
}

func TestFriendService_RejectFlow(t *testing.T) {
	req := require.New(t)
	svc, db := newTestFriendService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice", "alice@example.com")
	bob := createTestUser(t, db, "bob", "bob@example.com")

	req.NoError(svc.SendFriendRequest(ctx, alice.ID, bob.ID))

	pending, err := svc.ListPendingRequests(ctx, bob.ID)
	req.NoError(err)
	req.Len(pending, 1)

	req.NoError(svc.RejectFriendRequest(ctx, bob.ID, pending[0].ID))

	ok, err := svc.AreFriends(ctx, alice.ID, bob.ID)
	req.NoError(err)
	req.False(ok)

	var stored models.FriendRequest
	req.NoError(db.First(&stored, pending[0].ID).Error)
	req.Equal(models.FriendRequestStatusRejected, stored.Status)
}

func TestFriendService_OnlyRecipientDecides(t *testing.T) {
	req := require.New(t)
	svc, db := newTestFriendService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice", "alice@example.com")
	bob := createTestUser(t, db, "bob", "bob@example.com")
	carol := createTestUser(t, db, "carol", "carol@example.com")

	req.NoError(svc.SendFriendRequest(ctx, alice.ID, bob.ID))
	pending, err := svc.ListPendingRequests(ctx, bob.ID)
	req.NoError(err)
	req.Len(pending, 1)

	req.ErrorIs(svc.AcceptFriendRequest(ctx, carol.ID, pending[0].ID), ErrNotRecipientOfRequest)
	req.ErrorIs(svc.AcceptFriendRequest(ctx, bob.ID, 9999), ErrFriendRequestNotFound)
}

func TestFriendService_GetFriendIDs(t *testing.T) {
	req := require.New(t)
	svc, db := newTestFriendService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice", "alice@example.com")
	bob := createTestUser(t, db, "bob", "bob@example.com")
	carol := createTestUser(t, db, "carol", "carol@example.com")

	for _, other := range []uint{bob.ID, carol.ID} {
		req.NoError(svc.SendFriendRequest(ctx, alice.ID, other))
		pending, err := svc.ListPendingRequests(ctx, other)
		req.NoError(err)
		req.NoError(svc.AcceptFriendRequest(ctx, other, pending[0].ID))
	}

	ids, err := svc.GetFriendIDs(ctx, alice.ID)
	req.NoError(err)
	req.ElementsMatch([]uint{bob.ID, carol.ID}, ids)
}
