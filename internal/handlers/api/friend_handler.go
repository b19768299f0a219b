package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"chatlink/internal/middleware"
	"chatlink/internal/services"
	"chatlink/internal/storage"
)

// FriendHandler exposes the friend request workflow and the friends list.
type FriendHandler struct {
	friendService services.FriendService
}

// NewFriendHandler creates a new FriendHandler instance.
func NewFriendHandler(friendService services.FriendService) *FriendHandler {
	return &FriendHandler{friendService: friendService}
}

// SendRequestBody is the send-friend-request request body.
type SendRequestBody struct {
	RecipientID uint `json:"recipientId"`
}

// SendRequest creates a pending friend request to another user.
func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	var req SendRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.RecipientID == 0 {
		writeJSONError(w, "recipientId is required", http.StatusBadRequest)
		return
	}

	err := h.friendService.SendFriendRequest(r.Context(), userID, req.RecipientID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrFriendRequestSelf):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrRecipientNotFound):
			writeJSONError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, services.ErrFriendRequestExists), errors.Is(err, services.ErrAlreadyFriends):
			writeJSONError(w, err.Error(), http.StatusConflict)
		default:
			writeJSONError(w, "failed to send friend request", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]string{"message": "friend request sent"})
}

// ListPending returns friend requests awaiting the caller's decision.
func (h *FriendHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	requests, err := h.friendService.ListPendingRequests(r.Context(), userID)
	if err != nil {
		writeJSONError(w, "failed to list friend requests", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, requests)
}

// ListSent returns the pending requests the caller has sent.
func (h *FriendHandler) ListSent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	recipients, err := h.friendService.ListSentRequests(r.Context(), userID)
	if err != nil {
		writeJSONError(w, "failed to list sent requests", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, recipients)
}

// Accept accepts a pending request addressed to the caller.
func (h *FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.friendService.AcceptFriendRequest, "friend request accepted")
}

// Reject rejects a pending request addressed to the caller.
func (h *FriendHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.friendService.RejectFriendRequest, "friend request rejected")
}

func (h *FriendHandler) decide(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, recipientID, requestID uint) error, okMessage string) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	requestID, err := storage.StrToUint(mux.Vars(r)["requestID"])
	if err != nil {
		writeJSONError(w, "invalid request id", http.StatusBadRequest)
		return
	}

	if err := op(r.Context(), userID, requestID); err != nil {
		switch {
		case errors.Is(err, services.ErrFriendRequestNotFound):
			writeJSONError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, services.ErrNotRecipientOfRequest):
			writeJSONError(w, err.Error(), http.StatusForbidden)
		case errors.Is(err, services.ErrRequestNotPending):
			writeJSONError(w, err.Error(), http.StatusConflict)
		default:
			writeJSONError(w, "failed to update friend request", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": okMessage})
}

// ListFriends returns the caller's accepted friends.
func (h *FriendHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	friends, err := h.friendService.ListFriends(r.Context(), userID)
	if err != nil {
		writeJSONError(w, "failed to list friends", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, friends)
}
