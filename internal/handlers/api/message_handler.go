package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"chatlink/internal/middleware"
	"chatlink/internal/protocol"
	"chatlink/internal/services"
	"chatlink/internal/storage"
)

// MessageHandler exposes the message store over REST: append, conversation
// history, read marking and deletion. Live fan-out happens over the
// websocket, not here.
type MessageHandler struct {
	messageService services.MessageService
}

// NewMessageHandler creates a new MessageHandler instance.
func NewMessageHandler(messageService services.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// AppendRequest is the send-message request body. Exactly one of body and
// imageUrl must be set, matching type.
type AppendRequest struct {
	RecipientID uint                 `json:"recipientId"`
	Type        protocol.MessageType `json:"type"`
	Body        string               `json:"body,omitempty"`
	ImageURL    string               `json:"imageUrl,omitempty"`
}

// Append persists a new message and returns the stored record.
func (h *MessageHandler) Append(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	var req AppendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.RecipientID == 0 {
		writeJSONError(w, "recipientId is required", http.StatusBadRequest)
		return
	}

	payload := protocol.Payload{Type: req.Type, Body: req.Body, ImageURL: req.ImageURL}
	msg, err := h.messageService.Append(r.Context(), userID, req.RecipientID, payload)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, msg)
}

// ListConversation returns the full history between the caller and a peer.
func (h *MessageHandler) ListConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	peerID, err := storage.StrToUint(mux.Vars(r)["peerID"])
	if err != nil {
		writeJSONError(w, "invalid peer id", http.StatusBadRequest)
		return
	}

	messages, err := h.messageService.ListConversation(r.Context(), userID, peerID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, messages)
}

// MessageIDsRequest carries a batch of message ids.
type MessageIDsRequest struct {
	MessageIDs []string `json:"messageIds"`
}

// BatchResult reports how many rows a batch operation touched.
type BatchResult struct {
	Affected int64 `json:"affected"`
}

// MarkRead flags the given messages as read. Only messages addressed to the
// caller are affected; the operation is idempotent.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	ids, ok := h.decodeIDs(w, r)
	if !ok {
		return
	}

	affected, err := h.messageService.MarkRead(r.Context(), ids, userID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, BatchResult{Affected: affected})
}

// Delete removes the given messages. Unknown ids are skipped silently.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	ids, ok := h.decodeIDs(w, r)
	if !ok {
		return
	}

	affected, err := h.messageService.Delete(r.Context(), ids)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, BatchResult{Affected: affected})
}

// decodeIDs parses the ids batch body; it writes the error response itself.
func (h *MessageHandler) decodeIDs(w http.ResponseWriter, r *http.Request) ([]uint, bool) {
	var req MessageIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return nil, false
	}
	defer r.Body.Close()

	ids, err := storage.StrsToUints(req.MessageIDs)
	if err != nil {
		writeJSONError(w, "invalid message id in list", http.StatusBadRequest)
		return nil, false
	}
	return ids, true
}
