// Package ws upgrades authenticated HTTP requests to websocket sessions.
package ws

import (
	"fmt"
	"log"
	"net/http"

	"chatlink/internal/auth"
	"chatlink/internal/config"
	"chatlink/internal/realtime"
)

// WebSocketHandler handles websocket connection requests.
type WebSocketHandler struct {
	registry   *realtime.Registry
	dispatcher *realtime.Dispatcher
	blacklist  auth.TokenBlacklist
	cfg        config.Config
}

// NewWebSocketHandler creates a new WebSocketHandler instance.
func NewWebSocketHandler(registry *realtime.Registry, dispatcher *realtime.Dispatcher, blacklist auth.TokenBlacklist, cfg config.Config) *WebSocketHandler {
	return &WebSocketHandler{
		registry:   registry,
		dispatcher: dispatcher,
		blacklist:  blacklist,
		cfg:        cfg,
	}
}

// ServeWS authenticates the request by its token query parameter and
// upgrades it. The connection is not registered for delivery until the
// client sends its join event.
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing authentication token", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ValidateToken(r.Context(), token, h.cfg.Auth.JWTSecretKey, h.blacklist)
	if err != nil {
		log.Printf("websocket connection rejected: %v", err)
		http.Error(w, fmt.Sprintf("invalid token: %v", err), http.StatusUnauthorized)
		return
	}

	realtime.ServeConnection(h.registry, h.dispatcher, claims.UserID, w, r, h.cfg.WebSocket)
}
