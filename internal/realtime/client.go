package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chatlink/internal/config"
	"chatlink/internal/protocol"
	"chatlink/internal/storage"
)

// Client is the middleman between one websocket connection and the
// registry/dispatcher pair. It carries the authenticated user id; ids inside
// inbound payloads never override it.
type Client struct {
	registry   *Registry
	dispatcher *Dispatcher
	conn       *websocket.Conn

	// Buffered channel of outbound frames; its FIFO order is what preserves
	// per-direction event ordering.
	send chan []byte

	closeOnce sync.Once

	UserID uint
}

// Send implements Channel. It never blocks: a full buffer means the frame is
// dropped and the caller is told so.
func (c *Client) Send(env *protocol.Envelope) bool {
	frame, err := json.Marshal(env)
	if err != nil {
		log.Printf("client %d: failed to marshal envelope: %v", c.UserID, err)
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// readPump pumps envelopes from the websocket connection into the dispatcher.
func (c *Client) readPump(wsCfg config.WebSocketConfig) {
	defer func() {
		c.registry.Remove(c)
		c.closeOnce.Do(func() { close(c.send) })
		c.conn.Close()
	}()
	pongWait := time.Duration(wsCfg.PongWaitSeconds) * time.Second
	c.conn.SetReadLimit(int64(wsCfg.MaxMessageSizeBytes))
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error (client %d): %v", c.UserID, err)
			}
			break
		}

		var env protocol.Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			log.Printf("client %d sent an undecodable frame: %v", c.UserID, err)
			continue
		}
		c.handleEnvelope(&env)
	}
}

// handleEnvelope routes one inbound event. Malformed payloads are logged and
// dropped; they never tear the connection down.
func (c *Client) handleEnvelope(env *protocol.Envelope) {
	switch env.Event {
	case protocol.EventJoin:
		// The payload's userId is ignored; presence is keyed by the
		// authenticated identity.
		c.registry.Join(c.UserID, c)

	case protocol.EventSendMessage:
		var payload protocol.SendMessagePayload
		if err := json.Unmarshal(env.Data, &payload); err != nil || payload.Message == nil {
			log.Printf("client %d sent a malformed sendMessage payload", c.UserID)
			return
		}
		senderID, err := storage.StrToUint(payload.Message.SenderID)
		if err != nil || senderID != c.UserID {
			log.Printf("client %d tried to relay a message for sender %q", c.UserID, payload.Message.SenderID)
			return
		}
		c.dispatcher.OnSend(payload.Message)

	case protocol.EventTyping, protocol.EventStopTyping:
		var payload protocol.TypingPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			log.Printf("client %d sent a malformed typing payload", c.UserID)
			return
		}
		receiverID, err := storage.StrToUint(payload.ReceiverID)
		if err != nil {
			log.Printf("client %d sent typing with bad receiver %q", c.UserID, payload.ReceiverID)
			return
		}
		c.dispatcher.OnTyping(c.UserID, receiverID, env.Event == protocol.EventTyping)

	case protocol.EventMessageSeen:
		var payload protocol.MessageSeenPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			log.Printf("client %d sent a malformed messageSeen payload", c.UserID)
			return
		}
		messageID, err := storage.StrToUint(payload.MessageID)
		if err != nil {
			log.Printf("client %d sent messageSeen with bad message id %q", c.UserID, payload.MessageID)
			return
		}
		peerID, err := storage.StrToUint(payload.SenderID)
		if err != nil {
			log.Printf("client %d sent messageSeen with bad sender id %q", c.UserID, payload.SenderID)
			return
		}
		if err := c.dispatcher.OnReadReceipt(context.Background(), messageID, c.UserID, peerID); err != nil {
			log.Printf("client %d: read receipt for message %d failed: %v", c.UserID, messageID, err)
		}

	default:
		log.Printf("client %d sent unknown event %q", c.UserID, env.Event)
	}
}

// writePump pumps frames from the send buffer to the websocket connection.
func (c *Client) writePump(wsCfg config.WebSocketConfig) {
	writeWait := time.Duration(wsCfg.WriteWaitSeconds) * time.Second
	ticker := time.NewTicker(time.Duration(wsCfg.PingPeriodSeconds) * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeConnection upgrades the HTTP request and runs the connection's pumps.
// The client is registered for routing only when it sends a join event.
func ServeConnection(registry *Registry, dispatcher *Dispatcher, userID uint, w http.ResponseWriter, r *http.Request, wsCfg config.WebSocketConfig) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	bufSize := wsCfg.SendBufferSize
	if bufSize <= 0 {
		bufSize = 256
	}
	client := &Client{
		registry:   registry,
		dispatcher: dispatcher,
		conn:       conn,
		send:       make(chan []byte, bufSize),
		UserID:     userID,
	}

	go client.writePump(wsCfg)
	go client.readPump(wsCfg)
}
