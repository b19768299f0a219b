// Package session implements the client-side chat session protocol: the
// per-conversation state machine that reconciles fetched history with live
// events and drives typing indicators and read receipts.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/samber/lo"

	"chatlink/internal/protocol"
)

// DefaultTypingExpiry is the quiet period after which a peer's typing
// indicator clears without an explicit stop signal.
const DefaultTypingExpiry = 3 * time.Second

// MessageAPI is the request/response surface the session consumes. The
// server's message service satisfies it directly.
type MessageAPI interface {
	ListConversation(ctx context.Context, userA, userB uint) ([]*protocol.Message, error)
	Append(ctx context.Context, senderID, recipientID uint, payload protocol.Payload) (*protocol.Message, error)
	Delete(ctx context.Context, messageIDs []uint) (int64, error)
}

// Emitter sends client-to-server envelopes over the live channel.
type Emitter interface {
	Emit(env *protocol.Envelope) error
}

// State is the session's lifecycle state.
type State int

const (
	StateLoading State = iota
	StateReady
)

// Config wires a ChatSession to its collaborators.
type Config struct {
	SelfID uint
	PeerID uint
	API    MessageAPI
	Emit   Emitter
	// TypingExpiry overrides DefaultTypingExpiry; tests shorten it.
	TypingExpiry time.Duration
}

// ChatSession tracks one open conversation: the ordered local message list,
// the peer's typing state, read state, and the local multi-select used to
// gate deletion. All state is local and non-authoritative; the store remains
// the source of truth.
type ChatSession struct {
	selfID       uint
	peerID       uint
	api          MessageAPI
	emitter      Emitter
	typingExpiry time.Duration

	mu         sync.Mutex
	state      State
	messages   []*protocol.Message
	known      map[string]struct{}
	selected   map[string]struct{}
	peerTyping bool

	// peerTimer clears the indicator after a quiet period; stopTimer emits
	// the automatic stopTyping for our own composing. Both are reset on every
	// renewed signal and cancelled on Close.
	peerTimer *time.Timer
	stopTimer *time.Timer
	closed    bool
}

// New creates a session in the Loading state.
func New(cfg Config) *ChatSession {
	expiry := cfg.TypingExpiry
	if expiry <= 0 {
		expiry = DefaultTypingExpiry
	}
	return &ChatSession{
		selfID:       cfg.SelfID,
		peerID:       cfg.PeerID,
		api:          cfg.API,
		emitter:      cfg.Emit,
		typingExpiry: expiry,
		state:        StateLoading,
		known:        make(map[string]struct{}),
		selected:     make(map[string]struct{}),
	}
}

// Open announces presence, fetches the full conversation history, enters
// Ready, and emits a read receipt for every fetched message addressed to us
// that is still unread (seen-on-open).
func (s *ChatSession) Open(ctx context.Context) error {
	s.emit(protocol.EventJoin, map[string]string{"userId": s.formatSelf()})

	history, err := s.api.ListConversation(ctx, s.selfID, s.peerID)
	if err != nil {
		return fmt.Errorf("failed to load conversation history: %w", err)
	}

	s.mu.Lock()
	s.messages = s.messages[:0]
	s.known = make(map[string]struct{})
	for _, m := range history {
		s.messages = append(s.messages, m)
		s.known[m.ID] = struct{}{}
	}
	s.state = StateReady
	unseen := s.unseenLocked()
	s.mu.Unlock()

	s.emitSeen(unseen)
	return nil
}

// unseenLocked collects messages addressed to us that are still unread and
// optimistically flips their local flag.
func (s *ChatSession) unseenLocked() []*protocol.Message {
	unseen := lo.Filter(s.messages, func(m *protocol.Message, _ int) bool {
		return m.RecipientID == s.formatSelf() && !m.IsRead
	})
	for _, m := range unseen {
		m.IsRead = true
	}
	return unseen
}

func (s *ChatSession) emitSeen(msgs []*protocol.Message) {
	for _, m := range msgs {
		s.emit(protocol.EventMessageSeen, protocol.MessageSeenPayload{
			MessageID:  m.ID,
			SenderID:   m.SenderID,
			ReceiverID: s.formatSelf(),
		})
	}
}

// SendText persists a text message and pushes it live.
func (s *ChatSession) SendText(ctx context.Context, body string) (*protocol.Message, error) {
	return s.send(ctx, protocol.TextPayload(body))
}

// SendImage persists an image message referencing already-uploaded media and
// pushes it live.
func (s *ChatSession) SendImage(ctx context.Context, imageURL string) (*protocol.Message, error) {
	return s.send(ctx, protocol.ImagePayload(imageURL))
}

// send is persist-then-notify: the push is issued by the session itself after
// the persisted message comes back. A failed push leaves the message durably
// stored (and locally visible); the peer recovers it on its next fetch.
func (s *ChatSession) send(ctx context.Context, payload protocol.Payload) (*protocol.Message, error) {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return nil, fmt.Errorf("conversation is still loading")
	}
	s.mu.Unlock()

	msg, err := s.api.Append(ctx, s.selfID, s.peerID, payload)
	if err != nil {
		return nil, err
	}

	s.mergeMessage(msg)

	s.emit(protocol.EventSendMessage, protocol.SendMessagePayload{
		SenderID:   s.formatSelf(),
		ReceiverID: s.formatPeer(),
		Message:    msg,
	})
	s.StopComposing()
	return msg, nil
}

// HandleEvent merges one server-to-client envelope into the session's view.
// Events for other conversations are ignored.
func (s *ChatSession) HandleEvent(env *protocol.Envelope) {
	switch env.Event {
	case protocol.EventReceiveMessage:
		var msg protocol.Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			log.Printf("session: malformed receiveMessage payload: %v", err)
			return
		}
		s.handleIncoming(&msg)

	case protocol.EventTyping, protocol.EventStopTyping:
		var notice protocol.TypingNotice
		if err := json.Unmarshal(env.Data, &notice); err != nil {
			log.Printf("session: malformed typing payload: %v", err)
			return
		}
		if notice.SenderID != s.formatPeer() {
			return
		}
		s.setPeerTyping(env.Event == protocol.EventTyping)

	case protocol.EventMessageRead:
		var receipt protocol.MessageReadPayload
		if err := json.Unmarshal(env.Data, &receipt); err != nil {
			log.Printf("session: malformed messageRead payload: %v", err)
			return
		}
		s.applyReadReceipt(receipt)
	}
}

// handleIncoming merges a pushed message. The same message can arrive both as
// the send call's return value and as a pushed event, so merging is keyed by
// id.
func (s *ChatSession) handleIncoming(msg *protocol.Message) {
	if !s.relevant(msg) {
		return
	}
	if !s.mergeMessage(msg) {
		return
	}

	// A new inbound message is visible immediately; acknowledge it.
	s.mu.Lock()
	var unseen []*protocol.Message
	if s.state == StateReady && msg.RecipientID == s.formatSelf() && !msg.IsRead {
		msg.IsRead = true
		unseen = []*protocol.Message{msg}
	}
	s.mu.Unlock()
	s.emitSeen(unseen)
}

// relevant checks the message belongs to this conversation, in either
// direction.
func (s *ChatSession) relevant(msg *protocol.Message) bool {
	self, peer := s.formatSelf(), s.formatPeer()
	fromPeer := msg.SenderID == peer && msg.RecipientID == self
	toPeer := msg.SenderID == self && msg.RecipientID == peer
	return fromPeer || toPeer
}

// mergeMessage appends msg unless its id is already present. Reports whether
// it was new.
func (s *ChatSession) mergeMessage(msg *protocol.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.known[msg.ID]; dup {
		return false
	}
	s.known[msg.ID] = struct{}{}
	s.messages = append(s.messages, msg)
	return true
}

// applyReadReceipt flips the local read flag for a matching id.
func (s *ChatSession) applyReadReceipt(receipt protocol.MessageReadPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == receipt.MessageID {
			m.IsRead = true
			return
		}
	}
}

// Composing signals a keystroke: it emits typing and (re)arms the automatic
// stopTyping that fires after the quiet period.
func (s *ChatSession) Composing() {
	s.emit(protocol.EventTyping, protocol.TypingPayload{
		SenderID:   s.formatSelf(),
		ReceiverID: s.formatPeer(),
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.stopTimer != nil {
		s.stopTimer.Stop()
	}
	s.stopTimer = time.AfterFunc(s.typingExpiry, s.StopComposing)
}

// StopComposing emits an explicit stopTyping and cancels the pending
// automatic one.
func (s *ChatSession) StopComposing() {
	s.mu.Lock()
	if s.stopTimer != nil {
		s.stopTimer.Stop()
		s.stopTimer = nil
	}
	s.mu.Unlock()

	s.emit(protocol.EventStopTyping, protocol.TypingPayload{
		SenderID:   s.formatSelf(),
		ReceiverID: s.formatPeer(),
	})
}

// setPeerTyping drives the PeerTyping sub-state. Every renewed typing signal
// rearms the expiry so the indicator clears after the quiet period even when
// the explicit stop never arrives.
func (s *ChatSession) setPeerTyping(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.peerTyping = active
	if s.peerTimer != nil {
		s.peerTimer.Stop()
		s.peerTimer = nil
	}
	if active {
		s.peerTimer = time.AfterFunc(s.typingExpiry, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.peerTyping = false
			s.peerTimer = nil
		})
	}
}

// ToggleSelect flips a message in or out of the local multi-select.
func (s *ChatSession) ToggleSelect(messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.selected[messageID]; ok {
		delete(s.selected, messageID)
		return
	}
	if _, known := s.known[messageID]; known {
		s.selected[messageID] = struct{}{}
	}
}

// SelectedIDs returns the currently selected message ids.
func (s *ChatSession) SelectedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Keys(s.selected)
}

// DeleteSelected deletes the selected messages through the store and then
// refetches history so the view reflects the authoritative state.
func (s *ChatSession) DeleteSelected(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]uint, 0, len(s.selected))
	for id := range s.selected {
		parsed, err := strconv.ParseUint(id, 10, 32)
		if err != nil {
			continue
		}
		ids = append(ids, uint(parsed))
	}
	s.selected = make(map[string]struct{})
	s.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}
	if _, err := s.api.Delete(ctx, ids); err != nil {
		return fmt.Errorf("failed to delete selected messages: %w", err)
	}
	return s.refetch(ctx)
}

// refetch replaces the local list with a fresh conversation snapshot.
func (s *ChatSession) refetch(ctx context.Context) error {
	history, err := s.api.ListConversation(ctx, s.selfID, s.peerID)
	if err != nil {
		return fmt.Errorf("failed to refetch conversation: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = s.messages[:0]
	s.known = make(map[string]struct{})
	for _, m := range history {
		s.messages = append(s.messages, m)
		s.known[m.ID] = struct{}{}
	}
	return nil
}

// State reports the session lifecycle state.
func (s *ChatSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PeerTyping reports whether the typing indicator is currently visible.
func (s *ChatSession) PeerTyping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerTyping
}

// Messages returns a snapshot of the ordered local message list.
func (s *ChatSession) Messages() []*protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*protocol.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Close cancels the session's timers. Pending store operations are not
// cancelled; only future local state changes stop.
func (s *ChatSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.peerTimer != nil {
		s.peerTimer.Stop()
		s.peerTimer = nil
	}
	if s.stopTimer != nil {
		s.stopTimer.Stop()
		s.stopTimer = nil
	}
}

func (s *ChatSession) emit(event protocol.EventName, payload any) {
	env, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		log.Printf("session: failed to encode %s event: %v", event, err)
		return
	}
	if err := s.emitter.Emit(env); err != nil {
		log.Printf("session: failed to emit %s event: %v", event, err)
	}
}

func (s *ChatSession) formatSelf() string {
	return strconv.FormatUint(uint64(s.selfID), 10)
}

func (s *ChatSession) formatPeer() string {
	return strconv.FormatUint(uint64(s.peerID), 10)
}
