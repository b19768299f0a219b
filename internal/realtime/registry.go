package realtime

import (
	"sync"

	"chatlink/internal/protocol"
)

// Channel is the outbound half of a live connection. The registry owns the
// handle for routing purposes only; the connection's lifecycle belongs to its
// pumps.
type Channel interface {
	// Send enqueues an envelope for delivery. It never blocks; it reports
	// false when the peer's buffer is full or the channel is closed.
	Send(env *protocol.Envelope) bool
}

// Registry maps a user identity to its currently connected live channel.
// Process-local and ephemeral: state is lost on restart and rebuilt from a
// fresh join on reconnect. A user has at most one channel; a second join
// under the same id supersedes the first (last writer wins) without closing
// the old channel.
type Registry struct {
	mu       sync.RWMutex
	channels map[uint]Channel
}

// NewRegistry creates an empty registry. One instance is created at server
// start and injected everywhere; there is no ambient global.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[uint]Channel)}
}

// Join registers ch as the current live endpoint for userID.
func (r *Registry) Join(userID uint, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[userID] = ch
}

// Lookup returns the current channel for userID. Absence is not an error; it
// means "deliver later via fetch", never "retry".
func (r *Registry) Lookup(userID uint) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[userID]
	return ch, ok
}

// Remove deregisters ch from whatever user it is associated with. Safe to
// call multiple times. A channel that was already superseded by a newer join
// is left alone so the newer registration is not disturbed.
func (r *Registry) Remove(ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, current := range r.channels {
		if current == ch {
			delete(r.channels, userID)
			return
		}
	}
}

// Clear drops every registration. Intended for tests.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = make(map[uint]Channel)
}
