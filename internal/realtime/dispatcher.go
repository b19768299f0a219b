package realtime

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"chatlink/internal/protocol"
)

// ReadMarker is the slice of the message store the dispatcher needs for read
// receipts.
type ReadMarker interface {
	MarkRead(ctx context.Context, messageIDs []uint, readerID uint) (int64, error)
}

// Dispatcher mediates between persistence and live push. It relays three
// event kinds without persisting them (typing start/stop and read receipts)
// and bridges already-persisted messages to the recipient's channel.
//
// For a single sender-to-receiver direction, events reach the live channel in
// call order: each event is one registry lookup followed by one enqueue on
// the recipient's FIFO send buffer, with no reordering queue in between.
type Dispatcher struct {
	registry *Registry
	store    ReadMarker
}

// NewDispatcher creates a dispatcher routing through registry and marking
// reads through store.
func NewDispatcher(registry *Registry, store ReadMarker) *Dispatcher {
	return &Dispatcher{registry: registry, store: store}
}

// OnSend pushes an already-persisted message to its recipient, if connected.
// A disconnected recipient is a silent miss: the sender already holds the
// persisted message, and the recipient discovers it on its next history
// fetch.
func (d *Dispatcher) OnSend(msg *protocol.Message) {
	recipientID, err := strconv.ParseUint(msg.RecipientID, 10, 32)
	if err != nil {
		log.Printf("dispatcher: unparseable recipient id %q on message %s", msg.RecipientID, msg.ID)
		return
	}

	ch, ok := d.registry.Lookup(uint(recipientID))
	if !ok {
		return
	}
	d.push(ch, protocol.EventReceiveMessage, msg)
}

// OnTyping forwards the typing state to the receiver with the sender id
// attached. No buffering, no persistence; an offline receiver simply misses
// the signal.
func (d *Dispatcher) OnTyping(senderID, receiverID uint, active bool) {
	ch, ok := d.registry.Lookup(receiverID)
	if !ok {
		return
	}
	event := protocol.EventStopTyping
	if active {
		event = protocol.EventTyping
	}
	d.push(ch, event, protocol.TypingNotice{SenderID: formatID(senderID)})
}

// OnReadReceipt marks the message read in the store, then notifies the
// original sender (peerID) so its view can update the checkmark state. The
// store transition is authoritative; the push is best-effort.
func (d *Dispatcher) OnReadReceipt(ctx context.Context, messageID, readerID, peerID uint) error {
	if _, err := d.store.MarkRead(ctx, []uint{messageID}, readerID); err != nil {
		return fmt.Errorf("failed to mark message %d read: %w", messageID, err)
	}

	ch, ok := d.registry.Lookup(peerID)
	if !ok {
		return nil
	}
	d.push(ch, protocol.EventMessageRead, protocol.MessageReadPayload{
		MessageID: formatID(messageID),
		ReaderID:  formatID(readerID),
	})
	return nil
}

func (d *Dispatcher) push(ch Channel, event protocol.EventName, payload any) {
	env, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		log.Printf("dispatcher: failed to encode %s event: %v", event, err)
		return
	}
	if !ch.Send(env) {
		log.Printf("dispatcher: dropped %s event, peer channel is full or closed", event)
	}
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
