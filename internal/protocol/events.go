package protocol

import "encoding/json"

// EventName identifies a realtime channel event.
type EventName string

// Client-to-server events.
const (
	EventJoin        EventName = "join"
	EventSendMessage EventName = "sendMessage"
	EventTyping      EventName = "typing"
	EventStopTyping  EventName = "stopTyping"
	EventMessageSeen EventName = "messageSeen"
)

// Server-to-client events. Typing events reuse the inbound names; the forwarded
// payload carries only the sender id.
const (
	EventReceiveMessage EventName = "receiveMessage"
	EventMessageRead    EventName = "messageRead"
)

// Envelope is the JSON frame exchanged over the websocket in both directions.
// Data holds the event-specific payload, decoded lazily by the receiver.
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals payload into an Envelope ready for transmission.
func NewEnvelope(event EventName, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{Event: event, Data: data}, nil
}

// SendMessagePayload is emitted by a client after it has persisted a message
// through the REST surface; Message is the full persisted record.
type SendMessagePayload struct {
	SenderID   string   `json:"senderId"`
	ReceiverID string   `json:"receiverId"`
	Message    *Message `json:"message"`
}

// TypingPayload accompanies typing and stopTyping in the client-to-server
// direction.
type TypingPayload struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

// TypingNotice is the forwarded form delivered to the receiving peer.
type TypingNotice struct {
	SenderID string `json:"senderId"`
}

// MessageSeenPayload is emitted by a recipient when a message becomes visible.
// SenderID is the original sender, who receives the resulting messageRead.
type MessageSeenPayload struct {
	MessageID  string `json:"messageId"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

// MessageReadPayload notifies the original sender that ReaderID has observed
// the message.
type MessageReadPayload struct {
	MessageID string `json:"messageId"`
	ReaderID  string `json:"readerId"`
}
