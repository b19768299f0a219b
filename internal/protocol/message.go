package protocol

import "time"

// MessageType discriminates the two payload shapes a message can carry.
type MessageType string

const (
	TextMessage  MessageType = "text"
	ImageMessage MessageType = "image"
)

// Message is the wire representation of a persisted chat message, shared by the
// REST surface and the realtime channel. Exactly one of Body or ImageURL is
// populated, selected by Type.
type Message struct {
	ID          string      `json:"id"`
	SenderID    string      `json:"senderId"`
	SenderName  string      `json:"senderName,omitempty"`
	RecipientID string      `json:"recipientId"`
	Type        MessageType `json:"type"`
	Body        string      `json:"body,omitempty"`
	ImageURL    string      `json:"imageUrl,omitempty"`
	IsRead      bool        `json:"isRead"`
	SentAt      time.Time   `json:"sentAt"`
}

// Payload is the tagged variant for composing an outbound message. Use
// TextPayload or ImagePayload so the body/imageUrl exclusivity holds by
// construction.
type Payload struct {
	Type     MessageType
	Body     string
	ImageURL string
}

// TextPayload builds a text payload.
func TextPayload(body string) Payload {
	return Payload{Type: TextMessage, Body: body}
}

// ImagePayload builds an image payload referencing already-uploaded media.
func ImagePayload(url string) Payload {
	return Payload{Type: ImageMessage, ImageURL: url}
}

// Valid reports whether the payload satisfies the type/content pairing:
// text carries a non-empty body and no image reference, image carries a
// non-empty media URL and no body.
func (p Payload) Valid() bool {
	switch p.Type {
	case TextMessage:
		return p.Body != "" && p.ImageURL == ""
	case ImageMessage:
		return p.ImageURL != "" && p.Body == ""
	default:
		return false
	}
}
