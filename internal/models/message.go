package models

import (
	"time"

	"chatlink/internal/protocol"
)

// Message is a chat message stored in the database. Sender and recipient are
// user foreign keys; a conversation is never stored, it is always the derived
// view over the (sender, recipient) pair in either direction.
//
// Body and ImageURL are mutually exclusive, discriminated by Type. IsRead only
// ever transitions false to true.
type Message struct {
	BaseModel
	SenderID    uint                 `gorm:"index:idx_message_pair;not null" json:"senderId"`
	RecipientID uint                 `gorm:"index:idx_message_pair;not null" json:"recipientId"`
	Type        protocol.MessageType `gorm:"type:varchar(20);not null" json:"type"`
	Body        string               `gorm:"type:text" json:"body,omitempty"`
	ImageURL    string               `gorm:"type:varchar(255)" json:"imageUrl,omitempty"`
	IsRead      bool                 `gorm:"not null;default:false" json:"isRead"`
	SentAt      time.Time            `gorm:"not null;index" json:"sentAt"`

	Sender User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

// TableName specifies the table name for the Message model.
func (Message) TableName() string {
	return "messages"
}

// ToWire converts the stored record to its wire representation, with the
// sender's profile resolved when it was preloaded.
func (m *Message) ToWire() *protocol.Message {
	wire := &protocol.Message{
		ID:          m.IDString(),
		SenderID:    uintString(m.SenderID),
		RecipientID: uintString(m.RecipientID),
		Type:        m.Type,
		Body:        m.Body,
		ImageURL:    m.ImageURL,
		IsRead:      m.IsRead,
		SentAt:      m.SentAt,
	}
	if m.Sender.ID != 0 {
		wire.SenderName = m.Sender.Name
	}
	return wire
}
