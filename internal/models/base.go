package models

import (
	"strconv"
	"time"
)

// BaseModel defines the common fields for all models: an auto-incrementing ID
// and creation/update timestamps assigned by the persistence layer.
type BaseModel struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IDString returns the ID as a string, the form used on the wire.
func (b *BaseModel) IDString() string {
	return uintString(b.ID)
}

func uintString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
