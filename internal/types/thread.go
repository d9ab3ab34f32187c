package types

import (
	"time"

	"github.com/google/uuid"
)

// Thread is a conversation session owning an ordered sequence of messages.
// Title stays empty until the first message sets it.
type Thread struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string    `gorm:"column:title" json:"title"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"userId"`
	User      *User     `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
	Messages  []Message `gorm:"foreignKey:ThreadID;references:ID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (Thread) TableName() string {
	return "thread"
}
