package types

import (
	"time"

	"github.com/google/uuid"
)

// MessageRole is a closed enumeration. Values are case-sensitive.
type MessageRole string

const (
	RoleUser      MessageRole = "USER"
	RoleAssistant MessageRole = "ASSISTANT"
	RoleSystem    MessageRole = "SYSTEM"
)

func (r MessageRole) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

type Message struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Content   string      `gorm:"type:text;not null;column:content" json:"content"`
	ThreadID  uuid.UUID   `gorm:"type:uuid;index;not null" json:"threadId"`
	Thread    *Thread     `gorm:"foreignKey:ThreadID;references:ID" json:"thread,omitempty"`
	Role      MessageRole `gorm:"not null;column:role" json:"role"`
	CreatedAt time.Time   `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time   `gorm:"not null" json:"updatedAt"`
}

func (Message) TableName() string {
	return "message"
}
