package models

import (
	"time"
)

// ChatChannel is a private conversation between two users. At most one
// channel exists per unordered pair.
type ChatChannel struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PairKey   string    `gorm:"uniqueIndex;not null" json:"-"`
	UserA     string    `gorm:"not null;index" json:"userA"`
	UserB     string    `gorm:"not null;index" json:"userB"`
	ContextID string    `json:"contextId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for ChatChannel
func (ChatChannel) TableName() string {
	return "chat_channels"
}

// ChatMessage is a message posted into a channel
type ChatMessage struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ChannelID string    `gorm:"not null;size:36;index" json:"channelId"`
	SenderID  string    `gorm:"not null" json:"senderId"`
	Type      string    `gorm:"not null;default:text" json:"type"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// TableName specifies the table name for ChatMessage
func (ChatMessage) TableName() string {
	return "chat_messages"
}

// Message type constants
const (
	MessageTypeText   = "text"
	MessageTypeSystem = "system"
)

// SystemSender is the sender id of engine-posted messages
const SystemSender = "system"

// PairKey builds the order-independent key for two users
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}
