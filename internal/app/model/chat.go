package model

import (
	"time"

	"gorm.io/gorm"
)

type ChatSender string

const (
	SenderCustomer  ChatSender = "customer"
	SenderAssistant ChatSender = "assistant"
)

// ChatRoom is a shopping-assistant conversation. Like carts, a room
// belongs to a signed-in user or an anonymous browser session.
type ChatRoom struct {
	ID        uint    `gorm:"primarykey" json:"id"`
	UserID    *uint   `gorm:"index" json:"user_id,omitempty"`
	SessionID *string `gorm:"index;size:64" json:"session_id,omitempty"`

	// Last message info, used by the room list
	LastMessageContent string     `gorm:"type:text" json:"last_message_content,omitempty"`
	LastMessageAt      *time.Time `gorm:"index" json:"last_message_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	User     *User         `gorm:"foreignKey:UserID" json:"-"`
	Messages []ChatMessage `gorm:"foreignKey:ChatRoomID" json:"messages,omitempty"`
}

func (ChatRoom) TableName() string {
	return "chat_rooms"
}

type ChatMessage struct {
	ID         uint       `gorm:"primarykey" json:"id"`
	ChatRoomID uint       `gorm:"not null;index:idx_room_created,priority:1;index" json:"chat_room_id"`
	ChatRoom   ChatRoom   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Sender     ChatSender `gorm:"type:varchar(20);not null" json:"sender"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time  `gorm:"index:idx_room_created,priority:2" json:"created_at"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
