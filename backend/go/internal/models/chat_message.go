package models

import "time"

// ChatRole 标识对话中的发言方。
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage 是针对某个来源（PDF 或视频）的一条对话记录。
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SourceKey string    `gorm:"index:idx_chat_source_user;size:64;not null" json:"source"`
	UserID    uint      `gorm:"index:idx_chat_source_user;not null" json:"-"`
	Role      ChatRole  `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
