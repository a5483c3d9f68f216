package model

import "time"

// Message 会话消息；创建后只允许 read 从 false 变为 true
type Message struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ChatID     string    `json:"chat_id" gorm:"type:varchar(400);index:idx_msg_chat_created;not null"`
	SenderID   string    `json:"sender_id" gorm:"type:varchar(64);not null"`
	ReceiverID string    `json:"receiver_id" gorm:"type:varchar(64);index:idx_msg_receiver_read;not null"`
	Text       string    `json:"text" gorm:"type:text;not null"`
	Read       bool      `json:"read" gorm:"index:idx_msg_receiver_read;not null;default:false"`
	CreatedAt  time.Time `json:"created_at" gorm:"index:idx_msg_chat_created"`
}

func (Message) TableName() string { return "messages" }
