package model

import "time"

type NotificationType string

const (
	NotificationMessage     NotificationType = "message"
	NotificationGroupInvite NotificationType = "group_invite"
	NotificationGroupJoin   NotificationType = "group_join"
	NotificationLike        NotificationType = "like"
	NotificationComment     NotificationType = "comment"
)

// NotificationData 通知附带的结构化负载
type NotificationData struct {
	ChatID   string `json:"chat_id,omitempty"`
	GroupID  string `json:"group_id,omitempty"`
	SenderID string `json:"sender_id,omitempty"`
	PostID   string `json:"post_id,omitempty"`
}

// Notification 用户通知；只允许 read 翻转
type Notification struct {
	ID        string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string           `json:"user_id" gorm:"type:varchar(64);index:idx_notif_user_created;not null"`
	Type      NotificationType `json:"type" gorm:"type:varchar(20);not null"`
	Title     string           `json:"title" gorm:"type:varchar(255)"`
	Body      string           `json:"body" gorm:"type:text"`
	Read      bool             `json:"read" gorm:"index;not null;default:false"`
	Data      NotificationData `json:"data" gorm:"serializer:json;type:text"`
	CreatedAt time.Time        `json:"created_at" gorm:"index:idx_notif_user_created"`
}

func (Notification) TableName() string { return "notifications" }
