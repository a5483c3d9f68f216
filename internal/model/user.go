package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User 用户资料（身份由外部签发，ID 即 token 中的 sub）
type User struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Username      string    `json:"username" gorm:"type:varchar(32);uniqueIndex;not null"`
	UsernameLower string    `json:"-" gorm:"type:varchar(32);index:idx_user_username_lower;not null"`
	CustomID      string    `json:"custom_id" gorm:"type:varchar(20);index:idx_user_custom_id"`
	DisplayName   string    `json:"display_name" gorm:"type:varchar(64)"`
	Email         string    `json:"email,omitempty" gorm:"type:varchar(255)"`
	AvatarURL     string    `json:"avatar_url,omitempty" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// BeforeSave 维护小写用户名，用于不区分大小写的前缀搜索
func (u *User) BeforeSave(*gorm.DB) error {
	u.UsernameLower = strings.ToLower(u.Username)
	return nil
}

// Name 展示名，缺省回退到用户名
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// UserChat 用户的会话列表（每个 (user, chat) 一行）
type UserChat struct {
	UserID    string `gorm:"primaryKey;type:varchar(64)"`
	ChatID    string `gorm:"primaryKey;type:varchar(400)"`
	CreatedAt time.Time
}

func (UserChat) TableName() string { return "user_chats" }
