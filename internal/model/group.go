package model

import "time"

const (
	GroupRoleOwner  = "owner"
	GroupRoleMember = "member"
)

// Group 群组
type Group struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null"`
	Description string    `json:"description" gorm:"type:text"`
	OwnerID     string    `json:"owner_id" gorm:"type:varchar(64);index;not null"`
	Private     bool      `json:"private" gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Group) TableName() string { return "chat_groups" }

// GroupMember 群成员，(group_id, user_id) 唯一
type GroupMember struct {
	GroupID   string    `json:"group_id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user_id" gorm:"primaryKey;type:varchar(64);index"`
	Role      string    `json:"role" gorm:"type:varchar(16);not null"`
	CreatedAt time.Time `json:"joined_at"`
}

func (GroupMember) TableName() string { return "group_members" }

// GroupInvite 群邀请
type GroupInvite struct {
	GroupID   string `gorm:"primaryKey;type:varchar(36)"`
	UserID    string `gorm:"primaryKey;type:varchar(64)"`
	InvitedBy string `gorm:"type:varchar(64);not null"`
	CreatedAt time.Time
}

func (GroupInvite) TableName() string { return "group_invites" }
