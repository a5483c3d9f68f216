package model

import "time"

const (
	PostKindVideo = "video"
	PostKindReel  = "reel"
)

// Post 内容主体（视频 / reels）
type Post struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AuthorID      string    `json:"author_id" gorm:"type:varchar(64);index:idx_post_author"`
	Kind          string    `json:"kind" gorm:"type:varchar(16);not null"`
	Caption       string    `json:"caption" gorm:"type:text"`
	MediaURL      string    `json:"media_url" gorm:"type:text;not null"`
	AssetID       string    `json:"asset_id" gorm:"type:varchar(255)"`
	LikesCount    int64     `json:"likes_count" gorm:"not null;default:0"`
	CommentsCount int64     `json:"comments_count" gorm:"not null;default:0"`
	CreatedAt     time.Time `json:"created_at" gorm:"index:idx_post_author"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Post) TableName() string { return "posts" }

// Comment 评论
type Comment struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	PostID    string    `json:"post_id" gorm:"type:varchar(36);index:idx_comment_post;not null"`
	UserID    string    `json:"user_id" gorm:"type:varchar(64);not null"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_comment_post"`
}

func (Comment) TableName() string { return "comments" }

// Like 点赞，复合主键避免重复点赞
type Like struct {
	PostID    string `gorm:"primaryKey;type:varchar(36)"`
	UserID    string `gorm:"primaryKey;type:varchar(64)"`
	CreatedAt time.Time
}

func (Like) TableName() string { return "likes" }

// All 需要迁移的模型
func All() []interface{} {
	return []interface{}{
		&User{}, &UserChat{}, &Chat{}, &Message{}, &Notification{},
		&Group{}, &GroupMember{}, &GroupInvite{}, &Post{}, &Comment{}, &Like{},
	}
}
