package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/chatsync/internal/model"
	apperrors "github.com/d60-Lab/chatsync/pkg/errors"
)

type ChatRepository interface {
	Get(ctx context.Context, id string) (*model.Chat, error)
	Create(ctx context.Context, c *model.Chat) error
	ListForUser(ctx context.Context, userID string) ([]model.Chat, error)
	RecordMessage(ctx context.Context, c *model.Chat, receiverID, preview string, at time.Time) error
	ResetUnread(ctx context.Context, c *model.Chat, userID string) error
}

type chatRepository struct{ db *gorm.DB }

func NewChatRepository(db *gorm.DB) ChatRepository { return &chatRepository{db: db} }

func (r *chatRepository) Get(ctx context.Context, id string) (*model.Chat, error) {
	var c model.Chat
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err, apperrors.ErrChatNotFound, "chatRepo.Get")
	}
	return &c, nil
}

// Create 主键即规范 ID，冲突时什么都不做
func (r *chatRepository) Create(ctx context.Context, c *model.Chat) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(c).Error
	return errors.Wrap(err, "chatRepo.Create")
}

func (r *chatRepository) ListForUser(ctx context.Context, userID string) ([]model.Chat, error) {
	res := make([]model.Chat, 0)
	err := r.db.WithContext(ctx).
		Where("participant_a = ? OR participant_b = ?", userID, userID).
		Order("updated_at DESC").
		Find(&res).Error
	return res, errors.Wrap(err, "chatRepo.ListForUser")
}

// RecordMessage 更新预览与时间，接收方未读 +1
func (r *chatRepository) RecordMessage(ctx context.Context, c *model.Chat, receiverID, preview string, at time.Time) error {
	col := c.UnreadColumn(receiverID)
	res := r.db.WithContext(ctx).
		Model(&model.Chat{}).
		Where("id = ?", c.ID).
		Updates(map[string]interface{}{
			"last_message":    preview,
			"last_message_at": at,
			"updated_at":      at,
			col:               gorm.Expr(col + " + 1"),
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "chatRepo.RecordMessage")
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrChatNotFound
	}
	return nil
}

func (r *chatRepository) ResetUnread(ctx context.Context, c *model.Chat, userID string) error {
	err := r.db.WithContext(ctx).
		Model(&model.Chat{}).
		Where("id = ?", c.ID).
		UpdateColumn(c.UnreadColumn(userID), 0).Error
	return errors.Wrap(err, "chatRepo.ResetUnread")
}
