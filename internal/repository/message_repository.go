package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/d60-Lab/chatsync/internal/model"
)

type MessageRepository interface {
	Create(ctx context.Context, m *model.Message) error
	ListByChat(ctx context.Context, chatID string, limit int) ([]model.Message, error)
	MarkRead(ctx context.Context, chatID, receiverID string) (int64, error)
	CountUnread(ctx context.Context, chatID, receiverID string) (int64, error)
}

type messageRepository struct{ db *gorm.DB }

func NewMessageRepository(db *gorm.DB) MessageRepository { return &messageRepository{db: db} }

func (r *messageRepository) Create(ctx context.Context, m *model.Message) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(m).Error, "messageRepo.Create")
}

// ListByChat 按服务端时间升序；limit <= 0 表示不限
func (r *messageRepository) ListByChat(ctx context.Context, chatID string, limit int) ([]model.Message, error) {
	res := make([]model.Message, 0)
	q := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&res).Error
	return res, errors.Wrap(err, "messageRepo.ListByChat")
}

// MarkRead 一条 UPDATE 批量翻转接收方的未读消息
func (r *messageRepository) MarkRead(ctx context.Context, chatID, receiverID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("chat_id = ? AND receiver_id = ? AND read = ?", chatID, receiverID, false).
		Update("read", true)
	return res.RowsAffected, errors.Wrap(res.Error, "messageRepo.MarkRead")
}

func (r *messageRepository) CountUnread(ctx context.Context, chatID, receiverID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("chat_id = ? AND receiver_id = ? AND read = ?", chatID, receiverID, false).
		Count(&cnt).Error
	return cnt, errors.Wrap(err, "messageRepo.CountUnread")
}
