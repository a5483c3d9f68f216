package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/d60-Lab/chatsync/internal/model"
	apperrors "github.com/d60-Lab/chatsync/pkg/errors"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	Get(ctx context.Context, id string) (*model.Notification, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
}

type notificationRepository struct{ db *gorm.DB }

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(n).Error, "notificationRepo.Create")
}

func (r *notificationRepository) Get(ctx context.Context, id string) (*model.Notification, error) {
	var n model.Notification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, translate(err, apperrors.ErrNotificationNotFound, "notificationRepo.Get")
	}
	return &n, nil
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	res := make([]model.Notification, 0)
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&res).Error
	return res, errors.Wrap(err, "notificationRepo.ListForUser")
}

func (r *notificationRepository) MarkRead(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&model.Notification{}).Where("id = ?", id).Update("read", true).Error
	return errors.Wrap(err, "notificationRepo.MarkRead")
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	return res.RowsAffected, errors.Wrap(res.Error, "notificationRepo.MarkAllRead")
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&cnt).Error
	return cnt, errors.Wrap(err, "notificationRepo.CountUnread")
}
