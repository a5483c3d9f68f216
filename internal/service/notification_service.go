package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/chatsync/internal/model"
	"github.com/d60-Lab/chatsync/internal/realtime"
	"github.com/d60-Lab/chatsync/internal/repository"
	apperrors "github.com/d60-Lab/chatsync/pkg/errors"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 100
)

// NotificationService 通知的存储、已读与实时推送
type NotificationService struct {
	repo   repository.NotificationRepository
	broker *realtime.Broker
	now    func() time.Time
}

func NewNotificationService(db *gorm.DB, broker *realtime.Broker) *NotificationService {
	return &NotificationService{
		repo:   repository.NewNotificationRepository(db),
		broker: broker,
		now:    time.Now,
	}
}

// Create 落库并通知接收方的订阅
func (s *NotificationService) Create(ctx context.Context, n *model.Notification) error {
	if n.UserID == "" {
		return apperrors.ErrMissingParticipant
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.Read = false
	n.CreatedAt = s.now().UTC()
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	s.broker.Publish(ctx, realtime.NotificationsTopic(n.UserID))
	return nil
}

// List 最新在前
func (s *NotificationService) List(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}
	return s.repo.ListForUser(ctx, userID, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return apperrors.ErrNotRecipient
	}
	if n.Read {
		return nil
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return err
	}
	s.broker.Publish(ctx, realtime.NotificationsTopic(userID))
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.broker.Publish(ctx, realtime.NotificationsTopic(userID))
	}
	return n, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// Subscribe 通知列表的实时快照
func (s *NotificationService) Subscribe(ctx context.Context, userID string) (*realtime.Subscription[model.Notification], error) {
	return realtime.Subscribe(ctx, s.broker, realtime.NotificationsTopic(userID), func(ctx context.Context) ([]model.Notification, error) {
		return s.List(ctx, userID, defaultNotificationLimit)
	})
}
