package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/chatsync/internal/cache"
	"github.com/d60-Lab/chatsync/internal/model"
	"github.com/d60-Lab/chatsync/internal/realtime"
	"github.com/d60-Lab/chatsync/internal/repository"
	apperrors "github.com/d60-Lab/chatsync/pkg/errors"
	"github.com/d60-Lab/chatsync/pkg/logger"
)

const (
	// MaxMessageRunes 单条消息最大字符数
	MaxMessageRunes = 2000
	previewRunes    = 100
)

var tracer = otel.Tracer("github.com/d60-Lab/chatsync/internal/service")

// ChatService 双人会话：查找或创建、发消息、已读、实时快照
type ChatService struct {
	db       *gorm.DB
	chats    repository.ChatRepository
	messages repository.MessageRepository
	profiles *cache.ProfileCache
	broker   *realtime.Broker
	notifier Notifier
	now      func() time.Time
}

func NewChatService(db *gorm.DB, profiles *cache.ProfileCache, broker *realtime.Broker, notifier Notifier) *ChatService {
	return &ChatService{
		db:       db,
		chats:    repository.NewChatRepository(db),
		messages: repository.NewMessageRepository(db),
		profiles: profiles,
		broker:   broker,
		notifier: notifier,
		now:      time.Now,
	}
}

// FindOrCreateChat 返回两人之间唯一的会话，不存在则创建
func (s *ChatService) FindOrCreateChat(ctx context.Context, me, other string) (chat *model.Chat, err error) {
	ctx, span := tracer.Start(ctx, "ChatService.FindOrCreateChat",
		trace.WithAttributes(attribute.String("chat.user", me), attribute.String("chat.other", other)))
	defer func() { endSpan(span, err) }()

	me, other = strings.TrimSpace(me), strings.TrimSpace(other)
	if me == "" || other == "" {
		return nil, apperrors.ErrMissingParticipant
	}
	if me == other {
		return nil, apperrors.ErrChatWithSelf
	}

	existing, err := s.chats.ListForUser(ctx, me)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].HasParticipant(other) {
			return &existing[i], nil
		}
	}

	profiles, err := s.profiles.GetMany(ctx, []string{me, other})
	if err != nil {
		return nil, err
	}
	mine, ok1 := profiles[me]
	theirs, ok2 := profiles[other]
	if !ok1 || !ok2 {
		return nil, apperrors.ErrUserNotFound
	}

	c := model.NewChat(me, other, mine.Name(), theirs.Name())
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		chats := repository.NewChatRepository(tx)
		if err := chats.Create(ctx, c); err != nil {
			return err
		}
		// 并发创建时以库里那一行为准；不是这两个人的会话说明 ID 冲突
		stored, err := chats.Get(ctx, c.ID)
		if err != nil {
			return err
		}
		if !stored.HasParticipant(me) || !stored.HasParticipant(other) {
			return apperrors.ErrChatIDConflict
		}
		users := repository.NewUserRepository(tx)
		if err := users.AddChat(ctx, me, c.ID); err != nil {
			return err
		}
		if err := users.AddChat(ctx, other, c.ID); err != nil {
			return err
		}
		chat = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broker.Publish(ctx, realtime.ChatsTopic(me), realtime.ChatsTopic(other))
	return chat, nil
}

// SendMessage 事务内写消息并更新会话预览与接收方未读数
func (s *ChatService) SendMessage(ctx context.Context, chatID, senderID, text string) (msg *model.Message, err error) {
	ctx, span := tracer.Start(ctx, "ChatService.SendMessage",
		trace.WithAttributes(attribute.String("chat.id", chatID), attribute.String("chat.sender", senderID)))
	defer func() { endSpan(span, err) }()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxMessageRunes {
		return nil, apperrors.ErrMessageTooLong
	}

	chat, err := s.chats.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(senderID) {
		return nil, apperrors.ErrNotChatMember
	}
	receiverID := chat.Other(senderID)

	now := s.now().UTC()
	msg = &model.Message{
		ID:         uuid.New().String(),
		ChatID:     chat.ID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		CreatedAt:  now,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewMessageRepository(tx).Create(ctx, msg); err != nil {
			return err
		}
		return repository.NewChatRepository(tx).RecordMessage(ctx, chat, receiverID, text, now)
	})
	if err != nil {
		return nil, err
	}

	s.broker.Publish(ctx,
		realtime.MessagesTopic(chat.ID),
		realtime.ChatsTopic(senderID),
		realtime.ChatsTopic(receiverID))

	if s.notifier != nil {
		s.notifier.Enqueue(senderID, &model.Notification{
			UserID: receiverID,
			Type:   model.NotificationMessage,
			Title:  "New message from " + chat.NameOf(senderID),
			Body:   preview(text),
			Data:   model.NotificationData{ChatID: chat.ID, SenderID: senderID},
		})
	}
	return msg, nil
}

// MarkAsRead 先清零未读数，再翻转消息状态；两次写入不在同一事务
func (s *ChatService) MarkAsRead(ctx context.Context, chatID, userID string) error {
	chat, err := s.chats.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(userID) {
		return apperrors.ErrNotChatMember
	}
	if err := s.chats.ResetUnread(ctx, chat, userID); err != nil {
		return err
	}
	flipped, err := s.messages.MarkRead(ctx, chat.ID, userID)
	if err != nil {
		return err
	}
	logger.Debug("chat marked read",
		zap.String("chat", chat.ID), zap.String("user", userID), zap.Int64("messages", flipped))

	s.broker.Publish(ctx, realtime.ChatsTopic(userID), realtime.MessagesTopic(chat.ID))
	return nil
}

// ListChats 按最近活跃排序
func (s *ChatService) ListChats(ctx context.Context, userID string) ([]model.Chat, error) {
	return s.chats.ListForUser(ctx, userID)
}

// ListMessages 按时间升序，同一时间按 id
func (s *ChatService) ListMessages(ctx context.Context, chatID, userID string) ([]model.Message, error) {
	chat, err := s.chats.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, apperrors.ErrNotChatMember
	}
	return s.messages.ListByChat(ctx, chat.ID, 0)
}

func (s *ChatService) SubscribeChats(ctx context.Context, userID string) (*realtime.Subscription[model.Chat], error) {
	return realtime.Subscribe(ctx, s.broker, realtime.ChatsTopic(userID), func(ctx context.Context) ([]model.Chat, error) {
		return s.ListChats(ctx, userID)
	})
}

func (s *ChatService) SubscribeMessages(ctx context.Context, chatID, userID string) (*realtime.Subscription[model.Message], error) {
	chat, err := s.chats.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, apperrors.ErrNotChatMember
	}
	return realtime.Subscribe(ctx, s.broker, realtime.MessagesTopic(chat.ID), func(ctx context.Context) ([]model.Message, error) {
		return s.messages.ListByChat(ctx, chat.ID, 0)
	})
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	return string([]rune(text)[:previewRunes]) + "…"
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
