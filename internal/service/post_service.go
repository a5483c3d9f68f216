package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/chatsync/internal/model"
	"github.com/d60-Lab/chatsync/internal/repository"
	apperrors "github.com/d60-Lab/chatsync/pkg/errors"
)

// PostInput 发布参数，媒体需先通过 /media 上传
type PostInput struct {
	Kind     string
	Caption  string
	MediaURL string
	AssetID  string
}

// PostService 视频 / reels 的发布、评论与点赞
type PostService struct {
	db       *gorm.DB
	posts    repository.PostRepository
	notifier Notifier
	now      func() time.Time
}

func NewPostService(db *gorm.DB, notifier Notifier) *PostService {
	return &PostService{db: db, posts: repository.NewPostRepository(db), notifier: notifier, now: time.Now}
}

// Publish 落地一条 Post
func (s *PostService) Publish(ctx context.Context, authorID string, in PostInput) (*model.Post, error) {
	if in.Kind != model.PostKindVideo && in.Kind != model.PostKindReel {
		return nil, apperrors.ErrInvalidPostKind
	}
	if strings.TrimSpace(in.MediaURL) == "" {
		return nil, apperrors.ErrMissingMedia
	}
	now := s.now().UTC()
	p := &model.Post{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		Kind:      in.Kind,
		Caption:   strings.TrimSpace(in.Caption),
		MediaURL:  strings.TrimSpace(in.MediaURL),
		AssetID:   in.AssetID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.posts.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostService) Get(ctx context.Context, postID string) (*model.Post, error) {
	return s.posts.Get(ctx, postID)
}

func (s *PostService) ListByAuthor(ctx context.Context, authorID string, page, pageSize int) ([]model.Post, error) {
	offset, limit := pageBounds(page, pageSize)
	return s.posts.ListByAuthor(ctx, authorID, offset, limit)
}

// Comment 在一个事务内写评论并累加评论数
func (s *PostService) Comment(ctx context.Context, postID, userID, text string) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.ErrEmptyComment
	}
	if utf8.RuneCountInString(text) > MaxMessageRunes {
		return nil, apperrors.ErrMessageTooLong
	}
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}

	c := &model.Comment{ID: uuid.New().String(), PostID: post.ID, UserID: userID, Text: text, CreatedAt: s.now().UTC()}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		posts := repository.NewPostRepository(tx)
		if err := posts.CreateComment(ctx, c); err != nil {
			return err
		}
		return posts.IncrementCounter(ctx, post.ID, "comments_count")
	})
	if err != nil {
		return nil, err
	}

	s.notify(userID, &model.Notification{
		UserID: post.AuthorID,
		Type:   model.NotificationComment,
		Title:  "New comment",
		Body:   preview(text),
		Data:   model.NotificationData{PostID: post.ID, SenderID: userID},
	})
	return c, nil
}

func (s *PostService) ListComments(ctx context.Context, postID string, page, pageSize int) ([]model.Comment, error) {
	if _, err := s.posts.Get(ctx, postID); err != nil {
		return nil, err
	}
	offset, limit := pageBounds(page, pageSize)
	return s.posts.ListComments(ctx, postID, offset, limit)
}

// Like 幂等；只有第一次点赞累加计数并通知作者
func (s *PostService) Like(ctx context.Context, postID, userID string) (bool, error) {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return false, err
	}

	var first bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		posts := repository.NewPostRepository(tx)
		var err error
		if first, err = posts.AddLike(ctx, post.ID, userID); err != nil || !first {
			return err
		}
		return posts.IncrementCounter(ctx, post.ID, "likes_count")
	})
	if err != nil {
		return false, err
	}

	if first {
		s.notify(userID, &model.Notification{
			UserID: post.AuthorID,
			Type:   model.NotificationLike,
			Title:  "New like",
			Body:   "Someone liked your post",
			Data:   model.NotificationData{PostID: post.ID, SenderID: userID},
		})
	}
	return first, nil
}

func (s *PostService) notify(senderID string, n *model.Notification) {
	if s.notifier != nil {
		s.notifier.Enqueue(senderID, n)
	}
}
