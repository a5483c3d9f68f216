package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/chatsync/internal/model"
	apperrors "github.com/d60-Lab/chatsync/pkg/errors"
)

type PostRepository interface {
	Create(ctx context.Context, p *model.Post) error
	Get(ctx context.Context, id string) (*model.Post, error)
	ListByAuthor(ctx context.Context, authorID string, offset, limit int) ([]model.Post, error)
	CreateComment(ctx context.Context, c *model.Comment) error
	ListComments(ctx context.Context, postID string, offset, limit int) ([]model.Comment, error)
	AddLike(ctx context.Context, postID, userID string) (bool, error)
	IncrementCounter(ctx context.Context, postID, column string) error
}

type postRepository struct{ db *gorm.DB }

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) Create(ctx context.Context, p *model.Post) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(p).Error, "postRepo.Create")
}

func (r *postRepository) Get(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err, apperrors.ErrPostNotFound, "postRepo.Get")
	}
	return &p, nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID string, offset, limit int) ([]model.Post, error) {
	res := make([]model.Post, 0)
	err := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&res).Error
	return res, errors.Wrap(err, "postRepo.ListByAuthor")
}

func (r *postRepository) CreateComment(ctx context.Context, c *model.Comment) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(c).Error, "postRepo.CreateComment")
}

func (r *postRepository) ListComments(ctx context.Context, postID string, offset, limit int) ([]model.Comment, error) {
	res := make([]model.Comment, 0)
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&res).Error
	return res, errors.Wrap(err, "postRepo.ListComments")
}

// AddLike 幂等：重复点赞不报错，返回是否首次点赞
func (r *postRepository) AddLike(ctx context.Context, postID, userID string) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&model.Like{PostID: postID, UserID: userID})
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "postRepo.AddLike")
	}
	return res.RowsAffected > 0, nil
}

// IncrementCounter column 只能是 likes_count / comments_count
func (r *postRepository) IncrementCounter(ctx context.Context, postID, column string) error {
	if column != "likes_count" && column != "comments_count" {
		return errors.Errorf("postRepo.IncrementCounter: unknown column %q", column)
	}
	err := r.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("id = ?", postID).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error
	return errors.Wrap(err, "postRepo.IncrementCounter")
}
