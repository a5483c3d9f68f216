package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/chatsync/internal/model"
	apperrors "github.com/d60-Lab/chatsync/pkg/errors"
)

// PrefixSentinel 前缀范围查询的上界后缀
const PrefixSentinel = "\uf8ff"

// 允许做前缀搜索的列
const (
	ColumnUsername = "username_lower"
	ColumnCustomID = "custom_id"
)

type UserRepository interface {
	Get(ctx context.Context, id string) (*model.User, error)
	GetMany(ctx context.Context, ids []string) ([]*model.User, error)
	Upsert(ctx context.Context, u *model.User) error
	UsernameTaken(ctx context.Context, username, exceptID string) (bool, error)
	CustomIDTaken(ctx context.Context, customID, exceptID string) (bool, error)
	SearchPrefix(ctx context.Context, column, term string, limit int) ([]*model.User, error)
	AddChat(ctx context.Context, userID, chatID string) error
	ListChatIDs(ctx context.Context, userID string) ([]string, error)
}

type userRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepository{db: db} }

func (r *userRepository) Get(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		return nil, translate(err, apperrors.ErrUserNotFound, "userRepo.Get")
	}
	return &u, nil
}

func (r *userRepository) GetMany(ctx context.Context, ids []string) ([]*model.User, error) {
	var res []*model.User
	if len(ids) == 0 {
		return res, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&res).Error
	return res, errors.Wrap(err, "userRepo.GetMany")
}

func (r *userRepository) Upsert(ctx context.Context, u *model.User) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "username_lower", "custom_id", "display_name", "email", "avatar_url", "updated_at"}),
	}).Create(u).Error
	return errors.Wrap(err, "userRepo.Upsert")
}

func (r *userRepository) UsernameTaken(ctx context.Context, username, exceptID string) (bool, error) {
	return r.taken(ctx, ColumnUsername, username, exceptID)
}

func (r *userRepository) CustomIDTaken(ctx context.Context, customID, exceptID string) (bool, error) {
	return r.taken(ctx, ColumnCustomID, customID, exceptID)
}

func (r *userRepository) taken(ctx context.Context, column, value, exceptID string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where(column+" = ? AND id <> ?", value, exceptID).
		Count(&cnt).Error; err != nil {
		return false, errors.Wrap(err, "userRepo.taken")
	}
	return cnt > 0, nil
}

// SearchPrefix 半开区间范围查询：column >= term AND column <= term + sentinel
func (r *userRepository) SearchPrefix(ctx context.Context, column, term string, limit int) ([]*model.User, error) {
	if column != ColumnUsername && column != ColumnCustomID {
		return nil, errors.Errorf("userRepo.SearchPrefix: column %q not searchable", column)
	}
	var res []*model.User
	err := r.db.WithContext(ctx).
		Where(column+" >= ? AND "+column+" <= ?", term, term+PrefixSentinel).
		Order(column).
		Limit(limit).
		Find(&res).Error
	return res, errors.Wrap(err, "userRepo.SearchPrefix")
}

func (r *userRepository) AddChat(ctx context.Context, userID, chatID string) error {
	uc := &model.UserChat{UserID: userID, ChatID: chatID}
	// 幂等：重复登记不报错
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(uc).Error
	return errors.Wrap(err, "userRepo.AddChat")
}

func (r *userRepository) ListChatIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.UserChat{}).
		Where("user_id = ?", userID).
		Order("created_at").
		Pluck("chat_id", &ids).Error
	return ids, errors.Wrap(err, "userRepo.ListChatIDs")
}
