package service

import (
	"context"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/d60-Lab/chatsync/internal/cache"
	"github.com/d60-Lab/chatsync/internal/model"
	"github.com/d60-Lab/chatsync/internal/repository"
	apperrors "github.com/d60-Lab/chatsync/pkg/errors"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._]{3,30}$`)
	customIDPattern = regexp.MustCompile(`^[0-9]{1,20}$`)
)

// ProfileInput 可编辑的资料字段
type ProfileInput struct {
	Username    string
	CustomID    string
	DisplayName string
	AvatarURL   string
}

// UserService 用户资料
type UserService struct {
	users    repository.UserRepository
	profiles *cache.ProfileCache
}

func NewUserService(db *gorm.DB, profiles *cache.ProfileCache) *UserService {
	return &UserService{users: repository.NewUserRepository(db), profiles: profiles}
}

// UpsertProfile 创建或更新当前用户资料；用户名不区分大小写唯一
func (s *UserService) UpsertProfile(ctx context.Context, userID, email string, in ProfileInput) (*model.User, error) {
	if userID == "" {
		return nil, apperrors.ErrMissingParticipant
	}
	in.Username = strings.TrimSpace(in.Username)
	in.CustomID = strings.TrimSpace(in.CustomID)
	if !usernamePattern.MatchString(in.Username) {
		return nil, apperrors.ErrInvalidUsername
	}
	if in.CustomID != "" && !customIDPattern.MatchString(in.CustomID) {
		return nil, apperrors.ErrInvalidCustomID
	}

	taken, err := s.users.UsernameTaken(ctx, strings.ToLower(in.Username), userID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.ErrUsernameTaken
	}
	if in.CustomID != "" {
		taken, err = s.users.CustomIDTaken(ctx, in.CustomID, userID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperrors.ErrCustomIDTaken
		}
	}

	u := &model.User{
		ID:          userID,
		Username:    in.Username,
		CustomID:    in.CustomID,
		DisplayName: strings.TrimSpace(in.DisplayName),
		Email:       email,
		AvatarURL:   strings.TrimSpace(in.AvatarURL),
	}
	if err := s.users.Upsert(ctx, u); err != nil {
		return nil, err
	}
	s.profiles.Invalidate(ctx, userID)
	return s.users.Get(ctx, userID)
}

// GetProfile 走缓存
func (s *UserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	return s.profiles.Get(ctx, userID)
}
