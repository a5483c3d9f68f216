package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/chatsync/internal/model"
	apperrors "github.com/d60-Lab/chatsync/pkg/errors"
)

type GroupRepository interface {
	Create(ctx context.Context, g *model.Group) error
	Get(ctx context.Context, id string) (*model.Group, error)
	AddMember(ctx context.Context, groupID, userID, role string) (bool, error)
	RemoveMember(ctx context.Context, groupID, userID string) error
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	ListMembers(ctx context.Context, groupID string, offset, limit int) ([]model.GroupMember, error)
	CreateInvite(ctx context.Context, groupID, userID, invitedBy string) error
	HasInvite(ctx context.Context, groupID, userID string) (bool, error)
	DeleteInvite(ctx context.Context, groupID, userID string) error
}

type groupRepository struct{ db *gorm.DB }

func NewGroupRepository(db *gorm.DB) GroupRepository { return &groupRepository{db: db} }

func (r *groupRepository) Create(ctx context.Context, g *model.Group) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(g).Error, "groupRepo.Create")
}

func (r *groupRepository) Get(ctx context.Context, id string) (*model.Group, error) {
	var g model.Group
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&g).Error; err != nil {
		return nil, translate(err, apperrors.ErrGroupNotFound, "groupRepo.Get")
	}
	return &g, nil
}

// AddMember 幂等加入，返回是否为新成员
func (r *groupRepository) AddMember(ctx context.Context, groupID, userID, role string) (bool, error) {
	m := &model.GroupMember{GroupID: groupID, UserID: userID, Role: role}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m)
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "groupRepo.AddMember")
	}
	return res.RowsAffected > 0, nil
}

func (r *groupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&model.GroupMember{}).Error
	return errors.Wrap(err, "groupRepo.RemoveMember")
}

func (r *groupRepository) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&cnt).Error; err != nil {
		return false, errors.Wrap(err, "groupRepo.IsMember")
	}
	return cnt > 0, nil
}

func (r *groupRepository) ListMembers(ctx context.Context, groupID string, offset, limit int) ([]model.GroupMember, error) {
	res := make([]model.GroupMember, 0)
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at, user_id").
		Offset(offset).
		Limit(limit).
		Find(&res).Error
	return res, errors.Wrap(err, "groupRepo.ListMembers")
}

func (r *groupRepository) CreateInvite(ctx context.Context, groupID, userID, invitedBy string) error {
	inv := &model.GroupInvite{GroupID: groupID, UserID: userID, InvitedBy: invitedBy}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(inv).Error
	return errors.Wrap(err, "groupRepo.CreateInvite")
}

func (r *groupRepository) HasInvite(ctx context.Context, groupID, userID string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.GroupInvite{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&cnt).Error; err != nil {
		return false, errors.Wrap(err, "groupRepo.HasInvite")
	}
	return cnt > 0, nil
}

func (r *groupRepository) DeleteInvite(ctx context.Context, groupID, userID string) error {
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&model.GroupInvite{}).Error
	return errors.Wrap(err, "groupRepo.DeleteInvite")
}
