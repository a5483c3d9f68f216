package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/chatsync/internal/model"
	"github.com/d60-Lab/chatsync/internal/repository"
	apperrors "github.com/d60-Lab/chatsync/pkg/errors"
)

const maxGroupNameRunes = 100

// GroupInput 建群参数
type GroupInput struct {
	Name        string
	Description string
	Private     bool
}

// GroupService 群组与成员关系
type GroupService struct {
	db       *gorm.DB
	groups   repository.GroupRepository
	users    repository.UserRepository
	notifier Notifier
}

func NewGroupService(db *gorm.DB, notifier Notifier) *GroupService {
	return &GroupService{
		db:       db,
		groups:   repository.NewGroupRepository(db),
		users:    repository.NewUserRepository(db),
		notifier: notifier,
	}
}

// Create 建群，创建者即群主
func (s *GroupService) Create(ctx context.Context, ownerID string, in GroupInput) (*model.Group, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || utf8.RuneCountInString(name) > maxGroupNameRunes {
		return nil, apperrors.ErrInvalidGroupName
	}
	g := &model.Group{
		ID:          uuid.New().String(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		OwnerID:     ownerID,
		Private:     in.Private,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		groups := repository.NewGroupRepository(tx)
		if err := groups.Create(ctx, g); err != nil {
			return err
		}
		_, err := groups.AddMember(ctx, g.ID, ownerID, model.GroupRoleOwner)
		return err
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (s *GroupService) Get(ctx context.Context, groupID string) (*model.Group, error) {
	return s.groups.Get(ctx, groupID)
}

// Invite 仅群主可邀请
func (s *GroupService) Invite(ctx context.Context, groupID, ownerID, inviteeID string) error {
	g, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return err
	}
	if g.OwnerID != ownerID {
		return apperrors.ErrNotGroupOwner
	}
	invitee, err := s.users.Get(ctx, inviteeID)
	if err != nil {
		return err
	}
	member, err := s.groups.IsMember(ctx, groupID, invitee.ID)
	if err != nil {
		return err
	}
	if member {
		return nil
	}
	if err := s.groups.CreateInvite(ctx, groupID, invitee.ID, ownerID); err != nil {
		return err
	}
	s.notify(ownerID, &model.Notification{
		UserID: invitee.ID,
		Type:   model.NotificationGroupInvite,
		Title:  "Group invitation",
		Body:   "You have been invited to join " + g.Name,
		Data:   model.NotificationData{GroupID: g.ID, SenderID: ownerID},
	})
	return nil
}

// Join 私有群需要先被邀请；已是成员时直接返回
func (s *GroupService) Join(ctx context.Context, groupID, userID string) error {
	g, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return err
	}
	member, err := s.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if member {
		return nil
	}
	if g.Private {
		invited, err := s.groups.HasInvite(ctx, groupID, userID)
		if err != nil {
			return err
		}
		if !invited {
			return apperrors.ErrInviteRequired
		}
	}

	var added bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		groups := repository.NewGroupRepository(tx)
		var err error
		if added, err = groups.AddMember(ctx, groupID, userID, model.GroupRoleMember); err != nil {
			return err
		}
		return groups.DeleteInvite(ctx, groupID, userID)
	})
	if err != nil {
		return err
	}
	if added {
		s.notify(userID, &model.Notification{
			UserID: g.OwnerID,
			Type:   model.NotificationGroupJoin,
			Title:  "New group member",
			Body:   "Someone joined " + g.Name,
			Data:   model.NotificationData{GroupID: g.ID, SenderID: userID},
		})
	}
	return nil
}

// Leave 群主不能退群
func (s *GroupService) Leave(ctx context.Context, groupID, userID string) error {
	g, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return err
	}
	if g.OwnerID == userID {
		return apperrors.ErrOwnerCannotLeave
	}
	return s.groups.RemoveMember(ctx, groupID, userID)
}

func (s *GroupService) ListMembers(ctx context.Context, groupID string, page, pageSize int) ([]model.GroupMember, error) {
	if _, err := s.groups.Get(ctx, groupID); err != nil {
		return nil, err
	}
	offset, limit := pageBounds(page, pageSize)
	return s.groups.ListMembers(ctx, groupID, offset, limit)
}

func (s *GroupService) notify(senderID string, n *model.Notification) {
	if s.notifier != nil {
		s.notifier.Enqueue(senderID, n)
	}
}
