package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/chatsync/internal/model"
	apperrors "github.com/d60-Lab/chatsync/pkg/errors"
)

func TestGroupCreateAddsOwner(t *testing.T) {
	f := newFixture(t, "owner")
	svc := NewGroupService(f.db, f.notifier)
	ctx := context.Background()

	_, err := svc.Create(ctx, "owner", GroupInput{Name: "   "})
	assert.ErrorIs(t, err, apperrors.ErrInvalidGroupName)

	g, err := svc.Create(ctx, "owner", GroupInput{Name: " Gophers ", Description: "go"})
	require.NoError(t, err)
	assert.Equal(t, "Gophers", g.Name)

	members, err := svc.ListMembers(ctx, g.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "owner", members[0].UserID)
	assert.Equal(t, model.GroupRoleOwner, members[0].Role)

	_, err = svc.ListMembers(ctx, "missing", 1, 10)
	assert.ErrorIs(t, err, apperrors.ErrGroupNotFound)
}

func TestPrivateGroupRequiresInvite(t *testing.T) {
	f := newFixture(t, "owner", "guest", "stranger")
	svc := NewGroupService(f.db, f.notifier)
	ctx := context.Background()

	g, err := svc.Create(ctx, "owner", GroupInput{Name: "secret", Private: true})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Join(ctx, g.ID, "guest"), apperrors.ErrInviteRequired)
	assert.ErrorIs(t, svc.Invite(ctx, g.ID, "stranger", "guest"), apperrors.ErrNotGroupOwner)
	assert.ErrorIs(t, svc.Invite(ctx, g.ID, "owner", "ghost"), apperrors.ErrUserNotFound)

	require.NoError(t, svc.Invite(ctx, g.ID, "owner", "guest"))
	require.NoError(t, svc.Join(ctx, g.ID, "guest"))
	require.NoError(t, svc.Join(ctx, g.ID, "guest"))

	members, err := svc.ListMembers(ctx, g.ID, 1, 10)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	var invites int64
	require.NoError(t, f.db.Model(&model.GroupInvite{}).Count(&invites).Error)
	assert.Zero(t, invites)

	sent := f.notifier.All()
	require.Len(t, sent, 2)
	assert.Equal(t, model.NotificationGroupInvite, sent[0].Type)
	assert.Equal(t, "guest", sent[0].UserID)
	assert.Equal(t, model.NotificationGroupJoin, sent[1].Type)
	assert.Equal(t, "owner", sent[1].UserID)
}

func TestGroupLeave(t *testing.T) {
	f := newFixture(t, "owner", "member")
	svc := NewGroupService(f.db, f.notifier)
	ctx := context.Background()

	g, err := svc.Create(ctx, "owner", GroupInput{Name: "open"})
	require.NoError(t, err)
	require.NoError(t, svc.Join(ctx, g.ID, "member"))

	assert.ErrorIs(t, svc.Leave(ctx, g.ID, "owner"), apperrors.ErrOwnerCannotLeave)
	require.NoError(t, svc.Leave(ctx, g.ID, "member"))

	members, err := svc.ListMembers(ctx, g.ID, 1, 10)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}
