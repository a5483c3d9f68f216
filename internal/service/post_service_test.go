package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/chatsync/internal/model"
	apperrors "github.com/d60-Lab/chatsync/pkg/errors"
)

func publishReel(t *testing.T, svc *PostService, author string) *model.Post {
	t.Helper()
	p, err := svc.Publish(context.Background(), author, PostInput{
		Kind:     model.PostKindReel,
		Caption:  "sunset",
		MediaURL: "https://res.example.com/v1/reel.mp4",
		AssetID:  "reels/abc",
	})
	require.NoError(t, err)
	return p
}

func TestPublishValidation(t *testing.T) {
	f := newFixture(t, "author")
	svc := NewPostService(f.db, f.notifier)
	ctx := context.Background()

	_, err := svc.Publish(ctx, "author", PostInput{Kind: "story", MediaURL: "x"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidPostKind)
	_, err = svc.Publish(ctx, "author", PostInput{Kind: model.PostKindVideo})
	assert.ErrorIs(t, err, apperrors.ErrMissingMedia)

	p := publishReel(t, svc, "author")
	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "reels/abc", got.AssetID)

	list, err := svc.ListByAuthor(ctx, "author", 1, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrPostNotFound)
}

func TestCommentIncrementsCounterAndNotifies(t *testing.T) {
	f := newFixture(t, "author", "fan")
	svc := NewPostService(f.db, f.notifier)
	ctx := context.Background()
	p := publishReel(t, svc, "author")

	_, err := svc.Comment(ctx, p.ID, "fan", "  ")
	assert.ErrorIs(t, err, apperrors.ErrEmptyComment)

	c, err := svc.Comment(ctx, p.ID, "fan", "nice")
	require.NoError(t, err)
	assert.Equal(t, p.ID, c.PostID)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.CommentsCount)

	comments, err := svc.ListComments(ctx, p.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "nice", comments[0].Text)

	sent := f.notifier.All()
	require.Len(t, sent, 1)
	assert.Equal(t, model.NotificationComment, sent[0].Type)
	assert.Equal(t, "author", sent[0].UserID)
}

func TestLikeIsIdempotent(t *testing.T) {
	f := newFixture(t, "author", "fan")
	svc := NewPostService(f.db, f.notifier)
	ctx := context.Background()
	p := publishReel(t, svc, "author")

	first, err := svc.Like(ctx, p.ID, "fan")
	require.NoError(t, err)
	assert.True(t, first)
	again, err := svc.Like(ctx, p.ID, "fan")
	require.NoError(t, err)
	assert.False(t, again)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.LikesCount)
	assert.Len(t, f.notifier.All(), 1)

	_, err = svc.Like(ctx, "missing", "fan")
	assert.ErrorIs(t, err, apperrors.ErrPostNotFound)
}
