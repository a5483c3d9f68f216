package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/chatsync/internal/model"
	"github.com/d60-Lab/chatsync/internal/testutil"
	apperrors "github.com/d60-Lab/chatsync/pkg/errors"
)

func TestChatCreateIsInsertOrIgnore(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, model.NewChat("alice", "bob", "Alice", "Bob")))
	// 同一个规范 ID 再插一次不报错，也不覆盖
	require.NoError(t, repo.Create(ctx, model.NewChat("bob", "alice", "Bobby", "Al")))

	got, err := repo.Get(ctx, "alice_bob")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.NameOf("alice"))

	_, err = repo.Get(ctx, "nope")
	assert.ErrorIs(t, err, apperrors.ErrChatNotFound)
}

func TestChatRecordMessageAndResetUnread(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	c := model.NewChat("alice", "bob", "Alice", "Bob")
	require.NoError(t, repo.Create(ctx, c))
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.RecordMessage(ctx, c, "bob", "hi", at))
	require.NoError(t, repo.RecordMessage(ctx, c, "bob", "again", at.Add(time.Second)))

	got, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.UnreadFor("bob"))
	assert.Equal(t, int64(0), got.UnreadFor("alice"))
	assert.Equal(t, "again", got.LastMessage)
	require.NotNil(t, got.LastMessageAt)
	assert.True(t, got.LastMessageAt.Equal(at.Add(time.Second)))

	require.NoError(t, repo.ResetUnread(ctx, c, "bob"))
	got, err = repo.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.UnreadFor("bob"))

	missing := model.NewChat("x", "y", "X", "Y")
	assert.ErrorIs(t, repo.RecordMessage(ctx, missing, "y", "hi", at), apperrors.ErrChatNotFound)
}

func TestChatListForUserNewestFirst(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	older := model.NewChat("alice", "bob", "Alice", "Bob")
	newer := model.NewChat("alice", "carol", "Alice", "Carol")
	other := model.NewChat("bob", "carol", "Bob", "Carol")
	for _, c := range []*model.Chat{older, newer, other} {
		require.NoError(t, repo.Create(ctx, c))
	}
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordMessage(ctx, older, "bob", "1", base))
	require.NoError(t, repo.RecordMessage(ctx, newer, "carol", "2", base.Add(time.Minute)))

	list, err := repo.ListForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	none, err := repo.ListForUser(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMessageMarkReadOnlyReceiver(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	msgs := []*model.Message{
		{ID: uuid.NewString(), ChatID: "alice_bob", SenderID: "alice", ReceiverID: "bob", Text: "1", CreatedAt: at},
		{ID: uuid.NewString(), ChatID: "alice_bob", SenderID: "alice", ReceiverID: "bob", Text: "2", CreatedAt: at.Add(time.Second)},
		{ID: uuid.NewString(), ChatID: "alice_bob", SenderID: "bob", ReceiverID: "alice", Text: "3", CreatedAt: at.Add(2 * time.Second)},
	}
	for _, m := range msgs {
		require.NoError(t, repo.Create(ctx, m))
	}

	n, err := repo.CountUnread(ctx, "alice_bob", "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	flipped, err := repo.MarkRead(ctx, "alice_bob", "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), flipped)

	flipped, err = repo.MarkRead(ctx, "alice_bob", "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(0), flipped)

	n, err = repo.CountUnread(ctx, "alice_bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err := repo.ListByChat(ctx, "alice_bob", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "1", list[0].Text)
	assert.Equal(t, "2", list[1].Text)
}

func TestUserSearchPrefix(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	for _, u := range []*model.User{
		{ID: "1", Username: "Alice", CustomID: "100"},
		{ID: "2", Username: "alfred", CustomID: "200"},
		{ID: "3", Username: "bob", CustomID: "101"},
	} {
		require.NoError(t, repo.Upsert(ctx, u))
	}

	res, err := repo.SearchPrefix(ctx, ColumnUsername, "al", 10)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "2", res[0].ID)
	assert.Equal(t, "1", res[1].ID)

	res, err = repo.SearchPrefix(ctx, ColumnCustomID, "10", 10)
	require.NoError(t, err)
	assert.Len(t, res, 2)

	_, err = repo.SearchPrefix(ctx, "email", "a", 10)
	assert.Error(t, err)

	taken, err := repo.UsernameTaken(ctx, "alice", "2")
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.UsernameTaken(ctx, "alice", "1")
	require.NoError(t, err)
	assert.False(t, taken)
}
