package service

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/chatsync/internal/cache"
	"github.com/d60-Lab/chatsync/internal/model"
	"github.com/d60-Lab/chatsync/internal/realtime"
	"github.com/d60-Lab/chatsync/internal/repository"
	"github.com/d60-Lab/chatsync/internal/testutil"
)

type recordingNotifier struct {
	mu      sync.Mutex
	senders []string
	items   []*model.Notification
}

func (r *recordingNotifier) Enqueue(senderID string, n *model.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders = append(r.senders, senderID)
	r.items = append(r.items, n)
}

func (r *recordingNotifier) All() []*model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.Notification(nil), r.items...)
}

type fixture struct {
	db       *gorm.DB
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	broker   *realtime.Broker
	profiles *cache.ProfileCache
	notifier *recordingNotifier
}

func newFixture(t *testing.T, users ...string) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)
	testutil.SeedUsers(t, db, users...)
	f := &fixture{
		db:       db,
		mr:       mr,
		rdb:      rdb,
		broker:   realtime.NewBroker(rdb),
		notifier: &recordingNotifier{},
	}
	f.profiles = cache.NewProfileCache(repository.NewUserRepository(db), rdb, time.Minute)
	return f
}

func (f *fixture) chatService(now time.Time) *ChatService {
	svc := NewChatService(f.db, f.profiles, f.broker, f.notifier)
	if !now.IsZero() {
		svc.now = func() time.Time { return now }
	}
	return svc
}

func (f *fixture) reloadChat(t *testing.T, id string) *model.Chat {
	t.Helper()
	var c model.Chat
	require.NoError(t, f.db.Where("id = ?", id).First(&c).Error)
	return &c
}

func waitSnapshot[T any](t *testing.T, sub *realtime.Subscription[T]) []T {
	t.Helper()
	select {
	case snap, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}
