package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/chatsync/internal/model"
	"github.com/d60-Lab/chatsync/internal/ratelimit"
)

type countingCreator struct {
	calls atomic.Int32
	err   error
}

func (c *countingCreator) Create(context.Context, *model.Notification) error {
	c.calls.Add(1)
	return c.err
}

func TestDispatcherDeliversThroughNotificationService(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	notifications := NewNotificationService(f.db, f.broker)
	d := NewDispatcher(notifications, nil, 16)
	stop := d.Start(2)

	d.Enqueue("alice", &model.Notification{UserID: "bob", Type: model.NotificationMessage, Title: "hi"})

	require.Eventually(t, func() bool {
		n, err := notifications.UnreadCount(context.Background(), "bob")
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, stop(context.Background()))

	select {
	case lat := <-d.Metrics():
		assert.GreaterOrEqual(t, lat, time.Duration(0))
	default:
		t.Fatal("expected a landing metric")
	}
}

func TestDispatcherRateLimitsBySender(t *testing.T) {
	creator := &countingCreator{}
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), map[string]ratelimit.Policy{
		ratelimit.ActionNotification: {MaxRequests: 2, Window: time.Hour},
	}, ratelimit.Policy{})
	d := NewDispatcher(creator, limiter, 16)

	for i := 0; i < 5; i++ {
		d.Enqueue("spammer", &model.Notification{UserID: fmt.Sprintf("victim%d", i)})
	}
	d.Enqueue("polite", &model.Notification{UserID: "victim0"})

	stop := d.Start(1)
	require.NoError(t, stop(context.Background()))

	assert.Equal(t, int32(3), creator.calls.Load())
	_, limited := d.Stats()
	assert.Equal(t, int64(3), limited)
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	d := NewDispatcher(&countingCreator{}, nil, 1)

	d.Enqueue("a", &model.Notification{UserID: "b"})
	d.Enqueue("a", &model.Notification{UserID: "c"})
	d.Enqueue("a", &model.Notification{UserID: "d"})

	assert.Equal(t, 1, d.QueueLen())
	dropped, _ := d.Stats()
	assert.Equal(t, int64(2), dropped)
}

func TestDispatcherIgnoresSelfAndEmptyRecipients(t *testing.T) {
	d := NewDispatcher(&countingCreator{}, nil, 4)

	d.Enqueue("a", &model.Notification{UserID: "a"})
	d.Enqueue("a", &model.Notification{})
	d.Enqueue("a", nil)

	assert.Equal(t, 0, d.QueueLen())
}

func TestDispatcherSwallowsDeliveryErrors(t *testing.T) {
	creator := &countingCreator{err: errors.New("db down")}
	d := NewDispatcher(creator, nil, 4)
	d.Enqueue("a", &model.Notification{UserID: "b"})

	stop := d.Start(1)
	require.NoError(t, stop(context.Background()))

	assert.Equal(t, int32(1), creator.calls.Load())
	select {
	case <-d.Metrics():
		t.Fatal("failed delivery must not report a landing metric")
	default:
	}
}
