// Package realtime delivers full-snapshot live views. A change is announced
// on a redis pub/sub topic; every subscriber of that topic reloads its
// complete result set and receives it as one snapshot.
package realtime

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/chatsync/pkg/logger"
)

// Topic names.
func ChatsTopic(userID string) string         { return "chats:user:" + userID }
func MessagesTopic(chatID string) string      { return "messages:chat:" + chatID }
func NotificationsTopic(userID string) string { return "notifications:user:" + userID }

// Broker publishes change events.
type Broker struct {
	rdb    *redis.Client
	prefix string
}

func NewBroker(rdb *redis.Client) *Broker {
	return &Broker{rdb: rdb, prefix: "chatsync:"}
}

// Publish announces a change on each topic. Errors are logged only: the
// write that caused the change has already been committed.
func (b *Broker) Publish(ctx context.Context, topics ...string) {
	if len(topics) == 0 {
		return
	}
	stamp := time.Now().UTC().Format(time.RFC3339Nano)
	pipe := b.rdb.Pipeline()
	for _, t := range topics {
		pipe.Publish(ctx, b.prefix+t, stamp)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("publish change event failed", zap.Strings("topics", topics), zap.Error(err))
	}
}

func (b *Broker) subscribe(ctx context.Context, topic string) (*redis.PubSub, error) {
	ps := b.rdb.Subscribe(ctx, b.prefix+topic)
	// wait for the subscription to be confirmed so no event published after
	// this point is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	return ps, nil
}
