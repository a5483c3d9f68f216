package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/chatsync/pkg/logger"
)

// allowScript: the key holds the window's count and expires with the window.
var allowScript = redis.NewScript(`
local count = redis.call('GET', KEYS[1])
if not count then
  redis.call('SET', KEYS[1], '1', 'PX', ARGV[2])
  return 1
end
if tonumber(count) >= tonumber(ARGV[1]) then
  return 0
end
redis.call('INCR', KEYS[1])
return 1
`)

// RedisStore shares counters between server instances.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) Allow(ctx context.Context, key string, p Policy) bool {
	ok, err := allowScript.Run(ctx, s.rdb, []string{s.prefix + key}, p.MaxRequests, p.Window.Milliseconds()).Int()
	if err != nil {
		logger.Warn("rate limit store unavailable, admitting call", zap.String("key", key), zap.Error(err))
		return true
	}
	return ok == 1
}

func (s *RedisStore) ResetIn(ctx context.Context, key string) time.Duration {
	ttl, err := s.rdb.PTTL(ctx, s.prefix+key).Result()
	if err != nil {
		logger.Warn("rate limit ttl lookup failed", zap.String("key", key), zap.Error(err))
		return 0
	}
	// -1/-2 come back as negative durations
	if ttl <= 0 {
		return 0
	}
	return ttl
}
