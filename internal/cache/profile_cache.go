// Package cache keeps hot user profiles in redis in front of the users table.
package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/chatsync/internal/model"
	"github.com/d60-Lab/chatsync/internal/repository"
	apperrors "github.com/d60-Lab/chatsync/pkg/errors"
	"github.com/d60-Lab/chatsync/pkg/logger"
)

const (
	DefaultTTL = 10 * time.Minute
	keyPrefix  = "profile:"
)

// ProfileCache is a cache-aside reader for user profiles. Redis failures
// degrade to direct DB reads.
type ProfileCache struct {
	users repository.UserRepository
	rdb   redis.Cmdable
	ttl   time.Duration

	hits    atomic.Int64
	misses  atomic.Int64
	dbLoads atomic.Int64
}

func NewProfileCache(users repository.UserRepository, rdb redis.Cmdable, ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ProfileCache{users: users, rdb: rdb, ttl: ttl}
}

func key(id string) string { return keyPrefix + id }

// Get returns a single profile or ErrUserNotFound.
func (c *ProfileCache) Get(ctx context.Context, id string) (*model.User, error) {
	found, err := c.GetMany(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	u, ok := found[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return u, nil
}

// GetMany loads profiles with one MGET and a single bulk query for the misses.
// Unknown ids are simply absent from the result.
func (c *ProfileCache) GetMany(ctx context.Context, ids []string) (map[string]*model.User, error) {
	out := make(map[string]*model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = key(id)
	}
	if vals, err := c.rdb.MGet(ctx, keys...).Result(); err == nil {
		for i, v := range vals {
			str, ok := v.(string)
			if !ok {
				continue
			}
			var u model.User
			if uErr := json.Unmarshal([]byte(str), &u); uErr == nil {
				out[ids[i]] = &u
			}
		}
	} else {
		logger.Warn("profile cache mget failed", zap.Error(err))
	}

	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			missing = append(missing, id)
		}
	}
	c.hits.Add(int64(len(ids) - len(missing)))
	c.misses.Add(int64(len(missing)))
	if len(missing) == 0 {
		return out, nil
	}

	c.dbLoads.Add(1)
	users, err := c.users.GetMany(ctx, missing)
	if err != nil {
		return nil, err
	}
	pipe := c.rdb.Pipeline()
	for _, u := range users {
		out[u.ID] = u
		if payload, mErr := json.Marshal(u); mErr == nil {
			pipe.Set(ctx, key(u.ID), payload, c.ttl)
		}
	}
	if len(users) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			logger.Warn("profile cache fill failed", zap.Error(err))
		}
	}
	return out, nil
}

// Invalidate drops cached profiles; the next read goes to the DB.
func (c *ProfileCache) Invalidate(ctx context.Context, ids ...string) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = key(id)
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("profile cache invalidate failed", zap.Strings("ids", ids), zap.Error(err))
	}
}

// Counters reports cache hits, misses and bulk DB loads since the last reset.
func (c *ProfileCache) Counters() Counters {
	return Counters{Hits: c.hits.Load(), Misses: c.misses.Load(), DBLoads: c.dbLoads.Load()}
}

// ResetCounters clears recorded counters.
func (c *ProfileCache) ResetCounters() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.dbLoads.Store(0)
}

// Counters summarises cache effectiveness during a run.
type Counters struct {
	Hits    int64
	Misses  int64
	DBLoads int64
}
