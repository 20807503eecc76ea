package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = time.Hour

// Lock gives one worker replica exclusive control of a cron cycle.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock is a SETNX lease with a TTL safety net: a crashed worker's
// lock expires on its own, and Release only deletes the key while this
// instance still owns it.
type RedisLock struct {
	store redisStore
	key   string
	ttl   time.Duration

	// ownerToken identifies this instance's current lease; empty when
	// the lock is not held.
	ownerToken string
}

// NewRedisLock builds a lock on the given key. A non-positive ttl
// falls back to one hour.
func NewRedisLock(client redisStore, key string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: client, key: key, ttl: ttl}, nil
}

// Acquire attempts to take the lease. A false return means another
// replica holds it.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	acquired, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if acquired {
		l.ownerToken = token
	}
	return acquired, nil
}

// Release drops the lease if this instance still owns it. A lock that
// expired or changed hands is left alone.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.ownerToken == "" {
		return nil
	}
	current, err := l.store.Get(ctx, l.key)
	switch {
	case errors.Is(err, redis.Nil):
		l.ownerToken = ""
		return nil
	case err != nil:
		return fmt.Errorf("read lock owner: %w", err)
	case current != l.ownerToken:
		l.ownerToken = ""
		return nil
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	l.ownerToken = ""
	return nil
}
