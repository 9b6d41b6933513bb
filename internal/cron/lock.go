package cron

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// defaultLockTTL bounds how long a crashed worker can block the trip pipeline.
// It matches the TRIPDASH_PIPELINE_LOCK_TTL default.
const defaultLockTTL = 2 * time.Hour

// Lock keeps two workers from running the trip pipeline against the same
// database at once.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// redisStore defines the operations used by RedisLock.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock holds the pipeline lock as a Redis key written with SETNX and a
// TTL. The stored value is "<host>/<uuid>" so an operator inspecting a stuck
// key can tell which worker took it.
type RedisLock struct {
	client redisStore
	key    string
	ttl    time.Duration
	host   string
	owner  string
}

// NewRedisLock constructs a lock on key, usually redisClient.LockKey(etl.JobName).
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
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown-host"
	}
	return &RedisLock{client: client, key: key, ttl: ttl, host: host}, nil
}

// Acquire tries to take the pipeline lock for one run.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := l.host + "/" + uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", l.key, err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

// Owner returns the token written by the last successful Acquire, or "" when
// this instance does not hold the lock.
func (l *RedisLock) Owner() string {
	return l.owner
}

// Release drops the key only while it still carries this worker's token. A key
// that expired and was retaken by another worker is left alone.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	value, err := l.client.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			l.owner = ""
			return nil
		}
		return fmt.Errorf("read lock owner %s: %w", l.key, err)
	}
	if value != l.owner {
		l.owner = ""
		return nil
	}
	if err := l.client.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock %s: %w", l.key, err)
	}
	l.owner = ""
	return nil
}
