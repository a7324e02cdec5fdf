package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const (
	defaultLockTTL       = 30 * time.Second
	defaultRetryInterval = 50 * time.Millisecond
	defaultMaxWait       = 10 * time.Second
	releaseTimeout       = 2 * time.Second
)

// RedisLocker is a SETNX based Locker shared by every process pointing at the
// same Redis. Ownership is proven by a random token on release.
type RedisLocker struct {
	client        redis.UniversalClient
	script        *redis.Script
	prefix        string
	ttl           time.Duration
	retryInterval time.Duration
	maxWait       time.Duration
}

func NewRedisLocker(client redis.UniversalClient, prefix string) *RedisLocker {
	return &RedisLocker{
		client:        client,
		script:        redis.NewScript(lockReleaseScript),
		prefix:        prefix,
		ttl:           defaultLockTTL,
		retryInterval: defaultRetryInterval,
		maxWait:       defaultMaxWait,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if l == nil || l.client == nil {
		return nil, errors.New("lock client not configured")
	}
	if key == "" {
		return nil, ErrEmptyKey
	}
	key = l.prefix + key

	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		token, ok, err := l.tryLock(waitCtx, key)
		if err != nil && waitCtx.Err() == nil {
			return nil, err
		}
		if ok {
			return l.releaseFunc(key, token), nil
		}

		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrLockTimeout, key, waitCtx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) tryLock(ctx context.Context, key string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *RedisLocker) releaseFunc(key, token string) func() {
	released := false
	return func() {
		if released {
			return
		}
		released = true
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		// An expired lock is not an error; the script is a no-op then.
		_ = l.script.Run(ctx, l.client, []string{key}, token).Err()
	}
}

var _ Locker = (*RedisLocker)(nil)
