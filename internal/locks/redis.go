package locks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"gaming_lounge_backend/pkg/utils"
)

var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisLocker is a lease lock shared by every process using the same Redis.
// A lease expires after TTL so a crashed holder cannot wedge a seat.
type RedisLocker struct {
	rdb       *redis.Client
	prefix    string
	ttl       time.Duration
	retryWait time.Duration
}

// NewRedisLocker builds a locker storing leases under prefix.
func NewRedisLocker(rdb *redis.Client, prefix string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{rdb: rdb, prefix: prefix, ttl: ttl, retryWait: 25 * time.Millisecond}
}

func (l *RedisLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = dedupe(keys)
	token := uuid.NewString()
	held := make([]string, 0, len(keys))
	for _, key := range keys {
		full := l.prefix + key
		if err := l.acquire(ctx, full, token); err != nil {
			l.release(held, token)
			return nil, err
		}
		held = append(held, full)
	}
	var once sync.Once
	return func() { once.Do(func() { l.release(held, token) }) }, nil
}

func (l *RedisLocker) acquire(ctx context.Context, key, token string) error {
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %s: %v", ErrLockTimeout, key, ctx.Err())
			}
			return fmt.Errorf("acquiring lock %s: %w", key, err)
		}
		if ok {
			return nil
		}
		select {
		case <-time.After(l.retryWait):
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %v", ErrLockTimeout, key, ctx.Err())
		}
	}
}

// release runs on a fresh context so a cancelled request still frees its leases.
func (l *RedisLocker) release(keys []string, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := len(keys) - 1; i >= 0; i-- {
		if err := releaseScript.Run(ctx, l.rdb, []string{keys[i]}, token).Err(); err != nil {
			utils.LogWarn(err, "Failed to release redis lock", map[string]interface{}{"key": keys[i]})
		}
	}
}
