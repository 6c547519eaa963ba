// Package lock provides a Redis mutex so a purge job never runs twice at
// once, whether from two replicas or a restarted process re-registering.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "retention:lock:"

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a best-effort distributed lock with expiry.
type Redis struct {
	rdb redis.Scripter
	set func(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
}

// NewRedis returns a lock backed by rdb.
func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{
		rdb: rdb,
		set: func(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
			return rdb.SetNX(ctx, key, token, ttl).Result()
		},
	}
}

// Key is the Redis key guarding name.
func Key(name string) string { return keyPrefix + name }

// Acquire tries once to take the lock for name. When ok is false another
// holder has it; release is then a no-op. The lock expires after ttl even if
// never released.
func (l *Redis) Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error) {
	key := Key(name)
	token := uuid.NewString()

	ok, err = l.set(ctx, key, token, ttl)
	if err != nil {
		return func() {}, false, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return func() {}, false, nil
	}

	release = func() {
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(rctx, l.rdb, []string{key}, token).Err()
	}
	return release, true, nil
}
