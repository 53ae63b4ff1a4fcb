package redisad

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"replypilot/internal/domain"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a single-instance redis mutex with expiry. It serializes posting
// a review across API replicas and the auto-reply worker.
type Locker struct{ c *redis.Client }

func NewLocker(c *redis.Client) *Locker { return &Locker{c: c} }

// Acquire returns domain.ErrLocked when another holder owns key.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	token := uuid.NewString()
	ok, err := l.c.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrLocked, key)
	}
	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.c, []string{key}, token).Err()
	}, nil
}
