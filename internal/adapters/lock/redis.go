package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Deleting only our own token keeps a late unlock from releasing a lock
// that expired and was taken by someone else.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// ErrNotAcquired is returned when the lock stays taken until ctx expires.
var ErrNotAcquired = errors.New("lock not acquired")

// Redis is a distributed Locker built on SET NX PX with a random token.
type Redis struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	poll   time.Duration
}

var _ Locker = (*Redis)(nil)

// NewRedis constructs a Redis locker. ttl bounds how long a crashed holder
// can block others.
func NewRedis(client redis.Cmdable, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{client: client, prefix: "codevoice:lock:", ttl: ttl, poll: 20 * time.Millisecond}
}

// Lock polls with backoff until the key is acquired or ctx is done.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	k := r.prefix + key
	token := uuid.NewString()

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.poll
	eb.MaxInterval = 500 * time.Millisecond
	eb.MaxElapsedTime = 0
	err := backoff.Retry(func() error {
		ok, err := r.client.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return ErrNotAcquired
		}
		return nil
	}, backoff.WithContext(eb, ctx))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
		}
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Released on a fresh context so a cancelled request still unlocks.
			unlockCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = unlockScript.Run(unlockCtx, r.client, []string{k}, token).Err()
		})
	}, nil
}
