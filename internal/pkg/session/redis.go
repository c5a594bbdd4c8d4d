package session

import (
	"context"
	"errors"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
)

const (
	redisSessionPrefix = "session:"
	redisLockPrefix    = "session-lock:"
)

// ErrLockTimeout is returned when a lock could not be acquired within its ttl.
var ErrLockTimeout = errors.New("session: timed out waiting for lock")

// NewRedisStore returns an scs store keeping each record under the
// "session:" prefix with a Redis TTL matching the session expiry.
func NewRedisStore(client *redis.Client) *goredisstore.RedisStore {
	return goredisstore.NewWithPrefix(client, redisSessionPrefix)
}

// unlockScript deletes the lock only when it is still owned by the caller.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a SETNX based lock shared by every instance using the same Redis.
type RedisLocker struct {
	client  redis.UniversalClient
	owner   uid.StringID
	backoff time.Duration
}

// NewRedisLocker returns a locker polling every backoff while a key is held.
func NewRedisLocker(client redis.UniversalClient, owner uid.StringID, backoff time.Duration) *RedisLocker {
	if backoff <= 0 {
		backoff = 25 * time.Millisecond
	}
	return &RedisLocker{client: client, owner: owner, backoff: backoff}
}

func (l *RedisLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lockKey := redisLockPrefix + key
	token := l.owner.Generate()

	b := retry.WithMaxDuration(ttl, retry.NewConstant(l.backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			return err
		}
		if !ok {
			return retry.RetryableError(ErrLockTimeout)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return func() {
		// The lock expires on its own if this fails.
		_ = unlockScript.Run(context.WithoutCancel(ctx), l.client, []string{lockKey}, token).Err()
	}, nil
}
