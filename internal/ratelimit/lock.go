package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// compare-and-delete so an expired holder never frees a lock someone else took.
const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const releaseTimeout = 2 * time.Second

var (
	errLockNotConfigured = errors.New("lock client not configured")
	errEmptyLockKey      = errors.New("lock key is empty")
	errLockTTL           = errors.New("lock ttl must be positive")
)

// Locker hands out single-holder redis locks used for GCC transitions and
// scheduler jobs.
type Locker struct {
	client  redis.UniversalClient
	release *redis.Script
}

func NewLocker(client redis.UniversalClient) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{client: client, release: redis.NewScript(lockReleaseScript)}
}

// Acquire takes key for ttl. When held is false the lock belongs to someone
// else and unlock is nil. unlock survives cancellation of ctx and reports
// release failures to onReleaseErr.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration, onReleaseErr func(error)) (unlock func(), held bool, err error) {
	token, ok, err := l.TryLock(ctx, key, ttl)
	if err != nil || !ok {
		return nil, false, err
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := l.Release(releaseCtx, key, token); err != nil && onReleaseErr != nil {
			onReleaseErr(err)
		}
	}, true, nil
}

// TryLock sets key to a fresh token when absent and returns that token.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	switch {
	case l == nil || l.client == nil:
		return "", false, errLockNotConfigured
	case key == "":
		return "", false, errEmptyLockKey
	case ttl <= 0:
		return "", false, errLockTTL
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil || key == "" || token == "" {
		return nil
	}
	return l.release.Run(ctx, l.client, []string{key}, token).Err()
}
