package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a single-instance Redis mutex. It serializes webhook handling
// across replicas of the service; each lock expires after its ttl so a
// crashed holder cannot block a key forever.
type Locker struct {
	client redis.UniversalClient
	prefix string
	retry  time.Duration
}

// NewLocker creates a Locker using the lock settings of cfg.
// Panics if client is nil.
func NewLocker(client redis.UniversalClient, cfg Config) *Locker {
	if client == nil {
		panic("redis: client is required")
	}
	retry := cfg.LockRetryInterval
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	return &Locker{
		client: client,
		prefix: cfg.LockPrefix,
		retry:  retry,
	}
}

// Acquire blocks until key is free or ctx is done. The returned release
// func must be called once the critical section ends; it reports
// ErrLockNotHeld when the lock expired in the meantime.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	token, err := newToken()
	if err != nil {
		return nil, errors.Join(ErrLockNotAcquired, err)
	}
	name := l.prefix + key

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, name, token, ttl).Result()
		if err != nil {
			return nil, errors.Join(ErrLockNotAcquired, err)
		}
		if ok {
			return func(ctx context.Context) error {
				n, err := releaseScript.Run(ctx, l.client, []string{name}, token).Int()
				if err != nil {
					return err
				}
				if n == 0 {
					return ErrLockNotHeld
				}
				return nil
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrLockNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
