package usertx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	id "trustcore/pkg/domain"
	dErrors "trustcore/pkg/domain-errors"
	"trustcore/pkg/platform/sentinel"
)

// releaseScript deletes the lease only if this holder still owns it.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

const (
	defaultLeaseTTL      = 10 * time.Second
	defaultRetryInterval = 25 * time.Millisecond
	leaseKeyPrefix       = "trustcore:userlock:"
)

// RedisLease holds a Redis lease per user around an inner Runner, so several
// instances sharing one database serialize on the same user.
type RedisLease struct {
	client        redis.Cmdable
	inner         Runner
	ttl           time.Duration
	retryInterval time.Duration
	newToken      func() string
}

type LeaseOption func(*RedisLease)

// WithLeaseTTL sets how long an abandoned lease survives its holder.
func WithLeaseTTL(ttl time.Duration) LeaseOption {
	return func(l *RedisLease) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

func WithRetryInterval(d time.Duration) LeaseOption {
	return func(l *RedisLease) {
		if d > 0 {
			l.retryInterval = d
		}
	}
}

// WithTokenFunc replaces the random holder token generator.
func WithTokenFunc(fn func() string) LeaseOption {
	return func(l *RedisLease) {
		l.newToken = fn
	}
}

func NewRedisLease(client redis.Cmdable, inner Runner, opts ...LeaseOption) *RedisLease {
	l := &RedisLease{
		client:        client,
		inner:         inner,
		ttl:           defaultLeaseTTL,
		retryInterval: defaultRetryInterval,
		newToken:      randomToken,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RedisLease) RunForUser(ctx context.Context, userID id.UserID, fn func(ctx context.Context) error) error {
	key := leaseKeyPrefix + userID.String()
	if holds(ctx, key) {
		return l.inner.RunForUser(ctx, userID, fn)
	}

	token := l.newToken()
	if err := l.acquire(ctx, key, token); err != nil {
		return err
	}
	defer l.release(key, token)

	return l.inner.RunForUser(withHeld(ctx, key), userID, fn)
}

func (l *RedisLease) acquire(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "timed out waiting for user lease")
			}
			return dErrors.Wrap(errors.Join(sentinel.ErrUnavailable, err), dErrors.CodeInternal, "failed to acquire user lease")
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "timed out waiting for user lease")
		case <-ticker.C:
		}
	}
}

// release runs on a fresh context so a cancelled caller still frees the lease.
func (l *RedisLease) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = l.client.Eval(ctx, releaseScript, []string{key}, token).Err()
}

func randomToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
