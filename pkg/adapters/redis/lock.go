package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/grove/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// ErrLockAcquire wraps Redis failures while taking a push lock.
var ErrLockAcquire = errors.New("push lock unavailable")

// releaseScript deletes the lock only while it still holds the caller's token.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

const defaultPoll = 100 * time.Millisecond

// Locker implements ports.DistributedLocker on SET NX with a per-holder
// token, so a holder whose lock expired cannot release its successor's.
type Locker struct {
	client *backend.Client
	prefix string
	poll   time.Duration
}

var _ ports.DistributedLocker = (*Locker)(nil)

// LockerOption configures a Locker.
type LockerOption func(*Locker)

// WithPollInterval sets how often a waiting Lock retries.
func WithPollInterval(d time.Duration) LockerOption {
	return func(l *Locker) {
		if d > 0 {
			l.poll = d
		}
	}
}

// NewLocker creates a locker whose keys live under prefix + "lock:".
func NewLocker(client *backend.Client, prefix string, opts ...LockerOption) *Locker {
	l := &Locker{client: client, prefix: prefix, poll: defaultPoll}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Locker) lockKey(key string) string {
	return l.prefix + "lock:" + key
}

// Lock retries SET NX every poll interval until it wins or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	name := l.lockKey(key)
	token := uuid.NewString()

	for {
		won, err := l.client.SetNX(ctx, name, token, ttl).Result()
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			return nil, fmt.Errorf("%w: %s: %v", ErrLockAcquire, key, err)
		case won:
			return func(ctx context.Context) error {
				return l.client.Eval(ctx, releaseScript, []string{name}, token).Err()
			}, nil
		}

		timer := time.NewTimer(l.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
