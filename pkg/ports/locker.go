package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken with DistributedLocker.Lock. Releasing a
// lock that already expired and was taken by someone else is a no-op.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker gives one instance at a time the right to write the
// snapshot of a key, so concurrent pushes of the same tree do not interleave.
type DistributedLocker interface {
	// Lock waits until key is free or ctx is done. The lock expires on its
	// own after ttl.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
