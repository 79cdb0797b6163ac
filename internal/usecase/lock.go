package usecase

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
)

// WithLock runs fn while holding the lock on key. The lock is released on
// every exit path, including a panic in fn.
func WithLock[T any](ctx context.Context, locker Locker, key string, opts LockOptions, logger zerolog.Logger, fn func(ctx context.Context) (T, error)) (T, error) {
	return WithLocks(ctx, locker, []string{key}, opts, logger, fn)
}

// WithLocks acquires every key in lexicographic order, runs fn, then releases
// the leases in reverse order. Sorting gives all callers the same global order.
func WithLocks[T any](ctx context.Context, locker Locker, keys []string, opts LockOptions, logger zerolog.Logger, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	ordered := append([]string(nil), keys...)
	sort.Strings(ordered)

	leases := make([]Lease, 0, len(ordered))
	defer func() {
		releaseCtx := context.WithoutCancel(ctx)
		for i := len(leases) - 1; i >= 0; i-- {
			if err := leases[i].Release(releaseCtx); err != nil {
				logger.Warn().Err(err).Str("lock_key", ordered[i]).Msg("failed to release ledger lock")
			}
		}
	}()

	for _, key := range ordered {
		lease, err := locker.Obtain(ctx, key, opts)
		if err != nil {
			return zero, err
		}
		leases = append(leases, lease)
	}

	return fn(ctx)
}
