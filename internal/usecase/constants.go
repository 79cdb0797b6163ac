package usecase

import "time"

const (
	// DefaultLockTTL bounds how long a crashed holder can block an account.
	DefaultLockTTL = 30 * time.Second

	// DefaultLockRetryCount is the number of extra acquisition attempts.
	DefaultLockRetryCount = 5

	// DefaultLockRetryDelay is the pause between acquisition attempts.
	DefaultLockRetryDelay = 500 * time.Millisecond

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// DefaultListLimit caps unbounded list queries.
	DefaultListLimit = 100

	// MaxListLimit is the largest page a caller may request.
	MaxListLimit = 1000

	// providerBalanceCacheKey holds the last provider wallet balance in minor units.
	providerBalanceCacheKey = "provider:wallet-balance"
)

// DefaultLockOptions returns the lock policy used for balance updates.
func DefaultLockOptions() LockOptions {
	return LockOptions{
		TTL:        DefaultLockTTL,
		RetryCount: DefaultLockRetryCount,
		RetryDelay: DefaultLockRetryDelay,
	}
}

// NormalizePagination clamps limit and offset into the accepted range.
func NormalizePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
