package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/iho/vaultledger/internal/domain"
	"github.com/iho/vaultledger/internal/usecase"
)

// ErrLockNotHeld is returned by Release when the lock expired or was taken
// over by another holder before release.
var ErrLockNotHeld = errors.New("lock not held")

var errLockHeld = errors.New("lock held by another owner")

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Locker implements usecase.Locker with SET NX PX on a single Redis.
type Locker struct {
	client *redis.Client
	prefix string
}

// NewLocker creates a new Locker.
func NewLocker(client *redis.Client) *Locker {
	return &Locker{
		client: client,
		prefix: "lock:",
	}
}

// Obtain tries once, then up to opts.RetryCount more times opts.RetryDelay apart.
func (l *Locker) Obtain(ctx context.Context, key string, opts usecase.LockOptions) (usecase.Lease, error) {
	fullKey := l.prefix + key
	token := ulid.Make().String()

	var b backoff.BackOff = backoff.NewConstantBackOff(opts.RetryDelay)
	b = backoff.WithMaxRetries(b, uint64(max(opts.RetryCount, 0)))
	b = backoff.WithContext(b, ctx)

	err := backoff.Retry(func() error {
		ok, err := l.client.SetNX(ctx, fullKey, token, opts.TTL).Result()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errLockHeld
		}
		return nil
	}, b)
	if err != nil {
		if errors.Is(err, errLockHeld) {
			return nil, fmt.Errorf("%w: %s", domain.ErrLockAcquisition, key)
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrLockAcquisition, key, err)
	}

	return &lease{client: l.client, key: fullKey, token: token}, nil
}

type lease struct {
	client *redis.Client
	key    string
	token  string
}

// Release deletes the lock if this lease still owns it.
func (l *lease) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int64()
	if err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	if n == 0 {
		return fmt.Errorf("release %s: %w", l.key, ErrLockNotHeld)
	}
	return nil
}
