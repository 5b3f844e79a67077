// Package lock implements a lease-based mutual-exclusion primitive on a
// shared Redis instance.  Leases expire after a TTL so that a crashed
// holder cannot wedge the system, and release is conditional on the
// holder's token so that a holder whose lease already expired cannot
// free a lock that has since been re-acquired by someone else.
//
// The lock is a contention-reduction layer, not a correctness
// mechanism: the booking engine stays correct with locking disabled
// because every capacity mutation is additionally serialized by the
// database row lock.
package lock

import (
    "context"
    "time"

    "github.com/google/uuid"
    "github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only when it still holds the caller's
// token.  GET-compare-DEL must be atomic; doing it client-side would
// reintroduce the race the token exists to prevent.
var releaseScript = redis.NewScript(`
    if redis.call("GET", KEYS[1]) == ARGV[1] then
        return redis.call("DEL", KEYS[1])
    end
    return 0
`)

// LeaseLock acquires and releases expiring leases in Redis.  All keys
// are namespaced under the configured prefix.
type LeaseLock struct {
    client *redis.Client
    prefix string
}

// New returns a LeaseLock using the given client and key prefix.
func New(client *redis.Client, prefix string) *LeaseLock {
    if prefix == "" {
        prefix = "lock"
    }
    return &LeaseLock{client: client, prefix: prefix}
}

func (l *LeaseLock) key(name string) string { return l.prefix + ":" + name }

// Acquire attempts to take the lease without blocking.  On success it
// returns a holder token that must be presented to Release.  A held
// lock yields acquired=false with a nil error; that is a retryable
// busy condition, not a failure.
func (l *LeaseLock) Acquire(ctx context.Context, name string, ttl time.Duration) (token string, acquired bool, err error) {
    token = uuid.NewString()
    ok, err := l.client.SetNX(ctx, l.key(name), token, ttl).Result()
    if err != nil {
        return "", false, err
    }
    if !ok {
        return "", false, nil
    }
    return token, true, nil
}

// Release frees the lease if and only if the stored token matches.
// Returns false when the lease had already expired and possibly been
// re-acquired by another holder; the caller's critical section is over
// either way.
func (l *LeaseLock) Release(ctx context.Context, name, token string) (bool, error) {
    n, err := releaseScript.Run(ctx, l.client, []string{l.key(name)}, token).Int()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}
