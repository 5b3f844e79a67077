package lock

import (
    "context"
    "os"
    "testing"
    "time"

    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

// testClient connects to the Redis named by REDIS_TEST_ADDR, skipping
// the test when none is configured.
func testClient(t *testing.T) *redis.Client {
    t.Helper()
    addr := os.Getenv("REDIS_TEST_ADDR")
    if addr == "" {
        t.Skip("REDIS_TEST_ADDR not set")
    }
    client := redis.NewClient(&redis.Options{Addr: addr})
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    require.NoError(t, client.Ping(ctx).Err())
    t.Cleanup(func() { _ = client.Close() })
    return client
}

func TestLeaseLockMutualExclusion(t *testing.T) {
    client := testClient(t)
    l := New(client, "locktest")
    ctx := context.Background()
    name := "event:1:user:1"

    token, acquired, err := l.Acquire(ctx, name, 5*time.Second)
    require.NoError(t, err)
    require.True(t, acquired)
    require.NotEmpty(t, token)

    // Second acquire while held fails without error.
    _, again, err := l.Acquire(ctx, name, 5*time.Second)
    require.NoError(t, err)
    assert.False(t, again)

    released, err := l.Release(ctx, name, token)
    require.NoError(t, err)
    assert.True(t, released)

    _, reacquired, err := l.Acquire(ctx, name, 5*time.Second)
    require.NoError(t, err)
    assert.True(t, reacquired)
}

func TestLeaseLockReleaseRequiresToken(t *testing.T) {
    client := testClient(t)
    l := New(client, "locktest")
    ctx := context.Background()
    name := "event:2:user:2"

    token, acquired, err := l.Acquire(ctx, name, 5*time.Second)
    require.NoError(t, err)
    require.True(t, acquired)

    // A stale or foreign token must not release the lock.
    released, err := l.Release(ctx, name, "not-the-token")
    require.NoError(t, err)
    assert.False(t, released)

    released, err = l.Release(ctx, name, token)
    require.NoError(t, err)
    assert.True(t, released)
}

func TestLeaseLockExpires(t *testing.T) {
    client := testClient(t)
    l := New(client, "locktest")
    ctx := context.Background()
    name := "event:3:user:3"

    _, acquired, err := l.Acquire(ctx, name, 100*time.Millisecond)
    require.NoError(t, err)
    require.True(t, acquired)

    time.Sleep(200 * time.Millisecond)

    _, reacquired, err := l.Acquire(ctx, name, time.Second)
    require.NoError(t, err)
    assert.True(t, reacquired, "expired lease must be acquirable")
}
