package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestAcquireRelease(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	l := New(client, "campaign:abc", time.Minute)
	ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second holder can't take the same key.
	other := New(client, "campaign:abc", time.Minute)
	ok, err = other.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx))

	ok, err = other.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseOnlyOwner(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	l := New(client, "campaign:xyz", time.Minute)
	ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// A different instance releasing the same key is a no-op.
	imposter := New(client, "campaign:xyz", time.Minute)
	require.NoError(t, imposter.Release(ctx))

	stillHeld, err := client.Exists(ctx, "lock:campaign:xyz").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stillHeld)
}

func TestTryLockHeartbeatRefreshesTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := &Locker{client: client, heartbeat: 5 * time.Millisecond}
	ctx := context.Background()

	release, ok, err := l.TryLock(ctx, "generate:c1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	defer release()

	// Burn down half the TTL; the heartbeat must push it back up.
	mr.FastForward(30 * time.Second)
	assert.Eventually(t, func() bool {
		ttl, err := client.TTL(ctx, "lock:generate:c1").Result()
		return err == nil && ttl > 45*time.Second
	}, time.Second, 10*time.Millisecond)
}

func TestTryLockReleaseStopsHeartbeat(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := &Locker{client: client, heartbeat: 5 * time.Millisecond}
	ctx := context.Background()

	release, ok, err := l.TryLock(ctx, "generate:c2", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	release()

	// A straggling extend must not resurrect the released key.
	assert.Never(t, func() bool {
		n, err := client.Exists(ctx, "lock:generate:c2").Result()
		return err == nil && n == 1
	}, 50*time.Millisecond, 10*time.Millisecond)
}

func TestTryLockContended(t *testing.T) {
	client := newTestClient(t)
	l := NewLocker(client)
	ctx := context.Background()

	release, ok, err := l.TryLock(ctx, "generate:c3", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	defer release()

	rel2, ok, err := l.TryLock(ctx, "generate:c3", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, rel2)
}

func TestExtend(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	l := New(client, "campaign:ext", time.Second)
	ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, l.Extend(ctx, time.Minute))

	ttl, err := client.TTL(ctx, "lock:campaign:ext").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 30*time.Second)
}
