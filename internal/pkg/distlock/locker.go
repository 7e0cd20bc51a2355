package distlock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fractionalops/claire-backend/internal/pkg/logger"
)

// Locker hands out single-use locks keyed by name. It satisfies the
// lifecycle engine's locker contract.
type Locker struct {
	client *redis.Client

	// heartbeat overrides the TTL-refresh interval. Zero means ttl/3.
	heartbeat time.Duration
}

// NewLocker creates a Redis-backed locker.
func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client}
}

// TryLock attempts to take the named lock. On success it returns a release
// func bound to this acquisition and starts a heartbeat that keeps
// extending the TTL until release, so a generation call that outlives the
// initial TTL does not lose the lock mid-flight. When the lock is held
// elsewhere it returns (nil, false, nil). Release runs against a fresh
// context so a cancelled request still frees the lock.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	lock := New(l.client, key, ttl)
	ok, err := lock.Acquire(ctx)
	if err != nil || !ok {
		return nil, false, err
	}

	interval := l.heartbeat
	if interval <= 0 {
		interval = ttl / 3
	}
	stop := make(chan struct{})
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				hbCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := lock.Extend(hbCtx, ttl); err != nil {
					logger.Warn("lock extend failed", "key", key, "error", err.Error())
				}
				cancel()
			}
		}
	}()

	release := func() {
		close(stop)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = lock.Release(ctx)
	}
	return release, true, nil
}
