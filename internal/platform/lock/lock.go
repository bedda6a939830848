// Package lock provides best-effort distributed critical sections on top of Redis.
package lock

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL     = 30 * time.Second
	defaultWait    = 5 * time.Second
	defaultBackoff = 100 * time.Millisecond
)

// Locker obtains short-lived Redis locks. Row locks in Postgres remain the source of
// truth; a lock that cannot be obtained is logged and the caller proceeds.
type Locker struct {
	client *redislock.Client
	logger *slog.Logger
	ttl    time.Duration
	wait   time.Duration
}

// New constructs a Locker. A nil redis client yields a Locker whose Acquire is a no-op.
func New(rdb *redis.Client, logger *slog.Logger) *Locker {
	l := &Locker{logger: logger, ttl: defaultTTL, wait: defaultWait}
	if rdb != nil {
		l.client = redislock.New(rdb)
	}
	return l
}

// Acquire blocks until key is held, the wait budget runs out, or ctx ends.
// The returned release func is always safe to call.
func (l *Locker) Acquire(ctx context.Context, key string) func() {
	if l == nil || l.client == nil {
		return func() {}
	}
	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	lk, err := l.client.Obtain(waitCtx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(defaultBackoff),
	})
	if err != nil {
		if l.logger != nil {
			if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
				l.logger.Warn("lock not obtained; continuing without it", slog.String("key", key))
			} else {
				l.logger.Warn("lock unavailable; continuing without it", slog.String("key", key), slog.Any("error", err))
			}
		}
		return func() {}
	}
	return func() {
		if err := lk.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) && l.logger != nil {
			l.logger.Warn("lock release failed", slog.String("key", key), slog.Any("error", err))
		}
	}
}
