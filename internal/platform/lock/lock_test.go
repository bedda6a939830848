package lock

import (
	"context"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, slog.Default()), mr
}

func TestAcquireHoldsAndReleasesKey(t *testing.T) {
	l, mr := newTestLocker(t)

	release := l.Acquire(context.Background(), "inventory:company:1:lock")
	assert.True(t, mr.Exists("inventory:company:1:lock"))

	release()
	assert.False(t, mr.Exists("inventory:company:1:lock"))
}

func TestAcquireGivesUpAfterWaitBudget(t *testing.T) {
	l, mr := newTestLocker(t)
	l.wait = 150 * time.Millisecond

	hold := l.Acquire(context.Background(), "intake:company:1:rice:lock")
	defer hold()

	start := time.Now()
	release := l.Acquire(context.Background(), "intake:company:1:rice:lock")
	require.NotNil(t, release)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)

	// the losing caller's release must not drop the holder's key
	release()
	assert.True(t, mr.Exists("intake:company:1:rice:lock"))
}

func TestNilClientIsNoop(t *testing.T) {
	l := New(nil, nil)
	release := l.Acquire(context.Background(), "k")
	release()

	var nilLocker *Locker
	nilLocker.Acquire(context.Background(), "k")()
}
