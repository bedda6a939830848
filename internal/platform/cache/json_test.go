package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestCache(t *testing.T) (*JSONCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewJSONCache(client, "dashboard", time.Minute), mr
}

func TestFetchJSONCachesLoaderResult(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return widget{Name: "orders", Count: 4}, nil
	}

	var first, second widget
	require.NoError(t, c.FetchJSON(ctx, c.Key("counts", "1"), &first, loader))
	require.NoError(t, c.FetchJSON(ctx, c.Key("counts", "1"), &second, loader))

	assert.Equal(t, 1, calls)
	assert.Equal(t, widget{Name: "orders", Count: 4}, second)
	assert.True(t, mr.Exists("dashboard:counts:1"))
	assert.Equal(t, time.Minute, mr.TTL("dashboard:counts:1"))
}

func TestFetchJSONPropagatesLoaderError(t *testing.T) {
	c, mr := newTestCache(t)
	boom := errors.New("boom")

	var out widget
	err := c.FetchJSON(context.Background(), c.Key("counts", "2"), &out, func(context.Context) (any, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("dashboard:counts:2"))
}

func TestInvalidateDropsMatchingKeys(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	loader := func(context.Context) (any, error) { return widget{Count: 1}, nil }

	var out widget
	require.NoError(t, c.FetchJSON(ctx, c.Key("counts", "1"), &out, loader))
	require.NoError(t, c.FetchJSON(ctx, c.Key("stock", "1"), &out, loader))

	require.NoError(t, c.Invalidate(ctx, "counts"))
	assert.False(t, mr.Exists("dashboard:counts:1"))
	assert.True(t, mr.Exists("dashboard:stock:1"))
}

func TestNilClientCallsLoaderDirectly(t *testing.T) {
	c := NewJSONCache(nil, "dashboard", time.Minute)
	calls := 0
	var out widget
	for range 2 {
		require.NoError(t, c.FetchJSON(context.Background(), "k", &out, func(context.Context) (any, error) {
			calls++
			return widget{Name: "x"}, nil
		}))
	}
	assert.Equal(t, 2, calls)
	assert.Equal(t, "x", out.Name)
	require.NoError(t, c.Invalidate(context.Background(), "k"))
}
