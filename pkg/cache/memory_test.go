package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(t *testing.T, opts ...MemoryOption) *MemoryCache {
	t.Helper()
	c := NewMemoryCache(opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMemoryCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	type payload struct {
		Score float64 `json:"score"`
		Label string  `json:"label"`
	}
	require.NoError(t, c.Set(ctx, "sentiment:AAPL", payload{Score: 0.4, Label: "positive"}, time.Hour))

	var got payload
	require.NoError(t, c.Get(ctx, "sentiment:AAPL", &got))
	assert.Equal(t, payload{Score: 0.4, Label: "positive"}, got)

	var s string
	require.NoError(t, c.Set(ctx, "plain", "hello", 0))
	require.NoError(t, c.Get(ctx, "plain", &s))
	assert.Equal(t, "hello", s)

	err := c.Get(ctx, "missing", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := newTestCache(t, WithMemoryClock(clock.now))

	require.NoError(t, c.Set(ctx, "k", 1, time.Minute))
	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	clock.t = clock.t.Add(2 * time.Minute)
	ok, err = c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	var v int
	assert.ErrorIs(t, c.Get(ctx, "k", &v), ErrCacheMiss)
}

func TestMemoryCache_AppendToListCapsLength(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	for i := 1; i <= 10; i++ {
		require.NoError(t, c.AppendToList(ctx, "prices:BTC", float64(i), 4, time.Hour))
	}

	var prices []float64
	require.NoError(t, c.GetList(ctx, "prices:BTC", &prices))
	assert.Equal(t, []float64{7, 8, 9, 10}, prices)
}

func TestMemoryCache_GetListMissingIsEmpty(t *testing.T) {
	c := newTestCache(t)

	var items []string
	require.NoError(t, c.GetList(context.Background(), "nothing", &items))
	assert.Empty(t, items)
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := newTestCache(t, WithMemoryMaxSize(2), WithMemoryClock(clock.now))

	require.NoError(t, c.Set(ctx, "a", 1, 0))
	clock.t = clock.t.Add(time.Second)
	require.NoError(t, c.Set(ctx, "b", 2, 0))
	clock.t = clock.t.Add(time.Second)

	var v int
	require.NoError(t, c.Get(ctx, "a", &v))
	clock.t = clock.t.Add(time.Second)

	require.NoError(t, c.Set(ctx, "c", 3, 0))

	assert.Equal(t, 2, c.Len())
	assert.ErrorIs(t, c.Get(ctx, "b", &v), ErrCacheMiss)
	require.NoError(t, c.Get(ctx, "a", &v))
	assert.Equal(t, 1, v)
}

func TestMemoryCache_Delete(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Set(ctx, "a", 1, 0))
	require.NoError(t, c.AppendToList(ctx, "l", "x", 0, 0))
	require.NoError(t, c.Delete(ctx, "a", "l"))

	ok, err := c.Exists(ctx, "a", "l")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, "prices:AAPL", GenerateKey("prices", "AAPL"))
	assert.Equal(t, "news:AAPL:24", GenerateKeyWithParams("news", "AAPL", 24))
}
