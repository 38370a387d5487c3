package lexcache

import (
	"context"
	"errors"
	"testing"

	"github.com/longbridgeapp/assert"

	"github.com/hyp3rd/lexcache/pkg/cache"
	"github.com/hyp3rd/lexcache/pkg/stats"
)

func TestCacheOperations(t *testing.T) {
	collector := stats.NewCollector()

	c, err := New(
		cache.WithCapacity[string, any](40),
		cache.WithStatsCollector[string, any](collector),
		cache.WithFactory(func(key string) (any, error) { return "default:" + key, nil }),
	)
	assert.NoError(t, err)

	ctx := context.Background()

	assert.NoError(t, c.Set(ctx, "a", 1))

	v, ok := c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	v, err = c.GetOrSet(ctx, "b", nil)
	assert.NoError(t, err)
	assert.Equal(t, "default:b", v)

	v, err = c.GetOrSet(ctx, "c", func(string) (any, error) { return 3, nil })
	assert.NoError(t, err)
	assert.Equal(t, 3, v)

	assert.True(t, c.Contains(ctx, "c"))
	assert.Equal(t, 3, c.Count(ctx))
	assert.Equal(t, 40, c.Capacity())
	assert.Equal(t, int64(1), c.GetStats().Sum(stats.StatHits))

	assert.NoError(t, c.Remove(ctx, "a", "missing"))
	assert.False(t, c.Contains(ctx, "a"))

	assert.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, c.Local().Len())
}

func TestCacheRejectsInvalidKeys(t *testing.T) {
	c, err := New()
	assert.NoError(t, err)

	err = c.Set(context.Background(), "  ", 1)
	assert.True(t, errors.Is(err, ErrInvalidKey))

	_, err = c.GetOrSet(context.Background(), "", func(string) (any, error) { return 1, nil })
	assert.True(t, errors.Is(err, ErrInvalidKey))
}

func TestCacheCanceledContext(t *testing.T) {
	c, err := New()
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.True(t, errors.Is(c.Set(ctx, "a", 1), ErrTimeoutOrCanceled))
	assert.True(t, errors.Is(c.Remove(ctx, "a"), ErrTimeoutOrCanceled))
	assert.True(t, errors.Is(c.Clear(ctx), ErrTimeoutOrCanceled))

	_, err = c.GetOrSet(ctx, "a", func(string) (any, error) { return 1, nil })
	assert.True(t, errors.Is(err, ErrTimeoutOrCanceled))

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	assert.False(t, c.Contains(ctx, "a"))
	assert.Equal(t, 0, c.Count(context.Background()))
}

func TestCacheWithoutFactory(t *testing.T) {
	c, err := New()
	assert.NoError(t, err)

	_, err = c.GetOrSet(context.Background(), "a", nil)
	assert.True(t, errors.Is(err, ErrNilFactory))
}

func TestWrap(t *testing.T) {
	local, err := cache.New[string, any](cache.WithName[string, any]("wrapped"))
	assert.NoError(t, err)

	c := Wrap(local)
	assert.NoError(t, c.Set(context.Background(), "a", "x"))
	assert.Equal(t, "x", local.Value("a"))
	assert.Equal(t, "wrapped", c.Local().Name())
}
