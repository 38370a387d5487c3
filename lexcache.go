// Package lexcache is a concurrent in-process cache with absolute and sliding
// expiration, lazy expiry and a soft capacity that grows adaptively before it
// starts evicting the least used entries.
//
// The engine lives in pkg/cache. This package wraps it in a context-aware
// Service for string keys that middlewares can decorate, and adds the
// management HTTP server and the configuration loader used by the lexcache
// command.
package lexcache

import (
	"context"
	"strings"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/lexcache/internal/sentinel"
	"github.com/hyp3rd/lexcache/pkg/cache"
	"github.com/hyp3rd/lexcache/pkg/stats"
)

// Cache implements Service over a LocalCache with string keys.
type Cache struct {
	local *cache.LocalCache[string, any]
}

// New creates a Cache configured by options.
func New(options ...cache.Option[string, any]) (*Cache, error) {
	local, err := cache.New(options...)
	if err != nil {
		return nil, err
	}

	return &Cache{local: local}, nil
}

// Wrap exposes an existing LocalCache as a Cache.
func Wrap(local *cache.LocalCache[string, any]) *Cache {
	return &Cache{local: local}
}

// Local returns the underlying LocalCache.
func (c *Cache) Local() *cache.LocalCache[string, any] { return c.local }

// Get returns the value stored under key. A canceled context reports a miss.
func (c *Cache) Get(ctx context.Context, key string) (any, bool) {
	if ctx.Err() != nil {
		return nil, false
	}

	return c.local.TryGet(key)
}

// Set stores value under key.
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	if err := check(ctx, key); err != nil {
		return err
	}

	c.local.Add(key, value)

	return nil
}

// GetOrSet returns the value stored under key, producing it with factory when
// missing or expired. A nil factory falls back to the cache default factory.
func (c *Cache) GetOrSet(ctx context.Context, key string, factory Factory) (any, error) {
	if err := check(ctx, key); err != nil {
		return nil, err
	}

	return c.local.Get(key, factory)
}

// Contains reports whether key is stored, without checking expiry.
func (c *Cache) Contains(ctx context.Context, key string) bool {
	if ctx.Err() != nil {
		return false
	}

	return c.local.Contains(key)
}

// Remove deletes the keys.
func (c *Cache) Remove(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if ctx.Err() != nil {
			return ewrap.Wrap(sentinel.ErrTimeoutOrCanceled, "remove")
		}

		c.local.Remove(key)
	}

	return nil
}

// Clear removes every entry.
func (c *Cache) Clear(ctx context.Context) error {
	if ctx.Err() != nil {
		return ewrap.Wrap(sentinel.ErrTimeoutOrCanceled, "clear")
	}

	c.local.Clear()

	return nil
}

// Capacity returns the current soft capacity.
func (c *Cache) Capacity() int { return c.local.Capacity() }

// Count returns the number of stored entries.
func (c *Cache) Count(_ context.Context) int { return c.local.Len() }

// GetStats returns the stats recorded by the cache collector.
func (c *Cache) GetStats() stats.Stats { return c.local.Info().Stats }

func check(ctx context.Context, key string) error {
	if ctx.Err() != nil {
		return ewrap.Wrap(sentinel.ErrTimeoutOrCanceled, ctx.Err().Error())
	}

	if strings.TrimSpace(key) == "" {
		return sentinel.ErrInvalidKey
	}

	return nil
}
