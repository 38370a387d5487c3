package cache

import (
	"fmt"
	"time"

	"github.com/hyp3rd/ewrap"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"

	"github.com/hyp3rd/lexcache/internal/sentinel"
	"github.com/hyp3rd/lexcache/pkg/stats"
)

// LocalCache is a concurrent key/value cache bounded by a soft capacity.
//
// Entries expire after an absolute time to live or after staying untouched for
// the sliding expiration. Expired entries are discovered lazily by reads and by
// the capacity check that follows every write; the cache runs no goroutines.
// When the entry count exceeds the capacity, dirty entries are swept first; if
// that is not enough the cache either doubles its capacity, while its grow
// budget lasts, or evicts the least valuable quarter of its entries.
type LocalCache[K comparable, V any] struct {
	name    string
	policy  Policy
	items   *ConcurrentMap[K, *Entry[V]]
	factory func(K) (V, error)

	capacity   atomic.Int64
	growFactor atomic.Int64
	sweeping   atomic.Bool

	normalize    func(K) K
	clock        Clock
	logger       zerolog.Logger
	stats        stats.ICollector
	singleFlight bool
	flight       singleflight.Group
}

// Item is a point-in-time view of a cache entry.
type Item[K comparable, V any] struct {
	Key           K             `json:"key"`
	Value         V             `json:"value"`
	CreatedAt     time.Time     `json:"created_at"`
	LastTouchedAt time.Time     `json:"last_touched_at"`
	AccessCount   uint64        `json:"access_count"`
	Production    time.Duration `json:"production"`
}

// Info describes the current state of a cache.
type Info struct {
	Name              string        `json:"name"`
	Count             int           `json:"count"`
	Capacity          int           `json:"capacity"`
	GrowFactor        int           `json:"grow_factor"`
	TimeToLive        time.Duration `json:"ttl"`
	SlidingExpiration time.Duration `json:"sliding_expiration"`
	Shards            int           `json:"shards"`
	Stats             stats.Stats   `json:"stats"`
}

// Inspector is the type-independent view of a LocalCache.
type Inspector interface {
	Info() Info
	Clear()
}

// New creates a LocalCache. Policy values are clamped to their bounds; a nil
// key normalizer is rejected.
func New[K comparable, V any](options ...Option[K, V]) (*LocalCache[K, V], error) {
	cache := &LocalCache[K, V]{
		normalize: func(key K) K { return key },
		clock:     SystemClock(),
		logger:    zerolog.Nop(),
		stats:     stats.NopCollector{},
	}

	for _, option := range options {
		option(cache)
	}

	if cache.normalize == nil {
		return nil, ewrap.Wrap(sentinel.ErrNilComparer, "new local cache")
	}

	if cache.clock == nil {
		cache.clock = SystemClock()
	}

	if cache.stats == nil {
		cache.stats = stats.NopCollector{}
	}

	cache.policy = cache.policy.Normalize()
	cache.items = NewConcurrentMap[K, *Entry[V]](cache.policy.ConcurrencyLevel)
	cache.capacity.Store(int64(cache.policy.Capacity))
	cache.growFactor.Store(int64(cache.policy.GrowFactor))

	return cache, nil
}

// Name returns the diagnostic name of the cache.
func (c *LocalCache[K, V]) Name() string { return c.name }

// Capacity returns the current soft capacity.
func (c *LocalCache[K, V]) Capacity() int { return int(c.capacity.Load()) }

// GrowFactor returns how many capacity doublings are left.
func (c *LocalCache[K, V]) GrowFactor() int { return int(c.growFactor.Load()) }

// TimeToLive returns the absolute entry lifetime.
func (c *LocalCache[K, V]) TimeToLive() time.Duration { return c.policy.TimeToLive }

// SlidingExpiration returns the maximum idle time of an entry.
func (c *LocalCache[K, V]) SlidingExpiration() time.Duration { return c.policy.SlidingExpiration }

// Len returns the number of stored entries, expired ones not yet swept included.
func (c *LocalCache[K, V]) Len() int { return c.items.Count() }

// Info returns the current state of the cache.
func (c *LocalCache[K, V]) Info() Info {
	return Info{
		Name:              c.name,
		Count:             c.Len(),
		Capacity:          c.Capacity(),
		GrowFactor:        c.GrowFactor(),
		TimeToLive:        c.policy.TimeToLive,
		SlidingExpiration: c.policy.SlidingExpiration,
		Shards:            c.items.ShardCount(),
		Stats:             c.stats.GetStats(),
	}
}

// TryGet returns the value stored under key. A dirty entry is removed and
// reported as missing; a live one is touched.
func (c *LocalCache[K, V]) TryGet(key K) (V, bool) {
	var zero V

	key = c.normalize(key)

	entry, ok := c.items.Get(key)
	if !ok {
		c.stats.Incr(stats.StatMisses, 1)

		return zero, false
	}

	now := c.clock.Now()
	if entry.IsDirty(now, c.policy.TimeToLive, c.policy.SlidingExpiration) {
		if c.items.RemoveIf(key, same(entry)) {
			c.stats.Incr(stats.StatExpirations, 1)
		}

		c.stats.Incr(stats.StatMisses, 1)

		return zero, false
	}

	entry.Touch(now)
	c.stats.Incr(stats.StatHits, 1)

	return entry.Value(), true
}

// Value returns the value stored under key, or the zero value.
func (c *LocalCache[K, V]) Value(key K) V {
	value, _ := c.TryGet(key)

	return value
}

// Contains reports whether key is stored. Unlike TryGet it does not check
// expiry: an expired entry that was not swept yet is still reported.
func (c *LocalCache[K, V]) Contains(key K) bool {
	return c.items.Has(c.normalize(key))
}

// Add stores value under key, replacing any previous entry.
func (c *LocalCache[K, V]) Add(key K, value V) {
	entry := NewEntry(c.clock, value)
	entry.Touch(c.clock.Now())

	c.items.Set(c.normalize(key), entry)
	c.stats.Incr(stats.StatAdds, 1)
	c.checkCapacity()
}

// Set is an alias of Add.
func (c *LocalCache[K, V]) Set(key K, value V) { c.Add(key, value) }

// AddFunc stores the value produced by factory under key, replacing any
// previous entry. The factory error is returned unchanged and nothing is stored.
func (c *LocalCache[K, V]) AddFunc(key K, factory func() (V, error)) error {
	if factory == nil {
		return ewrap.Wrap(sentinel.ErrNilFactory, "add")
	}

	entry, err := c.timed(func() (*Entry[V], error) { return NewEntryFunc(c.clock, factory) })
	if err != nil {
		return err
	}

	entry.Touch(c.clock.Now())

	c.items.Set(c.normalize(key), entry)
	c.stats.Incr(stats.StatAdds, 1)
	c.checkCapacity()

	return nil
}

// Get returns the value stored under key, producing it with factory, or with
// the default factory when factory is nil, if it is missing.
//
// Dirtiness is checked after the lookup: a dirty entry, even one another caller
// inserted a moment before, is replaced by a freshly produced one. Two callers
// missing the same key concurrently may both run the factory unless the cache
// was built WithSingleFlight. A factory error is returned unchanged.
func (c *LocalCache[K, V]) Get(key K, factory func(K) (V, error)) (V, error) {
	var zero V

	if factory == nil {
		factory = c.factory
	}

	if factory == nil {
		return zero, ewrap.Wrap(sentinel.ErrNilFactory, "get")
	}

	key = c.normalize(key)

	entry, loaded, err := c.items.GetOrCreate(key, func() (*Entry[V], error) {
		return c.produce(key, factory)
	})
	if err != nil {
		return zero, err
	}

	if loaded {
		c.stats.Incr(stats.StatHits, 1)
	} else {
		c.stats.Incr(stats.StatMisses, 1)
		c.stats.Incr(stats.StatAdds, 1)
	}

	now := c.clock.Now()
	if entry.IsDirty(now, c.policy.TimeToLive, c.policy.SlidingExpiration) {
		c.stats.Incr(stats.StatExpirations, 1)

		entry, err = c.produce(key, factory)
		if err != nil {
			return zero, err
		}

		c.items.Set(key, entry)
		c.stats.Incr(stats.StatAdds, 1)
		now = c.clock.Now()
	}

	entry.Touch(now)
	c.checkCapacity()

	return entry.Value(), nil
}

// Remove deletes key and reports whether an entry was removed.
func (c *LocalCache[K, V]) Remove(key K) bool {
	_, ok := c.items.Pop(c.normalize(key))
	if ok {
		c.stats.Incr(stats.StatRemovals, 1)
	}

	return ok
}

// Clear removes every entry.
func (c *LocalCache[K, V]) Clear() {
	c.items.Clear()
}

// Keys returns the stored keys, expired ones not yet swept included.
func (c *LocalCache[K, V]) Keys() []K {
	return c.items.Keys()
}

// Snapshot returns a view of every stored entry without touching them.
func (c *LocalCache[K, V]) Snapshot() []Item[K, V] {
	tuples := c.items.Snapshot()
	out := make([]Item[K, V], 0, len(tuples))

	for _, t := range tuples {
		out = append(out, Item[K, V]{
			Key:           t.Key,
			Value:         t.Val.Value(),
			CreatedAt:     t.Val.CreatedAt(),
			LastTouchedAt: t.Val.LastTouchedAt(),
			AccessCount:   t.Val.AccessCount(),
			Production:    t.Val.ProductionDuration(),
		})
	}

	return out
}

// produce builds an entry for key, through the single-flight group when enabled.
func (c *LocalCache[K, V]) produce(key K, factory func(K) (V, error)) (*Entry[V], error) {
	build := func() (*Entry[V], error) { return NewKeyedEntry(c.clock, key, factory) }

	if !c.singleFlight {
		return c.timed(build)
	}

	shared, err, _ := c.flight.Do(flightKey(key), func() (any, error) {
		return c.timed(build)
	})
	if err != nil {
		return nil, err
	}

	entry, _ := shared.(*Entry[V])

	return entry, nil
}

// timed runs build and records the production stats.
func (c *LocalCache[K, V]) timed(build func() (*Entry[V], error)) (*Entry[V], error) {
	start := time.Now()
	entry, err := build()

	c.stats.Incr(stats.StatProductions, 1)
	c.stats.Timing(stats.StatProductionTime, time.Since(start).Nanoseconds())

	return entry, err
}

func flightKey[K comparable](key K) string {
	if s, ok := any(key).(string); ok {
		return s
	}

	return fmt.Sprintf("%#v", key)
}

func same[V any](entry *Entry[V]) func(*Entry[V]) bool {
	return func(current *Entry[V]) bool { return current == entry }
}
