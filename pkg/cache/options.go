package cache

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyp3rd/lexcache/internal/constants"
	"github.com/hyp3rd/lexcache/pkg/stats"
)

// Policy groups the sizing and lifetime parameters of a cache. Zero fields
// select the defaults; out of range values are clamped by New.
type Policy struct {
	// Capacity is the soft bound on the number of entries.
	Capacity int `json:"capacity" mapstructure:"capacity"`
	// TimeToLive is the absolute lifetime of an entry.
	TimeToLive time.Duration `json:"ttl" mapstructure:"ttl"`
	// SlidingExpiration is the longest an entry may stay untouched. Defaults to TimeToLive.
	SlidingExpiration time.Duration `json:"sliding_expiration" mapstructure:"sliding_expiration"`
	// GrowFactor is how many times the capacity may double instead of evicting.
	GrowFactor int `json:"grow_factor" mapstructure:"grow_factor"`
	// ConcurrencyLevel sizes the backing store shards. Defaults to 4 x NumCPU.
	ConcurrencyLevel int `json:"concurrency_level" mapstructure:"concurrency_level"`
}

// Normalize returns the policy with defaults applied and bounds enforced.
func (p Policy) Normalize() Policy {
	switch {
	case p.Capacity == 0:
		p.Capacity = constants.DefaultCapacity
	default:
		p.Capacity = min(max(p.Capacity, constants.MinCapacity), constants.MaxCapacity)
	}

	if p.TimeToLive <= 0 {
		p.TimeToLive = constants.DefaultTimeToLive
	}

	p.TimeToLive = clampLifetime(p.TimeToLive)

	if p.SlidingExpiration <= 0 {
		p.SlidingExpiration = p.TimeToLive
	}

	p.SlidingExpiration = clampLifetime(p.SlidingExpiration)

	p.GrowFactor = max(p.GrowFactor, 0)

	if p.ConcurrencyLevel <= 0 {
		p.ConcurrencyLevel = constants.ConcurrencyPerCPU * runtime.NumCPU()
	}

	p.ConcurrencyLevel = min(p.ConcurrencyLevel, constants.MaxShards)

	return p
}

func clampLifetime(d time.Duration) time.Duration {
	return min(max(d, constants.MinTimeToLive), constants.MaxTimeToLive)
}

// Option is a function type that can be used to configure a LocalCache.
type Option[K comparable, V any] func(*LocalCache[K, V])

// WithName sets the name used in diagnostics.
func WithName[K comparable, V any](name string) Option[K, V] {
	return func(c *LocalCache[K, V]) {
		c.name = name
	}
}

// WithPolicy replaces the whole policy.
func WithPolicy[K comparable, V any](policy Policy) Option[K, V] {
	return func(c *LocalCache[K, V]) {
		c.policy = policy
	}
}

// WithCapacity sets the soft capacity, clamped to [31, 131072].
func WithCapacity[K comparable, V any](capacity int) Option[K, V] {
	return func(c *LocalCache[K, V]) {
		c.policy.Capacity = capacity
	}
}

// WithTimeToLive sets the absolute entry lifetime, clamped to [1s, 24h].
func WithTimeToLive[K comparable, V any](ttl time.Duration) Option[K, V] {
	return func(c *LocalCache[K, V]) {
		c.policy.TimeToLive = ttl
	}
}

// WithSlidingExpiration sets the maximum idle time, clamped to [1s, 24h].
func WithSlidingExpiration[K comparable, V any](sliding time.Duration) Option[K, V] {
	return func(c *LocalCache[K, V]) {
		c.policy.SlidingExpiration = sliding
	}
}

// WithGrowFactor sets how many times the capacity may double before the cache starts evicting.
func WithGrowFactor[K comparable, V any](growFactor int) Option[K, V] {
	return func(c *LocalCache[K, V]) {
		c.policy.GrowFactor = growFactor
	}
}

// WithConcurrencyLevel sizes the backing store for the expected number of concurrent writers.
func WithConcurrencyLevel[K comparable, V any](level int) Option[K, V] {
	return func(c *LocalCache[K, V]) {
		c.policy.ConcurrencyLevel = level
	}
}

// WithFactory sets the default factory used by Get when the caller supplies none.
func WithFactory[K comparable, V any](factory func(K) (V, error)) Option[K, V] {
	return func(c *LocalCache[K, V]) {
		c.factory = factory
	}
}

// WithKeyNormalizer sets the function mapping keys to their canonical form, the
// equivalent of a custom equality comparer: keys with the same canonical form
// address the same entry. A nil normalizer makes New fail.
func WithKeyNormalizer[K comparable, V any](normalize func(K) K) Option[K, V] {
	return func(c *LocalCache[K, V]) {
		c.normalize = normalize
	}
}

// WithClock sets the time source.
func WithClock[K comparable, V any](clock Clock) Option[K, V] {
	return func(c *LocalCache[K, V]) {
		c.clock = clock
	}
}

// WithLogger sets the logger receiving the trace diagnostics.
func WithLogger[K comparable, V any](logger zerolog.Logger) Option[K, V] {
	return func(c *LocalCache[K, V]) {
		c.logger = logger
	}
}

// WithStatsCollector sets the collector recording cache events.
func WithStatsCollector[K comparable, V any](collector stats.ICollector) Option[K, V] {
	return func(c *LocalCache[K, V]) {
		c.stats = collector
	}
}

// WithSingleFlight coalesces concurrent productions of the same key, so a
// burst of misses runs the factory once.
func WithSingleFlight[K comparable, V any]() Option[K, V] {
	return func(c *LocalCache[K, V]) {
		c.singleFlight = true
	}
}
