// Package registry keeps named cache collections.
//
// A collection is defined once with its policy and built on first use. The
// built instance is kept for the collection TTL, so every resolve within that
// window returns the same LocalCache; once it lapses the next resolve builds a
// fresh, empty one.
//
// Live collections are themselves held in a LocalCache whose capacity can grow
// up to the maximum cache capacity. Past that many live collections the least
// used ones are evicted early and rebuilt empty on their next resolve.
package registry

import (
	"slices"
	"sync"
	"time"

	"github.com/hyp3rd/ewrap"
	"github.com/rs/zerolog"

	"github.com/hyp3rd/lexcache/internal/constants"
	"github.com/hyp3rd/lexcache/internal/sentinel"
	"github.com/hyp3rd/lexcache/pkg/cache"
	"github.com/hyp3rd/lexcache/pkg/stats"
)

// Registry maps collection names to lazily built caches.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]definition

	live *cache.LocalCache[string, cache.Inspector]

	ttl      time.Duration
	clock    cache.Clock
	logger   zerolog.Logger
	newStats func(name string) stats.ICollector
}

type definition struct {
	policy cache.Policy
	build  func() (cache.Inspector, error)
}

// Option configures a Registry.
type Option func(*Registry)

// WithCollectionTTL sets how long a built collection is kept.
func WithCollectionTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		r.ttl = ttl
	}
}

// WithClock sets the time source of the registry and of every collection it builds.
func WithClock(clock cache.Clock) Option {
	return func(r *Registry) {
		r.clock = clock
	}
}

// WithLogger sets the logger handed to the collections.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithStatsFactory sets the function creating the stats collector of each collection.
func WithStatsFactory(newStats func(name string) stats.ICollector) Option {
	return func(r *Registry) {
		r.newStats = newStats
	}
}

// New creates an empty registry.
func New(options ...Option) (*Registry, error) {
	r := &Registry{
		definitions: make(map[string]definition),
		ttl:         constants.DefaultCollectionTTL,
		clock:       cache.SystemClock(),
		logger:      zerolog.Nop(),
		newStats:    func(string) stats.ICollector { return stats.NewCollector() },
	}

	for _, option := range options {
		option(r)
	}

	if r.ttl <= 0 {
		r.ttl = constants.DefaultCollectionTTL
	}

	live, err := cache.New(
		cache.WithName[string, cache.Inspector]("collections"),
		cache.WithPolicy[string, cache.Inspector](cache.Policy{
			Capacity:   constants.DefaultCollectionCapacity,
			GrowFactor: constants.DefaultCollectionGrowFactor,
			TimeToLive: r.ttl,
		}),
		cache.WithClock[string, cache.Inspector](r.clock),
		cache.WithLogger[string, cache.Inspector](r.logger),
		cache.WithFactory(r.build),
	)
	if err != nil {
		return nil, ewrap.Wrap(err, "creating collection cache")
	}

	r.live = live

	return r, nil
}

// CollectionTTL returns how long a built collection is kept.
func (r *Registry) CollectionTTL() time.Duration { return r.live.TimeToLive() }

// Define registers the collection name with key type K and value type V.
// Redefining a name drops the instance built from the previous definition.
func Define[K comparable, V any](r *Registry, name string, policy cache.Policy, options ...cache.Option[K, V]) error {
	if name == "" {
		return ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "name")
	}

	build := func() (cache.Inspector, error) {
		base := []cache.Option[K, V]{
			cache.WithName[K, V](name),
			cache.WithPolicy[K, V](policy),
			cache.WithClock[K, V](r.clock),
			cache.WithLogger[K, V](r.logger.With().Str("collection", name).Logger()),
			cache.WithStatsCollector[K, V](r.newStats(name)),
		}

		return cache.New(append(base, options...)...)
	}

	// Resolve holds the read lock while building, so no instance of the old
	// definition can land after the removal.
	r.mu.Lock()
	defer r.mu.Unlock()

	r.definitions[name] = definition{policy: policy, build: build}
	r.live.Remove(name)

	return nil
}

// Resolve returns the collection name, building it if needed. K and V must
// match the types it was defined with.
func Resolve[K comparable, V any](r *Registry, name string) (*cache.LocalCache[K, V], error) {
	if name == "" {
		return nil, ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "name")
	}

	r.mu.RLock()
	inspector, err := r.live.Get(name, nil)
	r.mu.RUnlock()

	if err != nil {
		return nil, err
	}

	collection, ok := inspector.(*cache.LocalCache[K, V])
	if !ok {
		return nil, ewrap.Wrapf(sentinel.ErrCollectionTypeMismatch, "collection %q holds %T", name, inspector)
	}

	return collection, nil
}

// Lookup returns the built collection name without building it.
func (r *Registry) Lookup(name string) (cache.Inspector, bool) {
	return r.live.TryGet(name)
}

// Policy returns the policy a collection was defined with.
func (r *Registry) Policy(name string) (cache.Policy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.definitions[name]

	return def.policy, ok
}

// Names returns the defined collection names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.definitions))

	for name := range r.definitions {
		names = append(names, name)
	}
	r.mu.RUnlock()

	slices.Sort(names)

	return names
}

// Forget drops the built instance of a collection; its definition stays.
func (r *Registry) Forget(name string) bool {
	return r.live.Remove(name)
}

// build is the factory of the live cache. Resolve calls it with r.mu held.
func (r *Registry) build(name string) (cache.Inspector, error) {
	def, ok := r.definitions[name]

	if !ok {
		return nil, ewrap.Wrap(sentinel.ErrCollectionNotDefined, name)
	}

	r.logger.Debug().Str("collection", name).Msg("building collection")

	return def.build()
}
