// Package loader turns remote stores into cache factories.
//
// A Redis loader reads a missing key from redis when a LocalCache needs to
// produce it, so the cache acts as a read-through layer in front of redis:
//
//	users, _ := loader.NewRedis[User](client, loader.WithPrefix("users:"))
//	local, _ := cache.New(cache.WithFactory(users.Load))
package loader

import (
	"context"
	"errors"
	"time"

	"github.com/hyp3rd/ewrap"
	"github.com/redis/go-redis/v9"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/hyp3rd/lexcache/internal/constants"
	"github.com/hyp3rd/lexcache/internal/libs/serializer"
	"github.com/hyp3rd/lexcache/internal/sentinel"
	"github.com/hyp3rd/lexcache/pkg/cache"
)

// Client is the part of the go-redis API the loader uses; *redis.Client,
// *redis.ClusterClient and *redis.Ring all satisfy it.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Redis loads values of type V stored under a key prefix.
type Redis[V any] struct {
	client     Client
	prefix     string
	serializer serializer.ISerializer
	timeout    time.Duration
	base       context.Context //nolint:containedctx
}

type settings struct {
	prefix     string
	serializer string
	timeout    time.Duration
	base       context.Context //nolint:containedctx
}

// Option configures a Redis loader.
type Option func(*settings)

// WithPrefix sets the prefix prepended to every key.
func WithPrefix(prefix string) Option {
	return func(s *settings) {
		s.prefix = prefix
	}
}

// WithSerializer selects the codec by name: "msgpack" (default), "json" or "cbor".
func WithSerializer(name string) Option {
	return func(s *settings) {
		s.serializer = name
	}
}

// WithTimeout bounds each load.
func WithTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		s.timeout = timeout
	}
}

// WithBaseContext sets the context loads derive from. Canceling it aborts
// every load in flight.
func WithBaseContext(ctx context.Context) Option {
	return func(s *settings) {
		s.base = ctx
	}
}

// NewRedis creates a loader over client.
func NewRedis[V any](client Client, options ...Option) (*Redis[V], error) {
	if client == nil {
		return nil, ewrap.Wrap(sentinel.ErrNilClient, "redis loader")
	}

	s := settings{
		prefix:     constants.RedisKeyPrefix,
		serializer: serializer.Msgpack,
		timeout:    constants.RedisLoadTimeout,
		base:       context.Background(),
	}

	for _, option := range options {
		option(&s)
	}

	codec, err := serializer.New(s.serializer)
	if err != nil {
		return nil, err
	}

	return &Redis[V]{
		client:     client,
		prefix:     s.prefix,
		serializer: codec,
		timeout:    s.timeout,
		base:       s.base,
	}, nil
}

// Load reads key from redis. A missing key yields sentinel.ErrKeyNotFound.
// Its signature matches a LocalCache factory.
func (r *Redis[V]) Load(key string) (V, error) {
	var value V

	ctx, cancel := context.WithTimeout(r.base, r.timeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return value, ewrap.Wrap(sentinel.ErrKeyNotFound, key)
	}

	if err != nil {
		return value, ewrap.Wrap(err, "redis get")
	}

	if err := r.serializer.Unmarshal(data, &value); err != nil {
		return value, ewrap.Wrap(err, "decoding "+key)
	}

	return value, nil
}

// Store writes value under key with the given expiration; zero keeps it forever.
func (r *Redis[V]) Store(ctx context.Context, key string, value V, expiration time.Duration) error {
	data, err := r.serializer.Marshal(value)
	if err != nil {
		return ewrap.Wrap(err, "encoding "+key)
	}

	if err := r.client.Set(ctx, r.prefix+key, data, expiration).Err(); err != nil {
		return ewrap.Wrap(err, "redis set")
	}

	return nil
}

// Warm loads keys into local, replacing what it holds, with at most
// concurrency loads in flight. Keys missing from redis are skipped; the first
// other error is returned once the loads already started are done.
func (r *Redis[V]) Warm(local *cache.LocalCache[string, V], concurrency int, keys ...string) (int, error) {
	var (
		group  errgroup.Group
		loaded atomic.Int64
	)

	group.SetLimit(max(concurrency, 1))

	for _, key := range keys {
		group.Go(func() error {
			err := local.AddFunc(key, func() (V, error) { return r.Load(key) })
			if errors.Is(err, sentinel.ErrKeyNotFound) {
				return nil
			}

			if err != nil {
				return err
			}

			loaded.Inc()

			return nil
		})
	}

	err := group.Wait()

	return int(loaded.Load()), err
}
