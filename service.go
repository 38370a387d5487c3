package lexcache

import (
	"context"

	"github.com/hyp3rd/lexcache/pkg/stats"
)

// Factory produces the value of a missing key.
type Factory func(key string) (any, error)

// Service is the service interface for a lexcache Cache.
// It enables middleware to be added to the service.
type Service interface {
	crud
	// Capacity returns the current soft capacity of the cache
	Capacity() int
	// Count returns the number of items in the cache
	Count(ctx context.Context) int
	// GetStats returns the stats of the cache
	GetStats() stats.Stats
}

type crud interface {
	// Get retrieves a value from the cache using the key
	Get(ctx context.Context, key string) (value any, ok bool)
	// Set stores a value in the cache using the key
	Set(ctx context.Context, key string, value any) error
	// GetOrSet retrieves a value from the cache using the key; if the key is missing or expired,
	// the value produced by factory is stored and returned
	GetOrSet(ctx context.Context, key string, factory Factory) (any, error)
	// Contains reports whether the key is stored, expired or not
	Contains(ctx context.Context, key string) bool
	// Remove removes values from the cache using the keys
	Remove(ctx context.Context, keys ...string) error
	// Clear removes all values from the cache
	Clear(ctx context.Context) error
}

// Middleware describes a service middleware.
type Middleware func(Service) Service

// ApplyMiddleware applies middlewares to a service.
func ApplyMiddleware(svc Service, mw ...Middleware) Service {
	// Apply each middleware in the chain
	for _, m := range mw {
		svc = m(svc)
	}
	// Return the decorated service
	return svc
}
