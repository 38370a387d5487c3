// Package middleware provides various middleware implementations for the lexcache service.
// This package includes logging middleware that wraps the lexcache service to provide
// execution time logging and method call tracing for debugging and monitoring purposes.
package middleware

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyp3rd/lexcache"
	"github.com/hyp3rd/lexcache/pkg/stats"
)

// LoggingMiddleware is a middleware that logs the time it takes to execute the next middleware.
// Must implement the lexcache.Service interface.
type LoggingMiddleware struct {
	next   lexcache.Service
	logger zerolog.Logger
}

// NewLoggingMiddleware returns a new LoggingMiddleware. Calls are logged at debug level.
func NewLoggingMiddleware(next lexcache.Service, logger zerolog.Logger) lexcache.Service {
	return &LoggingMiddleware{next: next, logger: logger}
}

// Get logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) Get(ctx context.Context, key string) (any, bool) {
	begin := time.Now()
	value, ok := mw.next.Get(ctx, key)

	mw.logger.Debug().Str("method", "Get").Str("key", key).Bool("hit", ok).Dur("took", time.Since(begin)).Send()

	return value, ok
}

// Set logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) Set(ctx context.Context, key string, value any) error {
	begin := time.Now()
	err := mw.next.Set(ctx, key, value)

	mw.logger.Debug().Str("method", "Set").Str("key", key).Err(err).Dur("took", time.Since(begin)).Send()

	return err
}

// GetOrSet logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) GetOrSet(ctx context.Context, key string, factory lexcache.Factory) (any, error) {
	begin := time.Now()
	value, err := mw.next.GetOrSet(ctx, key, factory)

	mw.logger.Debug().Str("method", "GetOrSet").Str("key", key).Err(err).Dur("took", time.Since(begin)).Send()

	return value, err
}

// Contains logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) Contains(ctx context.Context, key string) bool {
	begin := time.Now()
	ok := mw.next.Contains(ctx, key)

	mw.logger.Debug().Str("method", "Contains").Str("key", key).Bool("found", ok).Dur("took", time.Since(begin)).Send()

	return ok
}

// Remove logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) Remove(ctx context.Context, keys ...string) error {
	begin := time.Now()
	err := mw.next.Remove(ctx, keys...)

	mw.logger.Debug().Str("method", "Remove").Strs("keys", keys).Err(err).Dur("took", time.Since(begin)).Send()

	return err
}

// Clear logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) Clear(ctx context.Context) error {
	begin := time.Now()
	err := mw.next.Clear(ctx)

	mw.logger.Debug().Str("method", "Clear").Err(err).Dur("took", time.Since(begin)).Send()

	return err
}

// Capacity takes to execute the next middleware.
func (mw LoggingMiddleware) Capacity() int {
	return mw.next.Capacity()
}

// Count takes to execute the next middleware.
func (mw LoggingMiddleware) Count(ctx context.Context) int {
	return mw.next.Count(ctx)
}

// GetStats takes to execute the next middleware.
func (mw LoggingMiddleware) GetStats() stats.Stats {
	return mw.next.GetStats()
}
