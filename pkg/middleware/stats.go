// Package middleware provides various middleware implementations for the lexcache service.
// This package includes stats middleware that collects and reports cache operation statistics.
package middleware

import (
	"context"
	"time"

	"github.com/hyp3rd/lexcache"
	"github.com/hyp3rd/lexcache/pkg/stats"
)

// Stats recorded by the stats middleware.
const (
	StatGetDuration      stats.Stat = "lexcache_get_duration"
	StatGetCount         stats.Stat = "lexcache_get_count"
	StatSetDuration      stats.Stat = "lexcache_set_duration"
	StatSetCount         stats.Stat = "lexcache_set_count"
	StatGetOrSetDuration stats.Stat = "lexcache_get_or_set_duration"
	StatGetOrSetCount    stats.Stat = "lexcache_get_or_set_count"
	StatContainsDuration stats.Stat = "lexcache_contains_duration"
	StatContainsCount    stats.Stat = "lexcache_contains_count"
	StatRemoveDuration   stats.Stat = "lexcache_remove_duration"
	StatRemoveCount      stats.Stat = "lexcache_remove_count"
	StatClearDuration    stats.Stat = "lexcache_clear_duration"
	StatClearCount       stats.Stat = "lexcache_clear_count"
)

// StatsCollectorMiddleware is a middleware that collects stats. It can and should re-use the same stats collector as the cache.
// Must implement the lexcache.Service interface.
type StatsCollectorMiddleware struct {
	next           lexcache.Service
	statsCollector stats.ICollector
}

// NewStatsCollectorMiddleware returns a new StatsCollectorMiddleware.
func NewStatsCollectorMiddleware(next lexcache.Service, statsCollector stats.ICollector) lexcache.Service {
	return &StatsCollectorMiddleware{next: next, statsCollector: statsCollector}
}

// Get collects stats for the Get method.
func (mw StatsCollectorMiddleware) Get(ctx context.Context, key string) (any, bool) {
	defer mw.record(StatGetDuration, StatGetCount, time.Now())

	return mw.next.Get(ctx, key)
}

// Set collects stats for the Set method.
func (mw StatsCollectorMiddleware) Set(ctx context.Context, key string, value any) error {
	defer mw.record(StatSetDuration, StatSetCount, time.Now())

	return mw.next.Set(ctx, key, value)
}

// GetOrSet collects stats for the GetOrSet method.
func (mw StatsCollectorMiddleware) GetOrSet(ctx context.Context, key string, factory lexcache.Factory) (any, error) {
	defer mw.record(StatGetOrSetDuration, StatGetOrSetCount, time.Now())

	return mw.next.GetOrSet(ctx, key, factory)
}

// Contains collects stats for the Contains method.
func (mw StatsCollectorMiddleware) Contains(ctx context.Context, key string) bool {
	defer mw.record(StatContainsDuration, StatContainsCount, time.Now())

	return mw.next.Contains(ctx, key)
}

// Remove collects stats for the Remove method.
func (mw StatsCollectorMiddleware) Remove(ctx context.Context, keys ...string) error {
	defer mw.record(StatRemoveDuration, StatRemoveCount, time.Now())

	return mw.next.Remove(ctx, keys...)
}

// Clear collects stats for the Clear method.
func (mw StatsCollectorMiddleware) Clear(ctx context.Context) error {
	defer mw.record(StatClearDuration, StatClearCount, time.Now())

	return mw.next.Clear(ctx)
}

// Capacity returns the capacity of the cache.
func (mw StatsCollectorMiddleware) Capacity() int {
	return mw.next.Capacity()
}

// Count returns the number of items in the cache.
func (mw StatsCollectorMiddleware) Count(ctx context.Context) int {
	return mw.next.Count(ctx)
}

// GetStats returns the stats collected by the middleware.
func (mw StatsCollectorMiddleware) GetStats() stats.Stats {
	return mw.statsCollector.GetStats()
}

func (mw StatsCollectorMiddleware) record(duration, count stats.Stat, start time.Time) {
	mw.statsCollector.Timing(duration, time.Since(start).Nanoseconds())
	mw.statsCollector.Incr(count, 1)
}
