// Package stats collects cache statistics. Collectors aggregate every recorded
// value per stat name (count, sum, min, max) without retaining the individual
// samples, so they can sit on the hot path of a cache.
package stats

// Stat names a statistic recorded by a collector.
type Stat string

// String returns the string representation of a Stat.
func (s Stat) String() string {
	return string(s)
}

// Stats recorded by every local cache.
const (
	// StatHits counts reads served from the cache.
	StatHits Stat = "hits"
	// StatMisses counts reads that found nothing usable.
	StatMisses Stat = "misses"
	// StatAdds counts entries written by Add and by factory production.
	StatAdds Stat = "adds"
	// StatRemovals counts explicit removals.
	StatRemovals Stat = "removals"
	// StatExpirations counts entries discarded because they were dirty.
	StatExpirations Stat = "expirations"
	// StatEvictions counts entries removed by the capacity check.
	StatEvictions Stat = "evictions"
	// StatGrowths counts capacity doublings.
	StatGrowths Stat = "growths"
	// StatProductions counts factory invocations.
	StatProductions Stat = "productions"
	// StatProductionTime records factory latency in nanoseconds.
	StatProductionTime Stat = "production_ns"
)

// Aggregate is the summary of the values recorded for one stat.
type Aggregate struct {
	Count int64   `json:"count"`
	Sum   int64   `json:"sum"`
	Min   int64   `json:"min"`
	Max   int64   `json:"max"`
	Mean  float64 `json:"mean"`
}

// Stats maps stat names to their aggregates.
type Stats map[string]*Aggregate

// Sum returns the sum recorded for stat, 0 when nothing was recorded.
func (s Stats) Sum(stat Stat) int64 {
	if agg, ok := s[stat.String()]; ok {
		return agg.Sum
	}

	return 0
}

// ICollector is an interface that defines the methods that a stats collector should implement.
type ICollector interface {
	// Incr increments the count of a statistic by the given value.
	Incr(stat Stat, value int64)
	// Timing records the time, in nanoseconds, it took for an event to occur.
	Timing(stat Stat, value int64)
	// GetStats returns the collected statistics.
	GetStats() Stats
}

// NopCollector discards everything.
type NopCollector struct{}

// Incr does nothing.
func (NopCollector) Incr(Stat, int64) {}

// Timing does nothing.
func (NopCollector) Timing(Stat, int64) {}

// GetStats returns an empty Stats.
func (NopCollector) GetStats() Stats { return Stats{} }

// MultiCollector fans every record out to several collectors.
type MultiCollector []ICollector

// Multi returns a collector recording into all the given collectors.
// GetStats is answered by the first one.
func Multi(collectors ...ICollector) MultiCollector {
	return MultiCollector(collectors)
}

// Incr increments stat on every collector.
func (m MultiCollector) Incr(stat Stat, value int64) {
	for _, c := range m {
		c.Incr(stat, value)
	}
}

// Timing records the timing on every collector.
func (m MultiCollector) Timing(stat Stat, value int64) {
	for _, c := range m {
		c.Timing(stat, value)
	}
}

// GetStats returns the stats of the first collector.
func (m MultiCollector) GetStats() Stats {
	if len(m) == 0 {
		return Stats{}
	}

	return m[0].GetStats()
}
