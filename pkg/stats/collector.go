package stats

import (
	"math"
	"sync"

	"go.uber.org/atomic"
)

// aggregate holds the running summary of one stat.
type aggregate struct {
	count atomic.Int64
	sum   atomic.Int64
	min   atomic.Int64
	max   atomic.Int64
}

func newAggregate() *aggregate {
	agg := &aggregate{}
	agg.min.Store(math.MaxInt64)
	agg.max.Store(math.MinInt64)

	return agg
}

func (a *aggregate) record(value int64) {
	a.count.Inc()
	a.sum.Add(value)

	for {
		cur := a.min.Load()
		if value >= cur || a.min.CompareAndSwap(cur, value) {
			break
		}
	}

	for {
		cur := a.max.Load()
		if value <= cur || a.max.CompareAndSwap(cur, value) {
			break
		}
	}
}

func (a *aggregate) snapshot() *Aggregate {
	out := &Aggregate{
		Count: a.count.Load(),
		Sum:   a.sum.Load(),
		Min:   a.min.Load(),
		Max:   a.max.Load(),
	}
	if out.Count == 0 {
		out.Min, out.Max = 0, 0

		return out
	}

	out.Mean = float64(out.Sum) / float64(out.Count)

	return out
}

// Collector is a lock-light stats collector. Aggregates are created on first use
// and then updated with atomics only.
type Collector struct {
	mu    sync.RWMutex // guards the aggregates map, not the aggregates
	stats map[Stat]*aggregate
}

// NewCollector creates a new stats collector.
func NewCollector() *Collector {
	return &Collector{
		stats: make(map[Stat]*aggregate),
	}
}

// Incr increments the count of a statistic by the given value.
func (c *Collector) Incr(stat Stat, value int64) {
	c.get(stat).record(value)
}

// Timing records the time it took for an event to occur.
func (c *Collector) Timing(stat Stat, value int64) {
	c.get(stat).record(value)
}

// GetStats returns a copy of the collected statistics.
func (c *Collector) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(Stats, len(c.stats))
	for stat, agg := range c.stats {
		out[stat.String()] = agg.snapshot()
	}

	return out
}

// Reset drops every aggregate.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats = make(map[Stat]*aggregate)
}

func (c *Collector) get(stat Stat) *aggregate {
	c.mu.RLock()
	agg, ok := c.stats[stat]
	c.mu.RUnlock()

	if ok {
		return agg
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	agg, ok = c.stats[stat]
	if !ok {
		agg = newAggregate()
		c.stats[stat] = agg
	}

	return agg
}
