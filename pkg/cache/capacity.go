package cache

import (
	"slices"
	"time"

	"github.com/hyp3rd/lexcache/internal/constants"
	"github.com/hyp3rd/lexcache/pkg/stats"
)

// candidate is a surviving entry with its rank frozen at sweep time.
type candidate[K comparable, V any] struct {
	key   K
	entry *Entry[V]
	rank  rank
}

// checkCapacity brings the entry count back under the soft capacity.
//
// One caller sweeps at a time; the others return at once. The sweeper keeps
// going until the count fits, and re-checks after releasing the flag so inserts
// that skipped the check during its last pass are not left behind.
func (c *LocalCache[K, V]) checkCapacity() {
	for c.items.Count() > c.Capacity() {
		if !c.sweeping.CompareAndSwap(false, true) {
			return
		}

		c.sweep()
		c.sweeping.Store(false)
	}
}

// sweep runs one pass over a snapshot.
//
// Dirty entries go first. If the survivors still exceed three quarters of the
// snapshot, the capacity is doubled while the grow budget lasts; otherwise the
// least valuable survivors are evicted down to that mark.
func (c *LocalCache[K, V]) sweep() {
	now := c.clock.Now()
	snapshot := c.items.Snapshot()

	n0 := len(snapshot)
	if n0 <= c.Capacity() {
		return
	}

	survivors := make([]candidate[K, V], 0, n0)
	expired := 0

	for _, t := range snapshot {
		if t.Val.IsDirty(now, c.policy.TimeToLive, c.policy.SlidingExpiration) {
			if c.items.RemoveIf(t.Key, same(t.Val)) {
				expired++
			}

			continue
		}

		survivors = append(survivors, candidate[K, V]{key: t.Key, entry: t.Val, rank: t.Val.rank()})
	}

	if expired > 0 {
		c.stats.Incr(stats.StatExpirations, int64(expired))
	}

	n1 := n0 * 3 / 4
	if len(survivors) <= n1 {
		return
	}

	if c.grow() {
		return
	}

	c.evict(survivors, n1, now.Add(-c.policy.TimeToLive))
}

// grow doubles the capacity and consumes one unit of the grow budget.
// It fails when the budget is spent or the capacity is already at its maximum.
func (c *LocalCache[K, V]) grow() bool {
	for {
		factor := c.growFactor.Load()
		if factor <= 0 {
			return false
		}

		capacity := c.capacity.Load()
		if capacity >= constants.MaxCapacity {
			return false
		}

		if !c.growFactor.CompareAndSwap(factor, factor-1) {
			continue
		}

		grown := min(capacity*2, constants.MaxCapacity)
		c.capacity.Store(grown)
		c.stats.Incr(stats.StatGrowths, 1)

		c.logger.Trace().
			Str("cache", c.name).
			Int64("capacity", grown).
			Int64("grow_factor", factor-1).
			Msg("cache capacity doubled")

		return true
	}
}

// evict removes the lowest ranked survivors until n1 of them remain.
func (c *LocalCache[K, V]) evict(survivors []candidate[K, V], n1 int, bound time.Time) {
	limit := bound.UnixNano()

	slices.SortFunc(survivors, func(a, b candidate[K, V]) int {
		return a.rank.compare(b.rank, limit)
	})

	evicted := 0

	for _, s := range survivors[:len(survivors)-n1] {
		if c.items.RemoveIf(s.key, same(s.entry)) {
			evicted++
		}
	}

	c.stats.Incr(stats.StatEvictions, int64(evicted))

	c.logger.Trace().
		Str("cache", c.name).
		Int("capacity", c.Capacity()).
		Int("evicted", evicted).
		Int("remaining", c.items.Count()).
		Msg("cache entries evicted")
}
