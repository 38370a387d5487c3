package cache

import (
	"cmp"
	"math"
	"time"

	"go.uber.org/atomic"

	"github.com/hyp3rd/lexcache/internal/constants"
)

// Entry is a cached value plus the bookkeeping used by expiry and eviction.
// The value never changes once the entry is built. Touch data is kept in relaxed
// atomics: concurrent touches may lose increments, which eviction tolerates.
type Entry[V any] struct {
	value      V
	createdAt  int64         // unix nanoseconds
	production time.Duration // weighted factory latency

	touchedAt   atomic.Int64 // unix nanoseconds
	accessCount atomic.Uint64
}

// NewEntry builds an entry holding value.
func NewEntry[V any](clock Clock, value V) *Entry[V] {
	e := &Entry[V]{value: value}
	e.stamp(clock.Now())

	return e
}

// NewEntryFunc builds an entry from the value produced by factory.
// The weighted production time is recorded and the creation time is taken after
// the factory returns. A factory error is returned as is and no entry is built.
func NewEntryFunc[V any](clock Clock, factory func() (V, error)) (*Entry[V], error) {
	start := clock.Now()

	value, err := factory()
	if err != nil {
		return nil, err
	}

	now := clock.Now()
	e := &Entry[V]{
		value:      value,
		production: now.Sub(start) * constants.ProductionWeight,
	}
	e.stamp(now)

	return e, nil
}

// NewKeyedEntry is NewEntryFunc for factories that need the key.
func NewKeyedEntry[K any, V any](clock Clock, key K, factory func(K) (V, error)) (*Entry[V], error) {
	return NewEntryFunc(clock, func() (V, error) { return factory(key) })
}

func (e *Entry[V]) stamp(now time.Time) {
	e.createdAt = now.UnixNano()
	e.touchedAt.Store(e.createdAt)
}

// Value returns the cached value.
func (e *Entry[V]) Value() V { return e.value }

// CreatedAt returns the creation time.
func (e *Entry[V]) CreatedAt() time.Time { return time.Unix(0, e.createdAt) }

// LastTouchedAt returns the time of the most recent touch.
func (e *Entry[V]) LastTouchedAt() time.Time { return time.Unix(0, e.touchedAt.Load()) }

// AccessCount returns how many times the entry was touched.
func (e *Entry[V]) AccessCount() uint64 { return e.accessCount.Load() }

// ProductionDuration returns the weighted time the factory took to build the value.
func (e *Entry[V]) ProductionDuration() time.Duration { return e.production }

// TouchStamp is the effective touch time used to rank entries for eviction:
// the last touch pushed forward by the production duration.
func (e *Entry[V]) TouchStamp() time.Time {
	return time.Unix(0, e.touchStamp())
}

func (e *Entry[V]) touchStamp() int64 {
	return e.touchedAt.Load() + int64(e.production)
}

// Touch records an access at now.
func (e *Entry[V]) Touch(now time.Time) {
	e.accessCount.Inc()

	ns := now.UnixNano()
	if ns < e.createdAt {
		ns = e.createdAt
	}

	e.touchedAt.Store(ns)
}

// IsDirty reports whether the entry outlived ttl since creation or stayed idle
// longer than sliding since the last touch.
func (e *Entry[V]) IsDirty(now time.Time, ttl, sliding time.Duration) bool {
	ns := now.UnixNano()

	return ns-e.createdAt > int64(ttl) || ns-e.touchedAt.Load() > int64(sliding)
}

// Compare orders entries from the least to the most valuable: fewer accesses
// first, then older touch stamps.
func (e *Entry[V]) Compare(other *Entry[V]) int {
	return e.rank().compare(other.rank(), minBound)
}

// CompareAt is Compare with a staleness bound: when either touch stamp is older
// than bound the entries are ordered by touch stamp alone, so stale entries rank
// for removal first whatever their access count.
func (e *Entry[V]) CompareAt(other *Entry[V], bound time.Time) int {
	return e.rank().compare(other.rank(), bound.UnixNano())
}

// minBound disables the staleness rule.
const minBound = math.MinInt64

// rank freezes the fields eviction sorts on, so a sort never sees them move.
type rank struct {
	count uint64
	stamp int64
}

func (e *Entry[V]) rank() rank {
	return rank{count: e.accessCount.Load(), stamp: e.touchStamp()}
}

func (r rank) compare(other rank, bound int64) int {
	if r.stamp < bound || other.stamp < bound {
		return cmp.Compare(r.stamp, other.stamp)
	}

	if c := cmp.Compare(r.count, other.count); c != 0 {
		return c
	}

	return cmp.Compare(r.stamp, other.stamp)
}
