package cache

import (
	"hash/maphash"
	"math/bits"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultShardCount is the shard count used when none is requested.
const DefaultShardCount = 32

// ConcurrentMap is a "thread" safe map split into shards, each guarded by its
// own RWMutex, so operations on different keys rarely contend.
// Every operation is atomic for the single key it touches; nothing is atomic
// across keys.
type ConcurrentMap[K comparable, V any] struct {
	shards []*ConcurrentMapShard[K, V]
	mask   uint64
	hash   func(key K) uint64
}

// ConcurrentMapShard is one lock-protected partition of a ConcurrentMap.
type ConcurrentMapShard[K comparable, V any] struct {
	sync.RWMutex

	items map[K]V
}

// Tuple is a key and the value it held when a snapshot was taken.
type Tuple[K comparable, V any] struct {
	Key K
	Val V
}

// NewConcurrentMap creates a map with at least shardCount shards, rounded up to a
// power of two. A non-positive count selects DefaultShardCount.
func NewConcurrentMap[K comparable, V any](shardCount int) *ConcurrentMap[K, V] {
	if shardCount <= 0 {
		shardCount = DefaultShardCount
	}

	n := 1 << bits.Len(uint(shardCount-1))

	cm := &ConcurrentMap[K, V]{
		shards: make([]*ConcurrentMapShard[K, V], n),
		mask:   uint64(n - 1),
		hash:   hasherFor[K](),
	}
	for i := range cm.shards {
		cm.shards[i] = &ConcurrentMapShard[K, V]{items: make(map[K]V)}
	}

	return cm
}

// hasherFor picks xxhash for string keys and the runtime hash for the rest.
func hasherFor[K comparable]() func(K) uint64 {
	var zero K
	if _, ok := any(zero).(string); ok {
		return func(key K) uint64 {
			s, _ := any(key).(string)

			return xxhash.Sum64String(s)
		}
	}

	seed := maphash.MakeSeed()

	return func(key K) uint64 { return maphash.Comparable(seed, key) }
}

// ShardCount returns the number of shards.
func (cm *ConcurrentMap[K, V]) ShardCount() int { return len(cm.shards) }

// GetShard returns shard under given key.
func (cm *ConcurrentMap[K, V]) GetShard(key K) *ConcurrentMapShard[K, V] {
	return cm.shards[cm.hash(key)&cm.mask]
}

// Get retrieves an element from map under given key.
func (cm *ConcurrentMap[K, V]) Get(key K) (V, bool) {
	shard := cm.GetShard(key)
	shard.RLock()
	val, ok := shard.items[key]
	shard.RUnlock()

	return val, ok
}

// Has checks if key is present in the map.
func (cm *ConcurrentMap[K, V]) Has(key K) bool {
	shard := cm.GetShard(key)
	shard.RLock()
	_, ok := shard.items[key]
	shard.RUnlock()

	return ok
}

// Set sets the given value under the specified key, replacing any previous value.
func (cm *ConcurrentMap[K, V]) Set(key K, value V) {
	shard := cm.GetShard(key)
	shard.Lock()
	shard.items[key] = value
	shard.Unlock()
}

// GetOrCreate returns the value stored under key, or stores the value built by
// create. create runs without the shard lock held: callers racing on the same
// missing key may all run it, and the first value stored wins. loaded reports
// whether the returned value was already present. A create error is returned
// unchanged and nothing is stored.
func (cm *ConcurrentMap[K, V]) GetOrCreate(key K, create func() (V, error)) (value V, loaded bool, err error) {
	if val, ok := cm.Get(key); ok {
		return val, true, nil
	}

	created, err := create()
	if err != nil {
		return value, false, err
	}

	shard := cm.GetShard(key)
	shard.Lock()
	defer shard.Unlock()

	if val, ok := shard.items[key]; ok {
		return val, true, nil
	}

	shard.items[key] = created

	return created, false, nil
}

// Pop removes an element from the map and returns it.
func (cm *ConcurrentMap[K, V]) Pop(key K) (V, bool) {
	shard := cm.GetShard(key)
	shard.Lock()
	val, ok := shard.items[key]
	delete(shard.items, key)
	shard.Unlock()

	return val, ok
}

// RemoveIf removes key when it is present and match returns true for its current
// value. The check and the removal happen under the same lock.
func (cm *ConcurrentMap[K, V]) RemoveIf(key K, match func(V) bool) bool {
	shard := cm.GetShard(key)
	shard.Lock()
	defer shard.Unlock()

	val, ok := shard.items[key]
	if !ok || !match(val) {
		return false
	}

	delete(shard.items, key)

	return true
}

// Clear removes all items from map.
func (cm *ConcurrentMap[K, V]) Clear() {
	for _, shard := range cm.shards {
		shard.Lock()
		shard.items = make(map[K]V)
		shard.Unlock()
	}
}

// Count returns the number of items in the map.
func (cm *ConcurrentMap[K, V]) Count() int {
	count := 0

	for _, shard := range cm.shards {
		shard.RLock()
		count += len(shard.items)
		shard.RUnlock()
	}

	return count
}

// Snapshot copies every key/value pair. Each shard is read under its own lock,
// so the result is consistent per shard but not across shards.
func (cm *ConcurrentMap[K, V]) Snapshot() []Tuple[K, V] {
	out := make([]Tuple[K, V], 0, cm.Count())

	for _, shard := range cm.shards {
		shard.RLock()

		for key, val := range shard.items {
			out = append(out, Tuple[K, V]{Key: key, Val: val})
		}

		shard.RUnlock()
	}

	return out
}

// Keys returns all keys.
func (cm *ConcurrentMap[K, V]) Keys() []K {
	keys := make([]K, 0, cm.Count())

	for _, shard := range cm.shards {
		shard.RLock()

		for key := range shard.items {
			keys = append(keys, key)
		}

		shard.RUnlock()
	}

	return keys
}
