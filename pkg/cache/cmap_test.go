package cache

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

type point struct {
	x, y int
}

func TestNewConcurrentMap(t *testing.T) {
	cases := map[int]int{
		-1:  DefaultShardCount,
		0:   DefaultShardCount,
		1:   1,
		3:   4,
		16:  16,
		100: 128,
	}

	for requested, expected := range cases {
		cmap := NewConcurrentMap[string, int](requested)
		if cmap.ShardCount() != expected {
			t.Errorf("shardCount(%d): expected %d, got %d", requested, expected, cmap.ShardCount())
		}

		if cmap.Count() != 0 {
			t.Errorf("Expected count 0, got %d", cmap.Count())
		}
	}
}

func TestSetAndGet(t *testing.T) {
	cmap := NewConcurrentMap[string, int](8)
	key := "test"
	value := 42

	cmap.Set(key, value)

	got, exists := cmap.Get(key)
	if !exists {
		t.Error("Expected key to exist")
	}

	if got != value {
		t.Errorf("Expected %d, got %d", value, got)
	}

	if !cmap.Has(key) {
		t.Error("Expected Has to report the key")
	}

	if _, exists := cmap.Get("missing"); exists {
		t.Error("Expected missing key to be absent")
	}
}

func TestStructKeys(t *testing.T) {
	cmap := NewConcurrentMap[point, string](4)

	cmap.Set(point{1, 2}, "a")
	cmap.Set(point{2, 1}, "b")

	if got, _ := cmap.Get(point{1, 2}); got != "a" {
		t.Errorf("Expected a, got %q", got)
	}

	if got, _ := cmap.Get(point{2, 1}); got != "b" {
		t.Errorf("Expected b, got %q", got)
	}

	if cmap.GetShard(point{1, 2}) != cmap.GetShard(point{1, 2}) {
		t.Error("Expected the same key to map to the same shard")
	}
}

func TestGetOrCreate(t *testing.T) {
	cmap := NewConcurrentMap[string, int](4)
	calls := 0

	create := func() (int, error) {
		calls++

		return 7, nil
	}

	value, loaded, err := cmap.GetOrCreate("k", create)
	if err != nil || loaded || value != 7 {
		t.Fatalf("first call: got (%d, %v, %v)", value, loaded, err)
	}

	value, loaded, err = cmap.GetOrCreate("k", create)
	if err != nil || !loaded || value != 7 {
		t.Fatalf("second call: got (%d, %v, %v)", value, loaded, err)
	}

	if calls != 1 {
		t.Errorf("Expected create to run once, ran %d times", calls)
	}
}

func TestGetOrCreateError(t *testing.T) {
	cmap := NewConcurrentMap[string, int](4)
	boom := errors.New("boom")

	_, _, err := cmap.GetOrCreate("k", func() (int, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Errorf("Expected boom, got %v", err)
	}

	if cmap.Has("k") {
		t.Error("Expected nothing stored after a failed create")
	}
}

func TestPopAndRemoveIf(t *testing.T) {
	cmap := NewConcurrentMap[string, int](4)
	cmap.Set("a", 1)
	cmap.Set("b", 2)

	if v, ok := cmap.Pop("a"); !ok || v != 1 {
		t.Errorf("Expected to pop 1, got (%d, %v)", v, ok)
	}

	if _, ok := cmap.Pop("a"); ok {
		t.Error("Expected second pop to fail")
	}

	if cmap.RemoveIf("b", func(v int) bool { return v == 3 }) {
		t.Error("Expected RemoveIf to keep a non matching value")
	}

	if !cmap.RemoveIf("b", func(v int) bool { return v == 2 }) {
		t.Error("Expected RemoveIf to remove a matching value")
	}

	if cmap.RemoveIf("missing", func(int) bool { return true }) {
		t.Error("Expected RemoveIf on a missing key to report false")
	}
}

func TestSnapshotKeysAndClear(t *testing.T) {
	cmap := NewConcurrentMap[string, int](4)
	for i := range 20 {
		cmap.Set(fmt.Sprintf("key%d", i), i)
	}

	if got := len(cmap.Snapshot()); got != 20 {
		t.Errorf("Expected 20 tuples, got %d", got)
	}

	sum := 0
	for _, tuple := range cmap.Snapshot() {
		sum += tuple.Val
	}

	if sum != 190 {
		t.Errorf("Expected values to sum to 190, got %d", sum)
	}

	if got := len(cmap.Keys()); got != 20 {
		t.Errorf("Expected 20 keys, got %d", got)
	}

	cmap.Clear()

	if cmap.Count() != 0 {
		t.Errorf("Expected empty map after Clear, got %d", cmap.Count())
	}
}

func TestConcurrentAccess(t *testing.T) {
	cmap := NewConcurrentMap[string, int](16)
	numGoroutines := 50
	numOperations := 100

	var wg sync.WaitGroup

	for i := range numGoroutines {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			for j := range numOperations {
				key := fmt.Sprintf("key_%d_%d", id, j)
				cmap.Set(key, j)

				if _, ok := cmap.Get(key); !ok {
					t.Errorf("Expected %s to be present", key)
				}
			}
		}(i)
	}

	wg.Wait()

	if cmap.Count() != numGoroutines*numOperations {
		t.Errorf("Expected %d items, got %d", numGoroutines*numOperations, cmap.Count())
	}
}
