package stats

import (
	"sync"
	"testing"

	"github.com/longbridgeapp/assert"
)

func TestCollector_Aggregates(t *testing.T) {
	c := NewCollector()

	c.Timing(StatProductionTime, 30)
	c.Timing(StatProductionTime, 10)
	c.Timing(StatProductionTime, 20)

	agg := c.GetStats()[StatProductionTime.String()]
	assert.Equal(t, int64(3), agg.Count)
	assert.Equal(t, int64(60), agg.Sum)
	assert.Equal(t, int64(10), agg.Min)
	assert.Equal(t, int64(30), agg.Max)
	assert.Equal(t, 20.0, agg.Mean)
}

func TestCollector_ConcurrentIncr(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 1000 {
				c.Incr(StatHits, 1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int64(8000), c.GetStats().Sum(StatHits))
}

func TestCollector_Reset(t *testing.T) {
	c := NewCollector()
	c.Incr(StatMisses, 1)
	c.Reset()

	assert.Equal(t, int64(0), c.GetStats().Sum(StatMisses))
	assert.Equal(t, 0, len(c.GetStats()))
}

func TestMulti_FansOut(t *testing.T) {
	first, second := NewCollector(), NewCollector()
	m := Multi(first, second, NopCollector{})

	m.Incr(StatEvictions, 2)
	m.Timing(StatProductionTime, 5)

	assert.Equal(t, int64(2), first.GetStats().Sum(StatEvictions))
	assert.Equal(t, int64(2), second.GetStats().Sum(StatEvictions))
	assert.Equal(t, int64(5), m.GetStats().Sum(StatProductionTime))
	assert.Equal(t, 0, len(Multi().GetStats()))
}
