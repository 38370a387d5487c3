// Package metrics exports cache statistics to Prometheus.
package metrics

import (
	"errors"
	"time"

	"github.com/hyp3rd/ewrap"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hyp3rd/lexcache/pkg/cache"
	"github.com/hyp3rd/lexcache/pkg/stats"
)

const namespace = "lexcache"

// counted maps the stats exported as counters to their metric event label.
var counted = map[stats.Stat]string{
	stats.StatHits:        "hit",
	stats.StatMisses:      "miss",
	stats.StatAdds:        "add",
	stats.StatRemovals:    "removal",
	stats.StatExpirations: "expiration",
	stats.StatEvictions:   "eviction",
	stats.StatGrowths:     "growth",
	stats.StatProductions: "production",
}

// Exporter owns the cache metric vectors registered on a Prometheus registerer.
type Exporter struct {
	events     *prometheus.CounterVec
	production *prometheus.HistogramVec
}

// NewExporter creates the cache metrics and registers them on reg.
// Metrics already registered by a previous exporter are reused.
func NewExporter(reg prometheus.Registerer) (*Exporter, error) {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "events_total",
		Help:      "Total number of cache events by kind",
	}, []string{"cache", "event"})

	production := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "production_seconds",
		Help:      "Time spent by factories producing cache values",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
	}, []string{"cache"})

	var err error

	if events, err = register(reg, events); err != nil {
		return nil, err
	}

	if production, err = register(reg, production); err != nil {
		return nil, err
	}

	return &Exporter{events: events, production: production}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing, nil
		}
	}

	return c, ewrap.Wrap(err, "registering cache metrics")
}

// Collector returns a stats collector for the cache name. It keeps local
// aggregates for GetStats and mirrors every record to Prometheus.
func (e *Exporter) Collector(name string) stats.ICollector {
	return &Collector{
		name:       name,
		local:      stats.NewCollector(),
		events:     e.events,
		production: e.production.WithLabelValues(name),
	}
}

// Collector is a stats.ICollector feeding an Exporter.
type Collector struct {
	name       string
	local      *stats.Collector
	events     *prometheus.CounterVec
	production prometheus.Observer
}

// Incr records value on the local aggregates and on the event counter.
func (c *Collector) Incr(stat stats.Stat, value int64) {
	c.local.Incr(stat, value)

	if event, ok := counted[stat]; ok && value > 0 {
		c.events.WithLabelValues(c.name, event).Add(float64(value))
	}
}

// Timing records a duration in nanoseconds.
func (c *Collector) Timing(stat stats.Stat, value int64) {
	c.local.Timing(stat, value)

	if stat == stats.StatProductionTime {
		c.production.Observe(time.Duration(value).Seconds())
	}
}

// GetStats returns the local aggregates.
func (c *Collector) GetStats() stats.Stats {
	return c.local.GetStats()
}

// Source lists the caches whose size is exported.
type Source interface {
	Names() []string
	Lookup(name string) (cache.Inspector, bool)
}

// SizeCollector is a prometheus.Collector reporting the entry count and the
// capacity of every live cache of a Source at scrape time.
type SizeCollector struct {
	source   Source
	entries  *prometheus.Desc
	capacity *prometheus.Desc
}

// NewSizeCollector creates a SizeCollector over source.
func NewSizeCollector(source Source) *SizeCollector {
	return &SizeCollector{
		source: source,
		entries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "entries"),
			"Current number of entries in the cache",
			[]string{"cache"}, nil,
		),
		capacity: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "capacity"),
			"Current soft capacity of the cache",
			[]string{"cache"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (s *SizeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- s.entries
	ch <- s.capacity
}

// Collect implements prometheus.Collector.
func (s *SizeCollector) Collect(ch chan<- prometheus.Metric) {
	for _, name := range s.source.Names() {
		inspector, ok := s.source.Lookup(name)
		if !ok {
			continue
		}

		info := inspector.Info()
		ch <- prometheus.MustNewConstMetric(s.entries, prometheus.GaugeValue, float64(info.Count), name)
		ch <- prometheus.MustNewConstMetric(s.capacity, prometheus.GaugeValue, float64(info.Capacity), name)
	}
}
