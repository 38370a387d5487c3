package middleware

import (
	"context"
	"time"

	"github.com/hyp3rd/ewrap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hyp3rd/lexcache"
	"github.com/hyp3rd/lexcache/internal/telemetry/attrs"
	"github.com/hyp3rd/lexcache/pkg/stats"
)

// OTelMetricsMiddleware emits OpenTelemetry metrics for service methods.
type OTelMetricsMiddleware struct {
	next  lexcache.Service
	meter metric.Meter

	// instruments
	calls     metric.Int64Counter
	durations metric.Float64Histogram
}

// NewOTelMetricsMiddleware constructs a metrics middleware using the provided meter.
func NewOTelMetricsMiddleware(next lexcache.Service, meter metric.Meter) (lexcache.Service, error) {
	calls, err := meter.Int64Counter("lexcache.calls")
	if err != nil {
		return nil, ewrap.Wrap(err, "create counter")
	}

	durations, err := meter.Float64Histogram("lexcache.duration.ms")
	if err != nil {
		return nil, ewrap.Wrap(err, "create histogram")
	}

	return &OTelMetricsMiddleware{next: next, meter: meter, calls: calls, durations: durations}, nil
}

// Get implements Service.Get with metrics.
func (mw *OTelMetricsMiddleware) Get(ctx context.Context, key string) (any, bool) {
	start := time.Now()
	v, ok := mw.next.Get(ctx, key)
	mw.rec(ctx, "Get", start, attribute.Int(attrs.AttrKeyLength, len(key)), attribute.Bool(attrs.AttrHit, ok))

	return v, ok
}

// Set implements Service.Set with metrics.
func (mw *OTelMetricsMiddleware) Set(ctx context.Context, key string, value any) error {
	start := time.Now()
	err := mw.next.Set(ctx, key, value)
	mw.rec(ctx, "Set", start, attribute.Int(attrs.AttrKeyLength, len(key)), attribute.Bool(attrs.AttrError, err != nil))

	return err
}

// GetOrSet implements Service.GetOrSet with metrics.
func (mw *OTelMetricsMiddleware) GetOrSet(ctx context.Context, key string, factory lexcache.Factory) (any, error) {
	start := time.Now()
	v, err := mw.next.GetOrSet(ctx, key, factory)
	mw.rec(ctx, "GetOrSet", start, attribute.Int(attrs.AttrKeyLength, len(key)), attribute.Bool(attrs.AttrError, err != nil))

	return v, err
}

// Contains implements Service.Contains with metrics.
func (mw *OTelMetricsMiddleware) Contains(ctx context.Context, key string) bool {
	start := time.Now()
	ok := mw.next.Contains(ctx, key)
	mw.rec(ctx, "Contains", start, attribute.Int(attrs.AttrKeyLength, len(key)), attribute.Bool(attrs.AttrHit, ok))

	return ok
}

// Remove implements Service.Remove with metrics.
func (mw *OTelMetricsMiddleware) Remove(ctx context.Context, keys ...string) error {
	start := time.Now()
	err := mw.next.Remove(ctx, keys...)
	mw.rec(ctx, "Remove", start, attribute.Int(attrs.AttrKeysCount, len(keys)))

	return err
}

// Clear implements Service.Clear with metrics.
func (mw *OTelMetricsMiddleware) Clear(ctx context.Context) error {
	start := time.Now()
	err := mw.next.Clear(ctx)
	mw.rec(ctx, "Clear", start)

	return err
}

// Capacity returns cache capacity.
func (mw *OTelMetricsMiddleware) Capacity() int { return mw.next.Capacity() }

// Count returns items count.
func (mw *OTelMetricsMiddleware) Count(ctx context.Context) int { return mw.next.Count(ctx) }

// GetStats returns stats.
func (mw *OTelMetricsMiddleware) GetStats() stats.Stats { return mw.next.GetStats() }

// rec records call count and duration with attributes.
func (mw *OTelMetricsMiddleware) rec(ctx context.Context, method string, start time.Time, attributes ...attribute.KeyValue) {
	base := []attribute.KeyValue{attribute.String(attrs.AttrMethod, method)}
	if len(attributes) > 0 {
		base = append(base, attributes...)
	}

	mw.calls.Add(ctx, 1, metric.WithAttributes(base...))
	mw.durations.Record(ctx, float64(time.Since(start).Microseconds())/1000, metric.WithAttributes(base...))
}
