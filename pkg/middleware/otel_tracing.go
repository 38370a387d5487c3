// Package middleware contains service middlewares for lexcache.
package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hyp3rd/lexcache"
	"github.com/hyp3rd/lexcache/internal/telemetry/attrs"
	"github.com/hyp3rd/lexcache/pkg/stats"
)

// OTelTracingMiddleware wraps lexcache.Service methods with OpenTelemetry spans.
type OTelTracingMiddleware struct {
	next   lexcache.Service
	tracer trace.Tracer
	// static attributes applied to all spans
	commonAttrs []attribute.KeyValue
}

// OTelTracingOption allows configuring the tracing middleware.
type OTelTracingOption func(*OTelTracingMiddleware)

// WithCommonAttributes sets attributes applied to all spans.
func WithCommonAttributes(attributes ...attribute.KeyValue) OTelTracingOption {
	return func(m *OTelTracingMiddleware) { m.commonAttrs = append(m.commonAttrs, attributes...) }
}

// NewOTelTracingMiddleware creates a tracing middleware.
func NewOTelTracingMiddleware(next lexcache.Service, tracer trace.Tracer, opts ...OTelTracingOption) lexcache.Service {
	mw := &OTelTracingMiddleware{next: next, tracer: tracer}
	for _, o := range opts {
		o(mw)
	}

	return mw
}

// Get implements Service.Get with tracing.
func (mw OTelTracingMiddleware) Get(ctx context.Context, key string) (any, bool) {
	ctx, span := mw.startSpan(ctx, "lexcache.Get", attribute.Int(attrs.AttrKeyLength, len(key)))
	defer span.End()

	v, ok := mw.next.Get(ctx, key)
	span.SetAttributes(attribute.Bool(attrs.AttrHit, ok))

	return v, ok
}

// Set implements Service.Set with tracing.
func (mw OTelTracingMiddleware) Set(ctx context.Context, key string, value any) error {
	ctx, span := mw.startSpan(ctx, "lexcache.Set", attribute.Int(attrs.AttrKeyLength, len(key)))
	defer span.End()

	err := mw.next.Set(ctx, key, value)
	recordError(span, err)

	return err
}

// GetOrSet implements Service.GetOrSet with tracing. The factory runs inside the span.
func (mw OTelTracingMiddleware) GetOrSet(ctx context.Context, key string, factory lexcache.Factory) (any, error) {
	ctx, span := mw.startSpan(ctx, "lexcache.GetOrSet", attribute.Int(attrs.AttrKeyLength, len(key)))
	defer span.End()

	v, err := mw.next.GetOrSet(ctx, key, factory)
	recordError(span, err)

	return v, err
}

// Contains implements Service.Contains with tracing.
func (mw OTelTracingMiddleware) Contains(ctx context.Context, key string) bool {
	ctx, span := mw.startSpan(ctx, "lexcache.Contains", attribute.Int(attrs.AttrKeyLength, len(key)))
	defer span.End()

	ok := mw.next.Contains(ctx, key)
	span.SetAttributes(attribute.Bool(attrs.AttrHit, ok))

	return ok
}

// Remove implements Service.Remove with tracing.
func (mw OTelTracingMiddleware) Remove(ctx context.Context, keys ...string) error {
	ctx, span := mw.startSpan(ctx, "lexcache.Remove", attribute.Int(attrs.AttrKeysCount, len(keys)))
	defer span.End()

	err := mw.next.Remove(ctx, keys...)
	recordError(span, err)

	return err
}

// Clear implements Service.Clear with tracing.
func (mw OTelTracingMiddleware) Clear(ctx context.Context) error {
	ctx, span := mw.startSpan(ctx, "lexcache.Clear")
	defer span.End()

	err := mw.next.Clear(ctx)
	recordError(span, err)

	return err
}

// Capacity returns cache capacity.
func (mw OTelTracingMiddleware) Capacity() int { return mw.next.Capacity() }

// Count returns items count.
func (mw OTelTracingMiddleware) Count(ctx context.Context) int { return mw.next.Count(ctx) }

// GetStats returns stats.
func (mw OTelTracingMiddleware) GetStats() stats.Stats { return mw.next.GetStats() }

// startSpan starts a span with common and provided attributes.
func (mw OTelTracingMiddleware) startSpan(ctx context.Context, name string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := mw.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal))
	if len(mw.commonAttrs) > 0 {
		span.SetAttributes(mw.commonAttrs...)
	}

	if len(attributes) > 0 {
		span.SetAttributes(attributes...)
	}

	return ctx, span
}

func recordError(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
