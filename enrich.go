package spanlink

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/spanlink/spanlink/attr"
)

// Enrichment operations mutate whatever span is currently active in
// the context. All of them are advisory: with no active or valid span
// they no-op with a debug log, blank keys and values are filtered, and
// none of them can fail the calling business logic.

// AddAttributes sets the given attributes on the currently active
// span. Entries with blank keys or values are skipped; map entries are
// applied in sorted key order so output is deterministic.
func AddAttributes(ctx context.Context, attrs map[string]string) {
	defer guard(ctx)
	if len(attrs) == 0 {
		return
	}

	span, ok := activeSpan(ctx)
	if !ok {
		return
	}
	span.SetAttributes(mapAttributes(attrs)...)
}

// AddAttributer sets a domain object's projected attributes on the
// currently active span. A nil Attributer is a no-op.
func AddAttributer(ctx context.Context, a attr.Attributer) {
	defer guard(ctx)
	if a == nil {
		return
	}
	AddAttributes(ctx, a.TraceAttributes())
}

// AddEvent records a named, timestamped event on the currently active
// span. A blank name is a no-op; with no attributes a bare event is
// recorded, otherwise the filtered attribute set is attached.
func AddEvent(ctx context.Context, name string, attrs map[string]string) {
	defer guard(ctx)
	if strings.TrimSpace(name) == "" {
		return
	}

	span, ok := activeSpan(ctx)
	if !ok {
		return
	}

	if len(attrs) == 0 {
		span.AddEvent(name)
		return
	}
	span.AddEvent(name, trace.WithAttributes(mapAttributes(attrs)...))
}

// TraceID returns the active span's trace identifier as 32 hex
// characters, or false when no valid span is active.
func TraceID(ctx context.Context) (string, bool) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", false
	}
	return sc.TraceID().String(), true
}

// guard absorbs panics from attribute projection. Enrichment is an
// observability side-channel and must never take down the caller.
func guard(ctx context.Context) {
	if r := recover(); r != nil {
		zerolog.Ctx(ctx).Warn().Interface("panic", r).Msg("span enrichment failed")
	}
}

// activeSpan resolves the current span, requiring a valid context.
func activeSpan(ctx context.Context) (trace.Span, bool) {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		zerolog.Ctx(ctx).Debug().Msg("no valid span context available for enrichment")
		return nil, false
	}
	return span, true
}

// mapAttributes filters and orders a string map into otel attributes.
func mapAttributes(attrs map[string]string) []attribute.KeyValue {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(attrs[k]) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kvs := make([]attribute.KeyValue, len(keys))
	for i, k := range keys {
		kvs[i] = attribute.String(k, attrs[k])
	}
	return kvs
}
