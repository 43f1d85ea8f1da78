package spanlink

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/spanlink/spanlink/attr"
	"github.com/spanlink/spanlink/spanctx"
)

// ScopeName is the instrumentation scope spans are produced under.
const ScopeName = "github.com/spanlink/spanlink"

// Descriptor holds the per-operation span metadata: name, kind, static
// attributes, and the tracer provider to start spans from. Build one
// descriptor per distinct operation, once, as a package-level variable;
// the engine never derives descriptor state per call.
type Descriptor struct {
	name     string
	kind     trace.SpanKind
	static   []attribute.KeyValue
	meta     []attribute.KeyValue
	provider trace.TracerProvider
}

// NewDescriptor creates a descriptor for the operation identified by
// its declaring type and method name. Unless overridden with Name, the
// span name is "TypeName.Method".
//
// Span names must stay low-cardinality: both arguments are expected to
// be compile-time literals. Any operation whose natural name would vary
// by input must declare an explicit Name instead; per-call values
// belong in attributes, never in the name.
func NewDescriptor(typeName, method string, opts ...DescriptorOption) *Descriptor {
	cfg := applyDescriptorOptions(opts)

	name := cfg.name
	if name == "" {
		name = typeName + "." + method
	}

	return &Descriptor{
		name:   name,
		kind:   cfg.kind,
		static: cfg.static.Emit(),
		meta: []attribute.KeyValue{
			semconv.CodeFunction(method),
			semconv.CodeNamespace(typeName),
		},
		provider: cfg.provider,
	}
}

// Name returns the span name this descriptor produces.
func (d *Descriptor) Name() string {
	return d.name
}

// Kind returns the span kind this descriptor produces.
func (d *Descriptor) Kind() trace.SpanKind {
	return d.kind
}

// tracer resolves the tracer lazily so descriptors built at package
// init still pick up a provider installed later in main.
func (d *Descriptor) tracer() trace.Tracer {
	if d.provider != nil {
		return d.provider.Tracer(ScopeName)
	}
	return otel.Tracer(ScopeName)
}

// Traced runs fn inside a span described by d.
//
// The span is started as a child of the span active in ctx (or as a new
// root), made current for the duration of fn, and ended exactly once
// when fn returns, fails, or panics. A nil error from fn sets status
// Ok; a non-nil error is recorded on the span, sets status Error with
// the error's message, and is returned to the caller unchanged — the
// engine never masks, wraps, or converts business errors.
//
// Params are bound as span attributes after the descriptor's static
// attributes; absent (nil-valued) params are skipped silently. If any
// param's underlying value implements spanctx.Carrier and carries valid
// embedded coordinates, the span is started with a link to that remote
// context instead of a plain start (see spanctx).
func Traced(ctx context.Context, d *Descriptor, fn func(context.Context) error, params ...attr.Attr) error {
	_, err := TracedResult(ctx, d, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, params...)
	return err
}

// TracedResult is Traced for operations that return a value alongside
// the error. The result of fn is passed through unchanged.
func TracedResult[T any](ctx context.Context, d *Descriptor, fn func(context.Context) (T, error), params ...attr.Attr) (T, error) {
	opts := []trace.SpanStartOption{
		trace.WithSpanKind(d.kind),
		trace.WithAttributes(d.static...),
	}

	if link, ok := linkFromParams(ctx, params); ok {
		zerolog.Ctx(ctx).Debug().
			Str("span", d.name).
			Str("linked_trace_id", link.SpanContext.TraceID().String()).
			Str("linked_span_id", link.SpanContext.SpanID().String()).
			Msg("starting span with link to producer trace")
		opts = append(opts, trace.WithLinks(link))
	}

	ctx, span := d.tracer().Start(ctx, d.name, opts...)
	defer span.End()

	bindParams(ctx, span, params)
	span.SetAttributes(d.meta...)

	result, err := run(ctx, span, fn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}

	span.SetStatus(codes.Ok, "")
	return result, nil
}

// run invokes fn with a panic guard: a panicking operation still gets
// its failure recorded before the panic propagates unchanged and the
// deferred span.End in the caller fires.
func run[T any](ctx context.Context, span trace.Span, fn func(context.Context) (T, error)) (T, error) {
	defer func() {
		if r := recover(); r != nil {
			span.RecordError(fmt.Errorf("panic: %v", r))
			span.SetStatus(codes.Error, fmt.Sprint(r))
			panic(r)
		}
	}()
	return fn(ctx)
}

// bindParams sets each parameter's attributes on the span. Attribute
// projection runs caller code (TraceAttributes), so panics are
// absorbed with a warning: telemetry failures must never abort the
// wrapped operation.
func bindParams(ctx context.Context, span trace.Span, params []attr.Attr) {
	defer func() {
		if r := recover(); r != nil {
			zerolog.Ctx(ctx).Warn().Interface("panic", r).Msg("parameter binding failed")
		}
	}()
	for _, p := range params {
		span.SetAttributes(p.Emit()...)
	}
}

// linkFromParams scans the bound parameters for a message carrying
// valid embedded span coordinates. Absent or malformed coordinates are
// the normal, expected case and simply mean "no link"; so is a
// panicking coordinate accessor, absorbed like any other telemetry
// failure.
func linkFromParams(ctx context.Context, params []attr.Attr) (link trace.Link, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			zerolog.Ctx(ctx).Warn().Interface("panic", r).Msg("span link discovery failed")
			link, ok = trace.Link{}, false
		}
	}()

	for _, p := range params {
		c, isCarrier := p.Value.Fielder().(spanctx.Carrier)
		if !isCarrier {
			continue
		}
		if sc := spanctx.Extract(c); sc.IsValid() {
			return trace.Link{SpanContext: sc}, true
		}
	}
	return trace.Link{}, false
}
