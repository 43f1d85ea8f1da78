package spanlink

import (
	"context"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/spanlink/spanlink/attr"
)

// Transport is an http.RoundTripper that runs each outbound request
// inside a client span and injects W3C trace context headers
// (traceparent, tracestate) so instrumented peers continue the trace.
//
// Span names are "HTTP <method>": URLs vary per call and belong in
// attributes, never in the name.
type Transport struct {
	base     http.RoundTripper
	provider trace.TracerProvider

	mu          sync.Mutex
	descriptors map[string]*Descriptor
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithTransportTracerProvider sets the provider for client spans.
// Default: the global otel provider.
func WithTransportTracerProvider(tp trace.TracerProvider) TransportOption {
	return func(t *Transport) {
		t.provider = tp
	}
}

// NewTransport wraps base (nil means http.DefaultTransport) with
// client-span instrumentation.
func NewTransport(base http.RoundTripper, opts ...TransportOption) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	t := &Transport{
		base:        base,
		descriptors: make(map[string]*Descriptor),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RoundTrip implements http.RoundTripper. Transport errors fail the
// span; HTTP status codes are recorded as attributes regardless.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	d := t.descriptorFor(req.Method)

	return TracedResult(req.Context(), d, func(ctx context.Context) (*http.Response, error) {
		out := req.Clone(ctx)
		propagation.TraceContext{}.Inject(ctx, propagation.HeaderCarrier(out.Header))

		resp, err := t.base.RoundTrip(out)
		if err != nil {
			return nil, err
		}

		trace.SpanFromContext(ctx).SetAttributes(
			attribute.Int("http.status_code", resp.StatusCode),
		)
		return resp, nil
	},
		attr.String("http.url", req.URL.String()),
		attr.String("http.host", req.URL.Host),
	)
}

func (t *Transport) descriptorFor(method string) *Descriptor {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d, ok := t.descriptors[method]; ok {
		return d
	}

	opts := []DescriptorOption{
		Name("HTTP " + method),
		Kind(trace.SpanKindClient),
		StaticAttrs(attr.String("http.method", method)),
	}
	if t.provider != nil {
		opts = append(opts, WithTracerProvider(t.provider))
	}
	d := NewDescriptor("http", "roundtrip", opts...)
	t.descriptors[method] = d
	return d
}
