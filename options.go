package spanlink

import (
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/spanlink/spanlink/attr"
)

// DescriptorOption configures a Descriptor.
type DescriptorOption func(*descriptorConfig)

// descriptorConfig holds configuration collected before a Descriptor
// is built.
type descriptorConfig struct {
	name     string
	kind     trace.SpanKind
	static   attr.Set
	provider trace.TracerProvider
}

// Name sets an explicit span name, used verbatim instead of the
// derived "TypeName.Method". Always supply one for operations whose
// derived name would embed per-call data.
func Name(name string) DescriptorOption {
	return func(cfg *descriptorConfig) {
		cfg.name = name
	}
}

// Span kinds, re-exported so descriptor declarations don't need the
// otel trace import.
const (
	SpanKindInternal = trace.SpanKindInternal
	SpanKindServer   = trace.SpanKindServer
	SpanKindClient   = trace.SpanKindClient
	SpanKindProducer = trace.SpanKindProducer
	SpanKindConsumer = trace.SpanKindConsumer
)

// Kind sets the span kind (default: internal).
func Kind(kind trace.SpanKind) DescriptorOption {
	return func(cfg *descriptorConfig) {
		cfg.kind = kind
	}
}

// StaticAttrs adds attributes applied to every span this descriptor
// produces. Duplicate keys collapse, last value wins.
func StaticAttrs(attrs ...attr.Attr) DescriptorOption {
	return func(cfg *descriptorConfig) {
		cfg.static = cfg.static.Merge(attrs...)
	}
}

// StaticPairs adds static attributes declared as "key:value" strings.
// Malformed pairs (no colon, blank key) are dropped silently; keys and
// values are trimmed of surrounding whitespace.
func StaticPairs(pairs ...string) DescriptorOption {
	return func(cfg *descriptorConfig) {
		attrs := make([]attr.Attr, 0, len(pairs))
		for _, pair := range pairs {
			key, value, ok := strings.Cut(pair, ":")
			if !ok {
				continue
			}
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			attrs = append(attrs, attr.String(key, strings.TrimSpace(value)))
		}
		cfg.static = cfg.static.Merge(attrs...)
	}
}

// WithTracerProvider sets the provider spans are started from.
// Default: the global otel provider, resolved per call.
func WithTracerProvider(tp trace.TracerProvider) DescriptorOption {
	return func(cfg *descriptorConfig) {
		cfg.provider = tp
	}
}

// applyDescriptorOptions applies descriptor options.
func applyDescriptorOptions(opts []DescriptorOption) descriptorConfig {
	cfg := descriptorConfig{
		kind: trace.SpanKindInternal,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
