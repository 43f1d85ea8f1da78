package spanctx

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Carrier is implemented by messages that may carry embedded span
// coordinates. Absent coordinates are a normal case (synchronous
// callers, non-participating producers) and are reported as empty
// strings.
type Carrier interface {
	TraceContext() (traceID, spanID, flags string)
}

// Setter is implemented by messages that accept span coordinates
// before being published.
type Setter interface {
	SetTraceContext(traceID, spanID, flags string)
}

// Inject stamps the active span's coordinates onto an outbound
// message. If no valid span is active the message is left untouched,
// so the consumer side sees the fields as absent.
func Inject(ctx context.Context, s Setter) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return
	}
	traceID, spanID, flags := Encode(sc)
	s.SetTraceContext(traceID, spanID, flags)
}

// Extract reads and decodes a message's embedded coordinates. The
// result is a remote span context suitable only for building a span
// link; it is invalid when the fields are absent or malformed.
func Extract(c Carrier) trace.SpanContext {
	traceID, spanID, flags := c.TraceContext()
	return Decode(traceID, spanID, flags)
}
