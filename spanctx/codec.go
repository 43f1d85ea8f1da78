// Package spanctx encodes and decodes span coordinates for transports
// that do not propagate trace context on their own.
//
// A producer serializes its active span's (trace-id, span-id,
// trace-flags) triple into plain string fields on an outgoing message;
// a consumer later reconstructs a remote span context from those fields
// and links its own span back to the producer's. The field widths
// follow the W3C Trace Context rendering: 32 lowercase hex characters
// for the trace-id, 16 for the span-id, 2 for the flags byte.
//
// Decoding is total: malformed or missing input never produces an
// error, only the invalid zero context, which callers treat as
// "proceed without a link".
package spanctx

import (
	"encoding/hex"

	"go.opentelemetry.io/otel/trace"
)

const (
	// TraceIDLen is the hex length of an encoded trace identifier.
	TraceIDLen = 32
	// SpanIDLen is the hex length of an encoded span identifier.
	SpanIDLen = 16
	// FlagsLen is the hex length of an encoded trace-flags byte.
	FlagsLen = 2
)

// Encode renders a span context as its three hex string fields.
// It is pure and total: an invalid context encodes to three empty
// strings, which Decode maps back to the invalid context.
func Encode(sc trace.SpanContext) (traceID, spanID, flags string) {
	if !sc.IsValid() {
		return "", "", ""
	}
	return sc.TraceID().String(), sc.SpanID().String(), sc.TraceFlags().String()
}

// Decode parses the three hex string fields into a remote span
// context. Any missing, wrong-length, or non-hex trace-id or span-id
// yields the invalid zero context; the caller's control flow is never
// aborted. An empty flags field defaults to flags zero (not sampled),
// while a present-but-malformed flags field invalidates the whole
// triple.
func Decode(traceID, spanID, flags string) trace.SpanContext {
	if len(traceID) != TraceIDLen || len(spanID) != SpanIDLen {
		return trace.SpanContext{}
	}

	tid, err := trace.TraceIDFromHex(traceID)
	if err != nil {
		return trace.SpanContext{}
	}

	sid, err := trace.SpanIDFromHex(spanID)
	if err != nil {
		return trace.SpanContext{}
	}

	var fl trace.TraceFlags
	if flags != "" {
		if len(flags) != FlagsLen {
			return trace.SpanContext{}
		}
		b, err := hex.DecodeString(flags)
		if err != nil {
			return trace.SpanContext{}
		}
		fl = trace.TraceFlags(b[0])
	}

	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: fl,
		Remote:     true,
	})
}
