package spanctx

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

const (
	validTraceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	validSpanID  = "00f067aa0ba902b7"
)

func TestDecode(t *testing.T) {
	sc := Decode(validTraceID, validSpanID, "01")
	require.True(t, sc.IsValid())
	assert.Equal(t, validTraceID, sc.TraceID().String())
	assert.Equal(t, validSpanID, sc.SpanID().String())
	assert.True(t, sc.IsSampled())
	assert.True(t, sc.IsRemote(), "decoded contexts must be remote")
}

func TestDecodeDefaultFlags(t *testing.T) {
	sc := Decode(validTraceID, validSpanID, "")
	require.True(t, sc.IsValid())
	assert.False(t, sc.IsSampled())
}

func TestDecodeInvalid(t *testing.T) {
	tests := []struct {
		name    string
		traceID string
		spanID  string
		flags   string
	}{
		{"empty trace id", "", validSpanID, "01"},
		{"empty span id", validTraceID, "", "01"},
		{"short trace id", "4bf92f", validSpanID, "01"},
		{"long trace id", validTraceID + "00", validSpanID, "01"},
		{"short span id", validTraceID, "00f067aa", "01"},
		{"long span id", validTraceID, validSpanID + "00", "01"},
		{"non-hex trace id", "4bf92f3577b34da6a3ce929d0e0e473z", validSpanID, "01"},
		{"non-hex span id", validTraceID, "00f067aa0ba902bz", "01"},
		{"uppercase trace id", strings.ToUpper(validTraceID), validSpanID, "01"},
		{"all-zero trace id", strings.Repeat("0", TraceIDLen), validSpanID, "01"},
		{"all-zero span id", validTraceID, strings.Repeat("0", SpanIDLen), "01"},
		{"non-hex flags", validTraceID, validSpanID, "zz"},
		{"overlong flags", validTraceID, validSpanID, "001"},
		{"short flags", validTraceID, validSpanID, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, Decode(tt.traceID, tt.spanID, tt.flags).IsValid())
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, flags := range []string{"00", "01", "ff"} {
		t.Run("flags "+flags, func(t *testing.T) {
			orig := Decode(validTraceID, validSpanID, flags)
			require.True(t, orig.IsValid())

			traceID, spanID, fl := Encode(orig)
			assert.Equal(t, validTraceID, traceID)
			assert.Equal(t, validSpanID, spanID)
			assert.Equal(t, flags, fl)

			assert.True(t, orig.Equal(Decode(traceID, spanID, fl)))
		})
	}
}

func TestEncodeInvalidContext(t *testing.T) {
	traceID, spanID, flags := Encode(trace.SpanContext{})
	assert.Empty(t, traceID)
	assert.Empty(t, spanID)
	assert.Empty(t, flags)
}

type fakeEvent struct {
	traceID string
	spanID  string
	flags   string
}

func (e *fakeEvent) TraceContext() (string, string, string) {
	return e.traceID, e.spanID, e.flags
}

func (e *fakeEvent) SetTraceContext(traceID, spanID, flags string) {
	e.traceID, e.spanID, e.flags = traceID, spanID, flags
}

func TestInjectExtract(t *testing.T) {
	sc := Decode(validTraceID, validSpanID, "01")
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	var event fakeEvent
	Inject(ctx, &event)

	assert.Equal(t, validTraceID, event.traceID)
	assert.Equal(t, validSpanID, event.spanID)
	assert.Equal(t, "01", event.flags)

	out := Extract(&event)
	require.True(t, out.IsValid())
	assert.Equal(t, sc.TraceID(), out.TraceID())
	assert.Equal(t, sc.SpanID(), out.SpanID())
}

func TestInjectWithoutActiveSpan(t *testing.T) {
	var event fakeEvent
	Inject(context.Background(), &event)

	assert.Empty(t, event.traceID)
	assert.Empty(t, event.spanID)
}

func TestExtractAbsentFields(t *testing.T) {
	assert.False(t, Extract(&fakeEvent{}).IsValid())
}

func TestExtractPartialFields(t *testing.T) {
	// Trace-id present but span-id missing: the triple is treated as
	// absent, never partially used.
	assert.False(t, Extract(&fakeEvent{traceID: validTraceID}).IsValid())
}
