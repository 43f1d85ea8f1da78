package spanlink

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestTransportClientSpan(t *testing.T) {
	sr, tp := newRecorder(t)

	var gotTraceparent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTraceparent = r.Header.Get("traceparent")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(nil, WithTransportTracerProvider(tp))}
	resp, err := client.Get(srv.URL + "/posts/1")
	require.NoError(t, err)
	resp.Body.Close()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]

	assert.Equal(t, "HTTP GET", span.Name())
	assert.Equal(t, trace.SpanKindClient, span.SpanKind())

	v, ok := attrValue(span.Attributes(), "http.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(http.StatusOK), v.AsInt64())

	v, ok = attrValue(span.Attributes(), "http.url")
	require.True(t, ok)
	assert.Equal(t, srv.URL+"/posts/1", v.AsString())

	// The peer receives W3C context naming this client span.
	require.NotEmpty(t, gotTraceparent, "traceparent header must be injected")
	assert.Contains(t, gotTraceparent, span.SpanContext().TraceID().String())
	assert.Contains(t, gotTraceparent, span.SpanContext().SpanID().String())
}

func TestTransportError(t *testing.T) {
	sr, tp := newRecorder(t)

	sentinel := errors.New("connection refused")
	rt := NewTransport(roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, sentinel
	}), WithTransportTracerProvider(tp))

	req := httptest.NewRequest(http.MethodGet, "http://orders.internal/api/orders", nil)
	_, err := rt.RoundTrip(req)
	require.ErrorIs(t, err, sentinel)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.NotEmpty(t, spans[0].Events(), "transport failure is recorded")
}

func TestTransportReusesDescriptors(t *testing.T) {
	_, tp := newRecorder(t)

	rt := NewTransport(roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	}), WithTransportTracerProvider(tp))

	d1 := rt.descriptorFor(http.MethodGet)
	d2 := rt.descriptorFor(http.MethodGet)
	assert.Same(t, d1, d2)
	assert.NotSame(t, d1, rt.descriptorFor(http.MethodPost))
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
