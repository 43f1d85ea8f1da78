package spanlink

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/spanlink/spanlink/attr"
)

// Middleware wraps an HTTP handler so every request runs inside a
// server span. Route-mounted handlers (gorilla/mux) get the route
// template as the span name, keeping cardinality low regardless of
// path parameters; everything else falls back to the configured
// operation name.
//
// Usage:
//
//	r := mux.NewRouter()
//	r.Use(spanlink.Middleware(spanlink.WithHeaderAttrs("X-Request-Id")))
//	r.HandleFunc("/api/orders/{orderId}", getOrder).Methods(http.MethodGet)
func Middleware(opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := applyMiddlewareOptions(opts)

	// Descriptors are cached per span name: route templates are a
	// small fixed set, so this resolves once per route, not per call.
	var mu sync.Mutex
	descriptors := make(map[string]*Descriptor)

	descriptorFor := func(name string) *Descriptor {
		mu.Lock()
		defer mu.Unlock()
		if d, ok := descriptors[name]; ok {
			return d
		}
		dopts := []DescriptorOption{Name(name), Kind(trace.SpanKindServer)}
		if cfg.provider != nil {
			dopts = append(dopts, WithTracerProvider(cfg.provider))
		}
		d := NewDescriptor("http", "request", dopts...)
		descriptors[name] = d
		return d
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.skip(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			params := []attr.Attr{
				attr.String("http.method", r.Method),
				attr.String("http.path", r.URL.Path),
				attr.String("http.host", r.Host),
				attr.String("http.user_agent", r.UserAgent()),
			}
			if cfg.additionalAttrs != nil {
				params = append(params, cfg.additionalAttrs(r)...)
			}

			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			d := descriptorFor(cfg.spanName(r))

			// The span's error state reflects the response status;
			// the handler's own errors surface through it as 5xx.
			_ = Traced(r.Context(), d, func(ctx context.Context) error {
				enrichFromHeaders(ctx, r, cfg.headerAttrs)

				next.ServeHTTP(rw, r.WithContext(ctx))

				span := trace.SpanFromContext(ctx)
				span.SetAttributes(attribute.Int("http.status_code", rw.status))
				if rw.status >= http.StatusInternalServerError {
					return fmt.Errorf("HTTP %d", rw.status)
				}
				return nil
			}, params...)
		})
	}
}

// enrichFromHeaders mirrors request headers onto the active span under
// http.request.header.<name>. Missing headers are simply absent.
func enrichFromHeaders(ctx context.Context, r *http.Request, headers []string) {
	if len(headers) == 0 {
		return
	}
	attrs := make(map[string]string, len(headers))
	for _, h := range headers {
		attrs["http.request.header."+strings.ToLower(h)] = r.Header.Get(h)
	}
	AddAttributes(ctx, attrs)
}

// MiddlewareOption configures the HTTP middleware.
type MiddlewareOption func(*middlewareConfig)

// middlewareConfig holds HTTP middleware configuration.
type middlewareConfig struct {
	operationName   string
	skipPrefixes    []string
	headerAttrs     []string
	additionalAttrs func(*http.Request) []attr.Attr
	provider        trace.TracerProvider
}

// WithOperationName sets the span name used when no route template is
// available (default: "http.request").
func WithOperationName(name string) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.operationName = name
	}
}

// WithSkipPrefixes replaces the path prefixes excluded from tracing.
// Default: /health and /metrics.
func WithSkipPrefixes(prefixes ...string) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.skipPrefixes = prefixes
	}
}

// WithHeaderAttrs mirrors the named request headers onto the span as
// http.request.header.<name> attributes when present.
func WithHeaderAttrs(headers ...string) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.headerAttrs = append(cfg.headerAttrs, headers...)
	}
}

// WithAdditionalAttrs provides a function extracting extra span
// attributes from the request.
func WithAdditionalAttrs(fn func(*http.Request) []attr.Attr) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.additionalAttrs = fn
	}
}

// WithMiddlewareTracerProvider sets the provider for request spans.
// Default: the global otel provider.
func WithMiddlewareTracerProvider(tp trace.TracerProvider) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.provider = tp
	}
}

// applyMiddlewareOptions applies middleware options.
func applyMiddlewareOptions(opts []MiddlewareOption) middlewareConfig {
	cfg := middlewareConfig{
		operationName: "http.request",
		skipPrefixes:  []string{"/health", "/metrics"},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// skip reports whether the path is excluded from tracing.
func (cfg *middlewareConfig) skip(path string) bool {
	for _, prefix := range cfg.skipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// spanName derives the request span name, preferring the mux route
// template over the fallback operation name so path parameters never
// leak into span names.
func (cfg *middlewareConfig) spanName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil && tmpl != "" {
			return r.Method + " " + tmpl
		}
	}
	return cfg.operationName
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}
