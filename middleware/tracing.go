package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/sfi2k7/blueroute"
)

const defaultTracerName = "github.com/sfi2k7/blueroute"

type TracingOption func(*tracingConfig)

type tracingConfig struct {
	provider   trace.TracerProvider
	propagator propagation.TextMapPropagator
	tracerName string
	filter     func(c *blueroute.Context) bool
}

// WithTracerProvider sets the provider spans are created from. Defaults to
// the global provider.
func WithTracerProvider(tp trace.TracerProvider) TracingOption {
	return func(c *tracingConfig) {
		c.provider = tp
	}
}

// WithPropagator sets how trace context is read from request headers
func WithPropagator(p propagation.TextMapPropagator) TracingOption {
	return func(c *tracingConfig) {
		c.propagator = p
	}
}

func WithTracerName(name string) TracingOption {
	return func(c *tracingConfig) {
		c.tracerName = name
	}
}

// WithTraceFilter skips tracing for requests the filter returns false for
func WithTraceFilter(filter func(c *blueroute.Context) bool) TracingOption {
	return func(c *tracingConfig) {
		c.filter = filter
	}
}

// Tracing starts a server span per request, named by method and route, and
// hands the span context to the rest of the chain through the request
// context.
func Tracing(opts ...TracingOption) blueroute.Middleware {
	cfg := &tracingConfig{tracerName: defaultTracerName}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.provider == nil {
		cfg.provider = otel.GetTracerProvider()
	}
	if cfg.propagator == nil {
		cfg.propagator = otel.GetTextMapPropagator()
	}

	tracer := cfg.provider.Tracer(cfg.tracerName)

	return blueroute.MiddlewareFunc(func(c *blueroute.Context, next blueroute.Handler) (*blueroute.Response, error) {
		if cfg.filter != nil && !cfg.filter(c) {
			return next.Handle(c)
		}

		ctx := cfg.propagator.Extract(c.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, c.Method()+" "+route(c),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Method()),
				attribute.String("url.path", c.Path()),
				attribute.String("http.route", route(c)),
			),
		)
		defer span.End()

		if id := GetRequestID(c); id != "" {
			span.SetAttributes(attribute.String("http.request.id", id))
		}

		res, err := next.Handle(c.WithContext(ctx))

		status := statusOf(res, err)
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if err != nil {
			span.RecordError(err)
		}
		if status >= 500 {
			span.SetStatus(codes.Error, statusMessage(err, status))
		}
		return res, err
	})
}

func statusMessage(err error, status int) string {
	if err != nil {
		return err.Error()
	}
	return http.StatusText(status)
}
