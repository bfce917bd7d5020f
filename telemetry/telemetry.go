// Package telemetry wires pylon's dispatcher and lifespan manager to
// OpenTelemetry, grounded on rivaas/router's genuine (non-test) otel usage
// in router.go, context.go, metrics.go, and tracing.go.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Span is the subset of oteltrace.Span that pylon's dispatcher needs,
// abstracted so callers that never configure telemetry still get a working
// no-op implementation.
type Span interface {
	End()
	SetAttributes(kv ...string)
	SetStatus(httpStatus int)
}

// Tracer starts Spans for dispatch-scoped units of work.
type Tracer interface {
	Start(ctx context.Context, name string) (context.Context, Span)
}

// Provider bundles the tracer provider (flushed and stopped by
// LifespanManager.Shutdown), a meter, and a request counter that no pylon
// middleware increments.
type Provider struct {
	TracerProvider *sdktrace.TracerProvider
	Meter          metric.Meter
	RequestCounter metric.Int64Counter
}

// NewProvider builds a Provider whose tracer provider is configured only by
// opts (any span processor or exporter comes from them), and registers it
// as the global tracer provider, matching rivaas/router's startup sequence.
func NewProvider(serviceName string, opts ...sdktrace.TracerProviderOption) (*Provider, error) {
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	meter := otel.GetMeterProvider().Meter(serviceName)
	counter, err := meter.Int64Counter(
		"pylon.requests.total",
		metric.WithDescription("total dispatched requests"),
	)
	if err != nil {
		return nil, err
	}

	return &Provider{TracerProvider: tp, Meter: meter, RequestCounter: counter}, nil
}

// Shutdown flushes and stops the tracer provider, per §4.8's reverse
// shutdown order (telemetry torn down last, after pools stop).
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.TracerProvider == nil {
		return nil
	}
	return p.TracerProvider.Shutdown(ctx)
}

// otelTracer adapts an oteltrace.Tracer to pylon's narrower Tracer
// interface.
type otelTracer struct {
	tracer oteltrace.Tracer
}

// NewTracer returns a Tracer backed by the named OpenTelemetry tracer.
func NewTracer(name string) Tracer {
	return otelTracer{tracer: otel.Tracer(name)}
}

func (t otelTracer) Start(ctx context.Context, name string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, otelSpan{span: span}
}

type otelSpan struct {
	span oteltrace.Span
}

func (s otelSpan) End() { s.span.End() }

func (s otelSpan) SetAttributes(kv ...string) {
	attrs := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs = append(attrs, attribute.String(kv[i], kv[i+1]))
	}
	s.span.SetAttributes(attrs...)
}

func (s otelSpan) SetStatus(httpStatus int) {
	if httpStatus >= 500 {
		s.span.SetStatus(codes.Error, "server error")
		return
	}
	s.span.SetStatus(codes.Ok, "")
}

// NoopTracer is the default Tracer used when no telemetry Provider has been
// configured, so dispatch never depends on otel being wired up.
type NoopTracer struct{}

func (NoopTracer) Start(ctx context.Context, name string) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End()                          {}
func (noopSpan) SetAttributes(kv ...string)    {}
func (noopSpan) SetStatus(httpStatus int)      {}
