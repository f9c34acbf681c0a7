// Package tracing sets up the OpenTelemetry tracer used to wrap each
// agent turn (C9's RunLoop) and every tool call it makes. Spans are
// exported over OTLP/gRPC when COMMANDER_OTLP_ENDPOINT is set; with no
// endpoint configured, Init installs a no-op tracer provider so the rest
// of the codebase can call tracing.Tracer() unconditionally.
package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/bobmatnyc/ai-commander-sub001/internal/agent"

// Init wires the global tracer provider. endpoint is the OTLP/gRPC
// collector address (host:port); an empty endpoint leaves the default
// no-op provider in place, so every agent turn still compiles and runs
// with tracing fully disabled.
func Init(ctx context.Context, serviceName, endpoint string) (shutdown func(context.Context) error, err error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", serviceName)))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Tracer returns the tracer every agent turn and tool call uses to
// create its span.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
