// Package telemetry sets up OpenTelemetry tracing.
//
// The HTTP router is wrapped with otelhttp, which starts one span per
// request. Where those spans go depends on the mode:
//
//	off    → a no-op provider, nothing is recorded
//	stdout → pretty-printed JSON on the given writer (local debugging)
//	otlp   → an OTLP/HTTP collector such as Jaeger or Tempo
package telemetry

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

const serviceName = "blog-api"

// ShutdownFunc flushes pending spans. Safe to call when tracing is off.
type ShutdownFunc func(context.Context) error

// Options selects the exporter.
type Options struct {
	Mode     string    // "off", "stdout" or "otlp"
	Endpoint string    // host:port of the collector, otlp mode only
	Writer   io.Writer // destination for stdout mode
	Version  string
}

// Setup installs a global tracer provider and W3C trace-context propagation.
func Setup(ctx context.Context, opts Options) (ShutdownFunc, error) {
	var exp sdktrace.SpanExporter
	var err error

	switch opts.Mode {
	case "", "off":
		return func(context.Context) error { return nil }, nil
	case "stdout":
		exp, err = stdouttrace.New(
			stdouttrace.WithWriter(opts.Writer),
			stdouttrace.WithPrettyPrint(),
		)
	case "otlp":
		// otlptracehttp wants host:port, not a URL.
		endpoint := strings.TrimPrefix(opts.Endpoint, "http://")
		endpoint = strings.TrimPrefix(endpoint, "https://")
		exp, err = otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("telemetry: unknown mode %q", opts.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating %s exporter: %w", opts.Mode, err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(newResource(opts.Version)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

func newResource(version string) *resource.Resource {
	if version == "" {
		version = "dev"
	}
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(version),
	)
}
