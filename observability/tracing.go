package observability

import (
	"context"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/hupe1980/trainmesh/core"
)

const (
	// ExporterNone disables tracing.
	ExporterNone = "none"
	// ExporterStdout pretty-prints finished spans.
	ExporterStdout = "stdout"

	// ServiceName identifies this binary in exported spans.
	ServiceName = "trainmesh"
)

// ShutdownFunc flushes and stops the installed provider.
type ShutdownFunc func(context.Context) error

// TracingOptions configures InitTracing.
type TracingOptions struct {
	Exporter string
	// Writer receives stdout exporter output; defaults to os.Stderr so spans
	// do not interleave with the run summary.
	Writer      io.Writer
	ServiceName string
	Attributes  []attribute.KeyValue
}

// InitTracing installs the global tracer provider for the chosen exporter.
func InitTracing(ctx context.Context, optFns ...func(o *TracingOptions)) (trace.TracerProvider, ShutdownFunc, error) {
	opts := TracingOptions{
		Exporter:    ExporterNone,
		Writer:      os.Stderr,
		ServiceName: ServiceName,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	switch strings.ToLower(strings.TrimSpace(opts.Exporter)) {
	case "", ExporterNone:
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp, func(context.Context) error { return nil }, nil
	case ExporterStdout:
	default:
		return nil, nil, core.NewConfigurationError("trace_exporter", "unsupported trace exporter %q", opts.Exporter)
	}

	exp, err := stdouttrace.New(stdouttrace.WithWriter(opts.Writer), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, nil, err
	}
	attrs := append([]attribute.KeyValue{semconv.ServiceNameKey.String(opts.ServiceName)}, opts.Attributes...)
	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp, tp.Shutdown, nil
}
