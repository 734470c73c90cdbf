// Package exporters builds OpenTelemetry span exporters and metric readers by name.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ErrUnknownExporter is returned for exporter names outside the supported set.
var ErrUnknownExporter = errors.New("exporters: unknown exporter")

// ErrMissingEndpoint is returned when an OTLP exporter has no endpoint.
var ErrMissingEndpoint = errors.New("exporters: OTLP endpoint not configured")

// Target selects an exporter.
type Target struct {
	// Name is one of otlp, stdout, none (plus prometheus for metrics).
	Name string

	// Endpoint overrides OTEL_EXPORTER_OTLP_ENDPOINT for otlp.
	Endpoint string

	// Writer receives stdout output. Defaults to os.Stdout.
	Writer io.Writer
}

// IsTracingExporter reports whether name is a supported tracing exporter.
func IsTracingExporter(name string) bool {
	switch name {
	case "otlp", "stdout", "none", "":
		return true
	}
	return false
}

// IsMetricsExporter reports whether name is a supported metrics exporter.
func IsMetricsExporter(name string) bool {
	return name == "prometheus" || IsTracingExporter(name)
}

func (t Target) writer() io.Writer {
	if t.Writer != nil {
		return t.Writer
	}
	return os.Stdout
}

func (t Target) endpoint(signalVar string) (string, error) {
	for _, v := range []string{t.Endpoint, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), os.Getenv(signalVar)} {
		if v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: set OTEL_EXPORTER_OTLP_ENDPOINT or %s", ErrMissingEndpoint, signalVar)
}

// NewTracingExporter creates a span exporter for t.
func NewTracingExporter(ctx context.Context, t Target) (sdktrace.SpanExporter, error) {
	switch t.Name {
	case "stdout":
		return stdouttrace.New(stdouttrace.WithWriter(t.writer()))

	case "otlp":
		endpoint, err := t.endpoint("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT")
		if err != nil {
			return nil, err
		}
		if t.Endpoint != "" {
			return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint))
		}
		return otlptracegrpc.New(ctx)

	case "none", "":
		return stdouttrace.New(stdouttrace.WithWriter(io.Discard))

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, t.Name)
	}
}

// NewMetricsReader creates a metric reader for t.
func NewMetricsReader(ctx context.Context, t Target) (sdkmetric.Reader, error) {
	switch t.Name {
	case "stdout":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(t.writer()))
		if err != nil {
			return nil, fmt.Errorf("stdout metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	case "otlp":
		endpoint, err := t.endpoint("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT")
		if err != nil {
			return nil, err
		}
		var opts []otlpmetricgrpc.Option
		if t.Endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		exp, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("otlp metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	case "prometheus":
		exp, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("prometheus exporter: %w", err)
		}
		return exp, nil

	case "none", "":
		return sdkmetric.NewManualReader(), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, t.Name)
	}
}
