package exporters

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestNewTracingExporter(t *testing.T) {
	tests := []struct {
		name    string
		target  Target
		wantErr error
	}{
		{name: "stdout", target: Target{Name: "stdout", Writer: &bytes.Buffer{}}},
		{name: "none", target: Target{Name: "none"}},
		{name: "empty", target: Target{}},
		{name: "otlp with endpoint", target: Target{Name: "otlp", Endpoint: "localhost:4317"}},
		{name: "jaeger is unknown", target: Target{Name: "jaeger"}, wantErr: ErrUnknownExporter},
		{name: "unknown", target: Target{Name: "zipkin"}, wantErr: ErrUnknownExporter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp, err := NewTracingExporter(context.Background(), tt.target)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewTracingExporter() error = %v", err)
			}
			if exp == nil {
				t.Fatal("expected non-nil exporter")
			}
			_ = exp.Shutdown(context.Background())
		})
	}
}

func TestNewTracingExporter_OTLPMissingEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")

	_, err := NewTracingExporter(context.Background(), Target{Name: "otlp"})
	if !errors.Is(err, ErrMissingEndpoint) {
		t.Fatalf("err = %v, want ErrMissingEndpoint", err)
	}
}

func TestNewTracingExporter_OTLPFromEnv(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")

	exp, err := NewTracingExporter(context.Background(), Target{Name: "otlp"})
	if err != nil {
		t.Fatalf("NewTracingExporter() error = %v", err)
	}
	_ = exp.Shutdown(context.Background())
}

func TestNewMetricsReader(t *testing.T) {
	tests := []struct {
		name    string
		target  Target
		wantErr error
	}{
		{name: "stdout", target: Target{Name: "stdout", Writer: &bytes.Buffer{}}},
		{name: "none", target: Target{Name: "none"}},
		{name: "otlp with endpoint", target: Target{Name: "otlp", Endpoint: "localhost:4317"}},
		{name: "unknown", target: Target{Name: "statsd"}, wantErr: ErrUnknownExporter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, err := NewMetricsReader(context.Background(), tt.target)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewMetricsReader() error = %v", err)
			}
			if reader == nil {
				t.Fatal("expected non-nil reader")
			}
			_ = reader.Shutdown(context.Background())
		})
	}
}

func TestNewMetricsReader_OTLPMissingEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")

	_, err := NewMetricsReader(context.Background(), Target{Name: "otlp"})
	if !errors.Is(err, ErrMissingEndpoint) {
		t.Fatalf("err = %v, want ErrMissingEndpoint", err)
	}
}

func TestExporterNames(t *testing.T) {
	if !IsMetricsExporter("prometheus") {
		t.Error("prometheus should be a metrics exporter")
	}
	if IsTracingExporter("prometheus") {
		t.Error("prometheus should not be a tracing exporter")
	}
	for _, name := range []string{"otlp", "stdout", "none", ""} {
		if !IsTracingExporter(name) || !IsMetricsExporter(name) {
			t.Errorf("%q should be valid for both signals", name)
		}
	}
}
