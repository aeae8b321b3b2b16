package obs

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitTracerNoneKeepsPropagation(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), TracingConfig{Exporter: " None "})
	if err != nil {
		t.Fatalf("init tracer: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	fields := otel.GetTextMapPropagator().Fields()
	if len(fields) == 0 || fields[0] != "traceparent" {
		t.Fatalf("expected trace context propagator, got %v", fields)
	}
}

func TestInitTracerRejectsUnknownExporter(t *testing.T) {
	if _, err := InitTracer(context.Background(), TracingConfig{Exporter: "zipkin"}); err == nil {
		t.Fatal("expected unsupported exporter error")
	}
}

func TestSamplingRatio(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 1},
		{-0.5, 1},
		{1.5, 1},
		{0.25, 0.25},
	}
	for _, tc := range cases {
		if got := samplingRatio(tc.in); got != tc.want {
			t.Fatalf("samplingRatio(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
