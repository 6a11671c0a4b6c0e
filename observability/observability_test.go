package observability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultTracerConfig(t *testing.T) {
	cfg := DefaultTracerConfig("test-service")

	if cfg.ServiceName != "test-service" {
		t.Errorf("expected ServiceName 'test-service', got %s", cfg.ServiceName)
	}
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected Endpoint 'localhost:4318', got %s", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected SampleRate 1.0, got %f", cfg.SampleRate)
	}
}

func TestDefaultMeterConfig(t *testing.T) {
	cfg := DefaultMeterConfig("test-service")
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected Interval 15s, got %v", cfg.Interval)
	}
	if !cfg.Insecure {
		t.Error("expected Insecure true for default config")
	}
}

func TestInitTracer(t *testing.T) {
	for _, rate := range []float64{1.0, 0.0, 0.5} {
		t.Run(fmt.Sprintf("rate %.1f", rate), func(t *testing.T) {
			cfg := DefaultTracerConfig("test-service")
			cfg.SampleRate = rate
			tp, err := InitTracer(context.Background(), &cfg)
			if err != nil {
				t.Fatalf("InitTracer failed: %v", err)
			}
			defer tp.Shutdown(context.Background())
		})
	}
}

func TestInitMeter(t *testing.T) {
	cfg := DefaultMeterConfig("test-service")
	mp, err := InitMeter(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("InitMeter failed: %v", err)
	}
	// No collector is listening; bound the final flush.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = mp.Shutdown(ctx)
}

func TestOperatorTracerStopSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	ot := NewOperatorTracer(tp.Tracer("test"), "op-1", 4)
	_, span := ot.StartStop(context.Background())
	EndStop(span, StopOutcome{Submitted: 5, Completed: 3, Failed: 1, Unfinished: 2, Forced: true}, fmt.Errorf("1 task failed"))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != SpanOperatorStop {
		t.Errorf("expected span %q, got %q", SpanOperatorStop, spans[0].Name)
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("expected error status, got %v", spans[0].Status.Code)
	}

	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range spans[0].Attributes {
		attrs[kv.Key] = kv.Value
	}
	if attrs[AttrOperatorID].AsString() != "op-1" || attrs[AttrParallelism].AsInt64() != 4 {
		t.Errorf("expected operator identity on span, got %v", spans[0].Attributes)
	}
	if attrs[AttrUnfinished].AsInt64() != 2 || !attrs[AttrForced].AsBool() {
		t.Errorf("expected forced outcome on span, got %v", spans[0].Attributes)
	}
}

func TestEndStopWithoutError(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	_, span := NewOperatorTracer(tp.Tracer("test"), "op-2", 1).StartStop(context.Background())
	EndStop(span, StopOutcome{Submitted: 1, Completed: 1}, nil)

	if code := exporter.GetSpans()[0].Status.Code; code == codes.Error {
		t.Errorf("expected no error status, got %v", code)
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased{0.5}"},
	}
	for _, tc := range tests {
		if got := samplerFor(tc.rate).Description(); got != tc.want {
			t.Errorf("samplerFor(%v) = %s, want %s", tc.rate, got, tc.want)
		}
	}
}

func TestOperatorMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	m, err := NewOperatorMetrics(mp.Meter("test"), "words", "parallel")
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}

	ctx := context.Background()
	m.RecordAdmitted(ctx)
	m.RecordAdmitted(ctx)
	m.RecordDrained(ctx, 2)
	m.RecordEmitted(ctx)
	m.RecordStop(ctx, StopOutcome{Submitted: 3, Completed: 2, Failed: 1, Unfinished: 1, Forced: true, Duration: 10 * time.Millisecond})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if sum, ok := md.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					got[md.Name] += dp.Value
				}
			}
		}
	}

	want := map[string]int64{
		"flatmap.records.admitted":  2,
		"flatmap.queue.depth":       0,
		"flatmap.records.processed": 2,
		"flatmap.tasks.failed":      1,
		"flatmap.records.emitted":   1,
		"flatmap.shutdown.forced":   1,
		"flatmap.tasks.unfinished":  1,
	}
	for name, v := range want {
		if got[name] != v {
			t.Errorf("%s = %d, want %d", name, got[name], v)
		}
	}
}
