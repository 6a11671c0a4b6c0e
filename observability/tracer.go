package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/streamop/logger"
)

// TracerConfig configures span export for a pipeline process.
type TracerConfig struct {
	ServiceName    string `yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string `yaml:"service_version" mapstructure:"service_version"`
	Environment    string `yaml:"environment" mapstructure:"environment"`
	// Endpoint is the OTLP/HTTP collector host:port. Tracing is off when empty.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure"`
	// SampleRate is the fraction of root spans kept, from 0 to 1.
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// DefaultTracerConfig exports every span to a local collector.
func DefaultTracerConfig(serviceName string) TracerConfig {
	return TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		SampleRate:     1,
	}
}

// InitTracer installs an OTLP/HTTP tracer provider as the global provider and
// returns it for shutdown. Operators built without WithTracerProvider record
// their stop spans through it.
func InitTracer(ctx context.Context, cfg *TracerConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	res, err := newResource(cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(samplerFor(cfg.SampleRate))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	logger.Info("Tracer initialized", logger.Fields(
		"endpoint", cfg.Endpoint,
		"sample_rate", cfg.SampleRate,
	))
	return tp, nil
}

func samplerFor(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// newResource describes the pipeline process on every span and metric.
func newResource(serviceName, serviceVersion, environment string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
			attribute.String("environment", environment),
		),
	)
}

// Span and attribute names recorded by flat-map operators.
const (
	SpanOperatorStop = "flatmap.stop"

	AttrOperatorID  = "flatmap.operator.id"
	AttrParallelism = "flatmap.parallelism"
	AttrSubmitted   = "flatmap.tasks.submitted"
	AttrCompleted   = "flatmap.tasks.completed"
	AttrFailed      = "flatmap.tasks.failed"
	AttrUnfinished  = "flatmap.tasks.unfinished"
	AttrForced      = "flatmap.shutdown.forced"
)

// StopOutcome summarises the bulk run of one parallel Stop.
type StopOutcome struct {
	Submitted  int
	Completed  int
	Failed     int
	Unfinished int
	Forced     bool
	Duration   time.Duration
}

// OperatorTracer opens the spans of one operator instance.
type OperatorTracer struct {
	tracer trace.Tracer
	attrs  []attribute.KeyValue
}

// NewOperatorTracer tags every span it starts with the operator ID and
// parallelism.
func NewOperatorTracer(tracer trace.Tracer, operatorID string, parallelism int) *OperatorTracer {
	return &OperatorTracer{
		tracer: tracer,
		attrs: []attribute.KeyValue{
			attribute.String(AttrOperatorID, operatorID),
			attribute.Int(AttrParallelism, parallelism),
		},
	}
}

// StartStop opens the span covering a parallel Stop.
func (t *OperatorTracer) StartStop(ctx context.Context) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanOperatorStop, trace.WithAttributes(t.attrs...))
}

// EndStop records o on span and ends it. A non-nil err marks the span failed.
func EndStop(span trace.Span, o StopOutcome, err error) {
	span.SetAttributes(
		attribute.Int(AttrSubmitted, o.Submitted),
		attribute.Int(AttrCompleted, o.Completed),
		attribute.Int(AttrFailed, o.Failed),
		attribute.Int(AttrUnfinished, o.Unfinished),
		attribute.Bool(AttrForced, o.Forced),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
