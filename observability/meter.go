package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/streamop/logger"
)

// MeterConfig configures metric export for a pipeline process.
type MeterConfig struct {
	ServiceName    string `yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string `yaml:"service_version" mapstructure:"service_version"`
	Environment    string `yaml:"environment" mapstructure:"environment"`
	// Endpoint is the OTLP/HTTP collector host:port. Metrics are off when empty.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure"`
	// Interval is the export period. Zero keeps the SDK default.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// DefaultMeterConfig exports to a local collector every 15 seconds.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs an OTLP/HTTP meter provider as the global provider and
// returns it for shutdown. Operators built without WithMeterProvider report
// through it.
func InitMeter(ctx context.Context, cfg *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("Meter initialized", logger.Fields(
		"endpoint", cfg.Endpoint,
		"interval", cfg.Interval.String(),
	))
	return mp, nil
}

// Metric attribute keys.
const (
	AttrOperator = "operator"
	AttrMode     = "mode"
)

// OperatorMetrics holds the instruments a stream operator reports through.
type OperatorMetrics struct {
	attrs metric.MeasurementOption

	recordsAdmitted  metric.Int64Counter
	recordsProcessed metric.Int64Counter
	recordsEmitted   metric.Int64Counter
	tasksFailed      metric.Int64Counter
	tasksUnfinished  metric.Int64Counter
	queueDepth       metric.Int64UpDownCounter
	shutdownForced   metric.Int64Counter
	shutdownDuration metric.Float64Histogram
}

// NewOperatorMetrics creates operator instruments on the given meter.
// Every measurement is tagged with the operator name and mode.
func NewOperatorMetrics(meter metric.Meter, operator, mode string) (*OperatorMetrics, error) {
	m := &OperatorMetrics{
		attrs: metric.WithAttributes(
			attribute.String(AttrOperator, operator),
			attribute.String(AttrMode, mode),
		),
	}
	var err error

	if m.recordsAdmitted, err = meter.Int64Counter("flatmap.records.admitted",
		metric.WithDescription("Records queued for deferred execution"),
	); err != nil {
		return nil, fmt.Errorf("creating flatmap.records.admitted counter: %w", err)
	}
	if m.recordsProcessed, err = meter.Int64Counter("flatmap.records.processed",
		metric.WithDescription("Records whose function invocation returned"),
	); err != nil {
		return nil, fmt.Errorf("creating flatmap.records.processed counter: %w", err)
	}
	if m.recordsEmitted, err = meter.Int64Counter("flatmap.records.emitted",
		metric.WithDescription("Output records emitted by user functions"),
	); err != nil {
		return nil, fmt.Errorf("creating flatmap.records.emitted counter: %w", err)
	}
	if m.tasksFailed, err = meter.Int64Counter("flatmap.tasks.failed",
		metric.WithDescription("Function invocations that returned an error or panicked"),
	); err != nil {
		return nil, fmt.Errorf("creating flatmap.tasks.failed counter: %w", err)
	}
	if m.tasksUnfinished, err = meter.Int64Counter("flatmap.tasks.unfinished",
		metric.WithDescription("Tasks abandoned by a forced pool termination"),
	); err != nil {
		return nil, fmt.Errorf("creating flatmap.tasks.unfinished counter: %w", err)
	}
	if m.queueDepth, err = meter.Int64UpDownCounter("flatmap.queue.depth",
		metric.WithDescription("Tasks waiting for the bulk run"),
	); err != nil {
		return nil, fmt.Errorf("creating flatmap.queue.depth gauge: %w", err)
	}
	if m.shutdownForced, err = meter.Int64Counter("flatmap.shutdown.forced",
		metric.WithDescription("Worker pool shutdowns that hit the grace period or were cancelled"),
	); err != nil {
		return nil, fmt.Errorf("creating flatmap.shutdown.forced counter: %w", err)
	}
	if m.shutdownDuration, err = meter.Float64Histogram("flatmap.shutdown.duration",
		metric.WithDescription("Duration of the bulk run and pool shutdown"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating flatmap.shutdown.duration histogram: %w", err)
	}
	return m, nil
}

// RecordAdmitted counts a queued record.
func (m *OperatorMetrics) RecordAdmitted(ctx context.Context) {
	m.recordsAdmitted.Add(ctx, 1, m.attrs)
	m.queueDepth.Add(ctx, 1, m.attrs)
}

// RecordProcessed counts n records whose function returned, failed of them with an error.
func (m *OperatorMetrics) RecordProcessed(ctx context.Context, n, failed int) {
	if n > 0 {
		m.recordsProcessed.Add(ctx, int64(n), m.attrs)
	}
	if failed > 0 {
		m.tasksFailed.Add(ctx, int64(failed), m.attrs)
	}
}

// RecordEmitted counts one output record.
func (m *OperatorMetrics) RecordEmitted(ctx context.Context) {
	m.recordsEmitted.Add(ctx, 1, m.attrs)
}

// RecordDrained removes n tasks from the queue depth.
func (m *OperatorMetrics) RecordDrained(ctx context.Context, n int) {
	if n > 0 {
		m.queueDepth.Add(ctx, -int64(n), m.attrs)
	}
}

// RecordStop records the outcome of a parallel Stop: the processed and
// failed tasks, the abandoned ones and the shutdown itself.
func (m *OperatorMetrics) RecordStop(ctx context.Context, o StopOutcome) {
	m.RecordProcessed(ctx, o.Completed, o.Failed)
	m.shutdownDuration.Record(ctx, o.Duration.Seconds(), m.attrs)
	if o.Forced {
		m.shutdownForced.Add(ctx, 1, m.attrs)
	}
	if o.Unfinished > 0 {
		m.tasksUnfinished.Add(ctx, int64(o.Unfinished), m.attrs)
	}
}
