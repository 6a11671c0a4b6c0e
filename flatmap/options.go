package flatmap

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/streamop/logger"
)

const instrumentationName = "github.com/kbukum/streamop/flatmap"

// Option customises an Operator.
type Option func(*options)

type options struct {
	logger         *logger.Logger
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// WithLogger sets the logger. Defaults to logger.Get(cfg.Name).
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMeterProvider sets the meter provider. Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithTracerProvider sets the tracer provider. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

func buildOptions(name string, opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get(name)
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}
	return o
}
