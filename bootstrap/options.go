package bootstrap

import (
	"time"

	"github.com/kbukum/streamop/logger"
)

// DefaultGracefulTimeout bounds the whole shutdown sequence.
const DefaultGracefulTimeout = 15 * time.Second

// Option configures the App during creation.
// Options are non-generic so they can be used with any config type.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout *time.Duration
	telemetry       bool
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{telemetry: true}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger for the application.
// If not set, the logger is initialised from the config's Logging field.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithGracefulTimeout sets the maximum duration for graceful shutdown.
// Operator grace periods longer than this are cut short.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}

// WithoutTelemetry skips tracer and meter initialisation even when
// endpoints are configured.
func WithoutTelemetry() Option {
	return func(o *appOptions) {
		o.telemetry = false
	}
}
