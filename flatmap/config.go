package flatmap

import (
	"time"

	"github.com/kbukum/streamop/validation"
)

const (
	// DefaultName is used when Config.Name is empty.
	DefaultName = "flatmap"
	// DefaultShutdownTimeout is the grace period granted to the worker pool at Stop.
	DefaultShutdownTimeout = 5000 * time.Millisecond
)

// Config configures an Operator.
type Config struct {
	// Name identifies the operator in logs, metrics and spans.
	Name string `yaml:"name" mapstructure:"name"`
	// Parallelism is the worker count. 0 selects inline mode.
	Parallelism int `yaml:"parallelism" mapstructure:"parallelism" validate:"gte=0"`
	// ShutdownTimeout is how long Stop waits for the bulk run to make
	// progress before forcing termination.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"gte=0"`
}

// ApplyDefaults fills in unset fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Validate returns an INVALID_CONFIGURATION error for negative parallelism
// or a negative shutdown timeout.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// Mode returns the execution mode the configuration selects.
func (c *Config) Mode() Mode {
	if c.Parallelism > 0 {
		return ModeParallel
	}
	return ModeInline
}

// Mode is an operator's execution mode.
type Mode string

const (
	// ModeInline runs the function inside Process.
	ModeInline Mode = "inline"
	// ModeParallel defers every record to the worker pool run at Stop.
	ModeParallel Mode = "parallel"
)
