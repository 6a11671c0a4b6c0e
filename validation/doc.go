// Package validation checks configuration and reports rejected settings as
// INVALID_CONFIGURATION errors.
//
// Struct tags are checked with go-playground/validator; field names in the
// resulting errors follow the mapstructure key, so they match the YAML and
// environment names a user wrote. The fluent Validator covers rules that
// tags cannot express.
//
//	err := validation.New().
//	    Required("name", cfg.Name).
//	    Between("tracing.sample_rate", cfg.Tracing.SampleRate, 0, 1).
//	    Err()
package validation
