package validation

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kbukum/streamop/errors"
)

// FieldError is one rejected setting.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator collects rejected settings, keyed by their config path.
type Validator struct {
	problems []FieldError
}

// New creates an empty Validator.
func New() *Validator {
	return &Validator{}
}

// Check records message against field unless ok holds.
func (v *Validator) Check(ok bool, field, message string) *Validator {
	if !ok {
		v.problems = append(v.problems, FieldError{Field: field, Message: message})
	}
	return v
}

// Required rejects a blank string.
func (v *Validator) Required(field, value string) *Validator {
	return v.Check(strings.TrimSpace(value) != "", field, "is required")
}

// OneOf rejects a value outside allowed. An empty value is left to Required.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	return v.Check(value == "" || slices.Contains(allowed, value), field,
		"must be one of: "+strings.Join(allowed, ", "))
}

// Between rejects a value outside [lo, hi].
func (v *Validator) Between(field string, value, lo, hi float64) *Validator {
	return v.Check(value >= lo && value <= hi, field, fmt.Sprintf("must be between %g and %g", lo, hi))
}

// NotNegative rejects a negative duration.
func (v *Validator) NotNegative(field string, d time.Duration) *Validator {
	return v.Check(d >= 0, field, "must not be negative")
}

// Errors returns the rejected settings in the order they were checked.
func (v *Validator) Errors() []FieldError {
	return v.problems
}

// Err returns nil when every check passed. Otherwise it returns an
// INVALID_CONFIGURATION error naming the first rejected field and listing
// all of them under the "fields" detail.
func (v *Validator) Err() error {
	if len(v.problems) == 0 {
		return nil
	}
	return invalid(v.problems)
}

func invalid(problems []FieldError) *errors.AppError {
	messages := make([]string, len(problems))
	for i, p := range problems {
		messages[i] = p.Field + ": " + p.Message
	}
	return errors.InvalidConfiguration(problems[0].Field, strings.Join(messages, "; ")).
		WithDetail("fields", problems)
}
