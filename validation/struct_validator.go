package validation

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/streamop/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// structValidator returns the shared validator. Field names follow the
// mapstructure key, so errors name the setting as it appears in config files.
func structValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("mapstructure"), ",")
			if name == "" || name == "-" {
				return toSnakeCase(fld.Name)
			}
			return name
		})
	})
	return validate
}

// Validate checks s against its `validate` tags and returns an
// INVALID_CONFIGURATION error for the settings it rejects.
func Validate(s any) error {
	err := structValidator().Struct(s)
	if err == nil {
		return nil
	}

	var rejected validator.ValidationErrors
	if !stderrors.As(err, &rejected) {
		return errors.InvalidConfiguration("", "settings cannot be validated").WithCause(err)
	}
	problems := make([]FieldError, len(rejected))
	for i, e := range rejected {
		problems[i] = FieldError{Field: e.Field(), Message: describe(e)}
	}
	return invalid(problems)
}

// FieldErrors returns the rejected settings carried by err, or nil.
func FieldErrors(err error) []FieldError {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return nil
	}
	fields, _ := appErr.Details["fields"].([]FieldError)
	return fields
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
