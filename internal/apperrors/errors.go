package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure kinds the service distinguishes.
// Wrap them with %w and classify with errors.Is.
var (
	ErrConfig      = errors.New("configuration error")
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrComputation = errors.New("computation error")
	ErrTimeout     = errors.New("timeout")
)

// Kind returns the short name of the failure kind err wraps, or
// "internal" when it wraps none of them.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrConfig):
		return "ConfigError"
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrNotFound):
		return "NotFoundError"
	case errors.Is(err, ErrTimeout):
		return "TimeoutError"
	case errors.Is(err, ErrComputation):
		return "ComputationError"
	default:
		return "internal"
	}
}

// Configf wraps a formatted message as a configuration error
func Configf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrConfig)...)
}

// Validationf wraps a formatted message as a validation error
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}
