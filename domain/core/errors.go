package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Validation errors
	ErrValidation       = errors.New("invalid input data")
	ErrLengthMismatch   = fmt.Errorf("%w: arrays must share one length", ErrValidation)
	ErrMissingArray     = fmt.Errorf("%w: required array is nil or empty", ErrValidation)
	ErrInvalidStrata    = errors.New("invalid stratification labels")
	ErrInsufficientData = errors.New("insufficient data for estimation")

	// Estimation errors
	ErrNoStatistic   = errors.New("no observed statistic captured")
	ErrMissingDesign = errors.New("no assignment design configured")
	ErrNotFitted     = errors.New("model has not been fit")
)

// Error constructors with context
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrValidation, field, reason)
}

func NewLengthError(field string, got, want int) error {
	return fmt.Errorf("%w: %s has length %d, expected %d", ErrLengthMismatch, field, got, want)
}

// Error checking helpers
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidStrata)
}
