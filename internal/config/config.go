// Package config contains utility structs/functions and types
// for validating the configurations across the library.
package config

import (
	"errors"
	"fmt"
)

// ErrInvalid is returned when a configuration contains a fatal anomaly.
var ErrInvalid = errors.New("config: invalid configuration")

// Config defines the minimal interface for a configuration
// in order to be validated.
type Config interface {
	// Validate checks the configuration.
	Validate(ac *AnomalyCollector)
}

// FieldError describes a fatal anomaly of a configuration field.
type FieldError struct {
	Field  string
	Reason string
	Actual any
}

func (fe *FieldError) Error() string {
	return fmt.Sprintf("field %q %s (got %v)", fe.Field, fe.Reason, fe.Actual)
}

// Unwrap returns ErrInvalid.
func (fe *FieldError) Unwrap() error {
	return ErrInvalid
}
