package config

import (
	"errors"

	"github.com/FerroO2000/cpy/internal"
)

// Validator is an utility struct for validating a configuration.
type Validator struct {
	tel *internal.Telemetry
}

// NewValidator returns a new validator.
func NewValidator(tel *internal.Telemetry) *Validator {
	return &Validator{
		tel: tel,
	}
}

// Validate validates the given configuration.
// Recoverable anomalies are logged and replaced by their fallback values,
// fatal ones are logged and returned as a joined error.
func (m *Validator) Validate(config Config) error {
	anomalyCollector := NewAnomalyCollector()
	config.Validate(anomalyCollector)

	errs := []error{}
	for anomaly := range anomalyCollector.iter() {
		if anomaly.fatal {
			errs = append(errs, m.handleFatal(anomaly))
			continue
		}

		m.handleAnomaly(anomaly)
	}

	return errors.Join(errs...)
}

func (m *Validator) handleAnomaly(an *anomaly) {
	m.tel.LogWarn("config anomaly",
		"field", an.field, "reason", an.reason,
		"actual", an.actual, "fallback", an.fallback)
}

func (m *Validator) handleFatal(an *anomaly) error {
	err := &FieldError{
		Field:  an.field,
		Reason: an.reason,
		Actual: an.actual,
	}

	m.tel.LogError("invalid config", err, "field", an.field)

	return err
}
