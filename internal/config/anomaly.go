package config

import (
	"iter"
	"slices"
)

type anomaly struct {
	field    string
	reason   string
	actual   any
	fallback any

	// fatal anomalies have no fallback, the configuration must be rejected
	fatal bool
}

// AnomalyCollector is an utility struct for collecting anomalies.
type AnomalyCollector struct {
	anomalies []*anomaly
}

// NewAnomalyCollector returns an empty anomaly collector.
func NewAnomalyCollector() *AnomalyCollector {
	return &AnomalyCollector{
		anomalies: []*anomaly{},
	}
}

func (ac *AnomalyCollector) add(field, reason string, actual, fallback any) {
	ac.anomalies = append(ac.anomalies, &anomaly{
		field:    field,
		reason:   reason,
		actual:   actual,
		fallback: fallback,
	})
}

func (ac *AnomalyCollector) addFatal(field, reason string, actual any) {
	ac.anomalies = append(ac.anomalies, &anomaly{
		field:  field,
		reason: reason,
		actual: actual,
		fatal:  true,
	})
}

func (ac *AnomalyCollector) iter() iter.Seq[*anomaly] {
	return slices.Values(ac.anomalies)
}

// Len returns the number of collected anomalies.
func (ac *AnomalyCollector) Len() int {
	return len(ac.anomalies)
}

// HasFatal states whether at least one fatal anomaly has been collected.
func (ac *AnomalyCollector) HasFatal() bool {
	return slices.ContainsFunc(ac.anomalies, func(an *anomaly) bool { return an.fatal })
}
