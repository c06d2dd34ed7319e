package config

import "fmt"

type ordered interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// CheckNotNegative checks that the value is not negative.
// If it is, an anomaly is added to the anomaly collector and the value is set to the fallback.
func CheckNotNegative[T ordered](ac *AnomalyCollector, field string, actual *T, fallback T) {
	val := *actual
	if val < 0 {
		ac.add(field, "cannot be negative", val, fallback)
		*actual = fallback
	}
}

// CheckNotZero checks that the value is not zero.
// If it is, an anomaly is added to the anomaly collector and the value is set to the fallback.
func CheckNotZero[T ordered](ac *AnomalyCollector, field string, actual *T, fallback T) {
	val := *actual
	if val == 0 {
		ac.add(field, "cannot be zero", val, fallback)
		*actual = fallback
	}
}

// CheckNotGreater checks that the value is not greater than the limit.
// If it is, an anomaly is added to the anomaly collector and the value is set to the limit.
func CheckNotGreater[T ordered](ac *AnomalyCollector, field string, actual *T, limit T) {
	val := *actual
	if val > limit {
		ac.add(field, fmt.Sprintf("cannot be greater than %v", limit), val, limit)
		*actual = limit
	}
}

// CheckNotEmpty checks that the value is not empty.
// There is no sensible fallback for an empty value, so the anomaly is fatal.
func CheckNotEmpty(ac *AnomalyCollector, field string, actual string) {
	if actual == "" {
		ac.addFatal(field, "cannot be empty", actual)
	}
}

// CheckProduct checks that the value is equal to the product of the two factors.
// If it is not, a fatal anomaly is added to the anomaly collector.
func CheckProduct[T ordered](ac *AnomalyCollector, field, lhsField, rhsField string, actual, lhs, rhs T) {
	if actual != lhs*rhs {
		reason := fmt.Sprintf("must be equal to %q * %q (%v * %v = %v)", lhsField, rhsField, lhs, rhs, lhs*rhs)
		ac.addFatal(field, reason, actual)
	}
}

// CheckLimit checks that the value does not exceed a hard limit.
// If it does, a fatal anomaly is added to the anomaly collector.
func CheckLimit[T ordered](ac *AnomalyCollector, field string, actual, limit T) {
	if actual > limit {
		ac.addFatal(field, fmt.Sprintf("cannot exceed %v", limit), actual)
	}
}
