package domain

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// NeutralIntensity is assigned to every point when all values are equal.
const NeutralIntensity = 0.5

// Normalize min-max scales values into [0, 1]. When the values span no range
// (a single value, or all equal) every output is NeutralIntensity and
// degenerate is true. Empty input yields empty output.
func Normalize(values []float64) (normalized []float64, degenerate bool) {
	normalized = make([]float64, len(values))
	if len(values) == 0 {
		return normalized, false
	}

	lo, hi := floats.Min(values), floats.Max(values)
	if hi == lo {
		for i := range normalized {
			normalized[i] = NeutralIntensity
		}
		return normalized, true
	}

	span := hi - lo
	if math.IsInf(span, 0) {
		// The range overflows float64; scale by halves instead.
		span = hi/2 - lo/2
		for i, v := range values {
			normalized[i] = clamp01((v/2 - lo/2) / span)
		}
		return normalized, false
	}
	for i, v := range values {
		normalized[i] = clamp01((v - lo) / span)
	}
	return normalized, false
}

// clamp01 limits v to [0, 1]; NaN maps to 0.
func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
