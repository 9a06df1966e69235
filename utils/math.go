package utils

import (
	"math"

	"github.com/montanaflynn/stats"
)

// Clamp returns n limited to [lo, hi].
func Clamp(n, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, n))
}

// Clamp01 returns n limited to [0, 1].
func Clamp01(n float64) float64 {
	return Clamp(n, 0, 1)
}

// Square returns n*n.
func Square(n float64) float64 {
	return n * n
}

// RMS returns the root mean square of the values, and false for an empty slice.
func RMS(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	squares := make([]float64, len(values))
	for i, v := range values {
		squares[i] = Square(v)
	}
	mean, err := stats.Mean(squares)
	if err != nil {
		return 0, false
	}
	return math.Sqrt(mean), true
}

// Mean returns the arithmetic mean of the values, and false for an empty slice.
func Mean(values []float64) (float64, bool) {
	mean, err := stats.Mean(values)
	if err != nil {
		return 0, false
	}
	return mean, true
}
