package utils

import "golang.org/x/exp/constraints"

// Clamp returns min if v < min, max if v > max and v otherwise.
func Clamp[T constraints.Ordered](v, min, max T) T {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ClampF64 is Clamp for float64, kept for call sites that read better without type inference.
func ClampF64(v, min, max float64) float64 {
	return Clamp(v, min, max)
}
