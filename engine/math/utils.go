package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// NextPow2 returns the smallest power of two greater than or equal to v,
// with a minimum of 1.
func NextPow2[T constraints.Unsigned](v T) T {
	if v == 0 {
		return 1
	}
	p := T(1)
	for p < v {
		p <<= 1
	}
	return p
}
