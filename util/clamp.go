package util

import "golang.org/x/exp/constraints"

// Clamp limits value to the closed interval [lo, hi].
func Clamp[T constraints.Integer | constraints.Float](value, lo, hi T) T {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
