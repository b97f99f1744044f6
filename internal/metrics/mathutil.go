// Package metrics derives scalar motion metrics from velocity fields:
// per-pixel speeds, alignment indexes, instantaneous order parameters and
// their frame aggregates.
//
// Windowed flow estimation legitimately produces NaN vectors for
// low-confidence windows, so every aggregate on a path where NaNs can occur
// skips them instead of poisoning the result. Pointwise undefined values
// (zero-magnitude vectors, zero mean-square velocity) also propagate as
// NaN rather than raising.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// hasNaN reports whether any element of xs is NaN, checked elementwise.
func hasNaN(xs []float32) bool {
	for _, v := range xs {
		if math.IsNaN(float64(v)) {
			return true
		}
	}
	return false
}

// frameMean averages one plane, skipping NaNs when present. An all-NaN
// plane yields NaN.
func frameMean(xs []float32) float64 {
	if !hasNaN(xs) {
		out := make([]float64, len(xs))
		for i, v := range xs {
			out[i] = float64(v)
		}
		return stat.Mean(out, nil)
	}
	return nanMean(xs)
}

// nanMean averages the non-NaN elements of xs; NaN if there are none.
func nanMean(xs []float32) float64 {
	var sum float64
	var n int
	for _, v := range xs {
		f := float64(v)
		if math.IsNaN(f) {
			continue
		}
		sum += f
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// nanMax returns the largest non-NaN element of xs; NaN if there are none.
func nanMax(xs []float32) float64 {
	out := math.Inf(-1)
	found := false
	for _, v := range xs {
		f := float64(v)
		if math.IsNaN(f) {
			continue
		}
		found = true
		if f > out {
			out = f
		}
	}
	if !found {
		return math.NaN()
	}
	return out
}
