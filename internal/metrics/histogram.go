package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// HistogramOptions configures per-frame speed histograms.
type HistogramOptions struct {
	Bins    int  // number of bins, default 100
	Density bool // normalize so the integral over the range is 1

	// Min/Max give an explicit histogram range when HasRange is set;
	// otherwise the range is (0, global max over all frames).
	HasRange bool
	Min, Max float64
}

// DefaultHistogramOptions returns 100 density-normalized bins over the
// auto-detected range.
func DefaultHistogramOptions() HistogramOptions {
	return HistogramOptions{Bins: 100, Density: true}
}

// Histograms holds one binned speed distribution per time slice. Dividers
// are shared by all frames.
type Histograms struct {
	Counts   [][]float64 // frames x bins
	Dividers []float64   // bins+1 bin edges
	Density  bool
}

// Histograms bins the speed distribution of every frame. Samples outside
// the range and NaN samples are ignored. A degenerate explicit range with
// max <= min is widened to a unit-wide first bin rather than rejected.
func (a *SpeedAnalysis) Histograms(opts HistogramOptions) (*Histograms, error) {
	if opts.Bins <= 0 {
		return nil, fmt.Errorf("histogram needs a positive bin count, got %d", opts.Bins)
	}

	speeds := a.Speeds()

	lo, hi := 0.0, 0.0
	if opts.HasRange {
		lo, hi = opts.Min, opts.Max
	} else {
		hi = nanMax(speeds.Data)
		if math.IsNaN(hi) {
			hi = 0
		}
	}
	if hi <= lo {
		hi = lo + 1
	}

	dividers := make([]float64, opts.Bins+1)
	floats.Span(dividers, lo, hi)
	binWidth := (hi - lo) / float64(opts.Bins)

	counts := make([][]float64, speeds.Frames)
	for t := 0; t < speeds.Frames; t++ {
		row := make([]float64, opts.Bins)
		var total float64
		for _, v := range speeds.Frame(t) {
			f := float64(v)
			if math.IsNaN(f) || f < lo || f > hi {
				continue
			}
			bin := int((f - lo) / binWidth)
			if bin == opts.Bins { // in-range value at the upper edge
				bin--
			}
			row[bin]++
			total++
		}
		if opts.Density && total > 0 {
			for i := range row {
				row[i] /= total * binWidth
			}
		}
		counts[t] = row
	}

	return &Histograms{Counts: counts, Dividers: dividers, Density: opts.Density}, nil
}
