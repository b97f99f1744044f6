package metrics

import (
	"math"

	"cellflow/internal/flow"
	"cellflow/internal/stack"
)

// AlignmentAnalysis computes the alignment index: for every vector, the
// cosine similarity between the local velocity and the frame's mean
// migration vector. 1 means parallel to the mean direction, -1 antiparallel.
// Undefined where either magnitude is zero; those entries are NaN.
type AlignmentAnalysis struct {
	field *flow.Field

	indexes *stack.Cube
	avg     []float64
}

// NewAlignmentAnalysis creates an alignment analysis over f.
func NewAlignmentAnalysis(f *flow.Field) *AlignmentAnalysis {
	return &AlignmentAnalysis{field: f}
}

// Indexes returns the (time, y, x) alignment index cube.
func (a *AlignmentAnalysis) Indexes() *stack.Cube {
	if a.indexes != nil {
		return a.indexes
	}

	f := a.field
	out := stack.NewCube(f.Frames, f.Height, f.Width)
	for t := 0; t < f.Frames; t++ {
		alignmentIndex(f.UFrame(t), f.VFrame(t), out.Frame(t))
	}

	a.indexes = out
	return a.indexes
}

// alignmentIndex fills dst with the per-vector alignment index of one
// frame. The mean vector skips NaN entries so a few low-confidence windows
// do not void the whole frame.
func alignmentIndex(u, v, dst []float32) {
	meanU := nanMean(u)
	meanV := nanMean(v)
	meanMag := math.Sqrt(meanU*meanU + meanV*meanV)

	for i := range u {
		uu := float64(u[i])
		vv := float64(v[i])
		mag := math.Sqrt(uu*uu + vv*vv)

		// 0/0 and NaN inputs both land here and stay NaN.
		denom := mag * meanMag
		if denom == 0 || math.IsNaN(denom) {
			dst[i] = float32(math.NaN())
			continue
		}
		dot := uu*meanU + vv*meanV
		dst[i] = float32(dot / denom)
	}
}

// FrameAverages returns the mean alignment index per time slice, skipping
// NaN entries when present.
func (a *AlignmentAnalysis) FrameAverages() []float64 {
	if a.avg != nil {
		return a.avg
	}

	idx := a.Indexes()
	out := make([]float64, idx.Frames)
	for t := 0; t < idx.Frames; t++ {
		out[t] = frameMean(idx.Frame(t))
	}

	a.avg = out
	return a.avg
}

// Invalidate drops all cached results.
func (a *AlignmentAnalysis) Invalidate() {
	a.indexes = nil
	a.avg = nil
}
