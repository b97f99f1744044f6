package metrics

import (
	"math"

	"cellflow/internal/flow"
)

// OrderAnalysis computes the instantaneous order parameter per frame: the
// squared magnitude of the mean vector over the mean squared magnitude,
//
//	iop = |mean(u,v)|^2 / mean(u^2+v^2)
//
// which is bounded to [0,1] by Cauchy-Schwarz. 1 is a perfectly uniform
// field of identical vectors, 0 a fully incoherent one. A frame with zero
// mean-square velocity has no defined order and yields NaN.
type OrderAnalysis struct {
	field *flow.Field

	values []float64
}

// NewOrderAnalysis creates an order-parameter analysis over f.
func NewOrderAnalysis(f *flow.Field) *OrderAnalysis {
	return &OrderAnalysis{field: f}
}

// Values returns the order parameter per time slice.
func (a *OrderAnalysis) Values() []float64 {
	if a.values != nil {
		return a.values
	}

	f := a.field
	out := make([]float64, f.Frames)
	for t := 0; t < f.Frames; t++ {
		out[t] = orderParameter(f.UFrame(t), f.VFrame(t))
	}

	a.values = out
	return a.values
}

// orderParameter computes the instantaneous order parameter of one frame,
// skipping NaN vectors.
func orderParameter(u, v []float32) float64 {
	var sumU, sumSq float64
	var sumV float64
	var n int
	for i := range u {
		uu := float64(u[i])
		vv := float64(v[i])
		if math.IsNaN(uu) || math.IsNaN(vv) {
			continue
		}
		sumU += uu
		sumV += vv
		sumSq += uu*uu + vv*vv
		n++
	}
	if n == 0 {
		return math.NaN()
	}

	meanU := sumU / float64(n)
	meanV := sumV / float64(n)
	smvvm := meanU*meanU + meanV*meanV // squared mean vectorial velocity magnitude
	msv := sumSq / float64(n)          // mean square velocity
	if msv == 0 {
		return math.NaN()
	}
	return smvvm / msv
}

// Invalidate drops the cached result.
func (a *OrderAnalysis) Invalidate() {
	a.values = nil
}
