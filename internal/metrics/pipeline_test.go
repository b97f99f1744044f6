package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cellflow/internal/flow"
	"cellflow/internal/stack"
)

// TestUniformTranslationPipeline runs the dense estimator over a stack whose
// texture cyclically shifts 2 px right per frame and checks that the derived
// metrics agree: mean speed near 2 px/frame worth of velocity, alignment
// index near 1 and order parameter near 1.
func TestUniformTranslationPipeline(t *testing.T) {
	t.Parallel()

	const size, frames, dx = 64, 3, 2
	cube := stack.NewCube(frames, size, size)
	for f := 0; f < frames; f++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				sx := float64(x - f*dx)
				v := 128 +
					45*math.Sin(2*math.Pi*2*sx/size) +
					30*math.Sin(2*math.Pi*3*float64(y)/size) +
					20*math.Sin(2*math.Pi*5*(sx+float64(y))/size)
				cube.Set(f, y, x, float32(v))
			}
		}
	}
	ch, err := stack.NewMemChannel("translating", cube, 0.5, 1000, nil)
	require.NoError(t, err)

	est, err := flow.NewFarneback(flow.UmPerSecond, flow.DefaultFarnebackParams())
	require.NoError(t, err)
	field, err := est.Compute(ch)
	require.NoError(t, err)
	require.Equal(t, frames-1, field.Frames)

	speed := NewSpeedAnalysis(field)
	for i, avg := range speed.FrameAverages() {
		// 2 px/frame at 0.5 um/px and 1 s intervals is 1 um/s
		assert.InDelta(t, 1.0, avg, 0.4, "mean speed, pair %d", i)
	}

	for i, ai := range NewAlignmentAnalysis(field).FrameAverages() {
		assert.Greater(t, ai, 0.9, "alignment index, pair %d", i)
		assert.LessOrEqual(t, ai, 1.0+1e-6, "alignment index, pair %d", i)
	}

	for i, iop := range NewOrderAnalysis(field).Values() {
		assert.Greater(t, iop, 0.9, "order parameter, pair %d", i)
		assert.LessOrEqual(t, iop, 1.0+1e-9, "order parameter, pair %d", i)
	}
}

// TestMetricBounds checks the documented ranges on an incoherent field.
func TestMetricBounds(t *testing.T) {
	t.Parallel()

	// deterministic scatter of directions
	f := flow.NewField(1, 8, 8)
	for i := range f.U {
		angle := float64(i) * 2.39996 // golden-angle spread
		f.U[i] = float32(math.Cos(angle) * (1 + float64(i%5)))
		f.V[i] = float32(math.Sin(angle) * (1 + float64(i%5)))
	}
	f.Scaler = 1

	for _, v := range NewAlignmentAnalysis(f).Indexes().Data {
		fv := float64(v)
		if math.IsNaN(fv) {
			continue
		}
		assert.GreaterOrEqual(t, fv, -1.0-1e-6)
		assert.LessOrEqual(t, fv, 1.0+1e-6)
	}

	for _, iop := range NewOrderAnalysis(f).Values() {
		if math.IsNaN(iop) {
			continue
		}
		assert.GreaterOrEqual(t, iop, 0.0)
		assert.LessOrEqual(t, iop, 1.0+1e-9)
	}
}
