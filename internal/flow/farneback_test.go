package flow

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cellflow/internal/stack"
)

// translatingChannel builds a textured stack whose pattern cyclically shifts
// dx pixels per frame. The sinusoid periods divide the frame size, so the
// shift wraps without a seam and the true flow is uniform.
func translatingChannel(t *testing.T, frames, size, dx int) *stack.Channel {
	t.Helper()
	cube := stack.NewCube(frames, size, size)
	for f := 0; f < frames; f++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				sx := float64(x - f*dx)
				v := 128 +
					45*math.Sin(2*math.Pi*2*sx/float64(size)) +
					30*math.Sin(2*math.Pi*3*float64(y)/float64(size)) +
					20*math.Sin(2*math.Pi*5*(sx+float64(y))/float64(size))
				cube.Set(f, y, x, float32(v))
			}
		}
	}
	ch, err := stack.NewMemChannel("synthetic", cube, 1, 1000, nil)
	require.NoError(t, err)
	return ch
}

// interiorMedian returns the median of a vector-component plane over the
// frame interior, ignoring a border of the given margin.
func interiorMedian(plane []float32, height, width, margin int) float64 {
	var vals []float64
	for y := margin; y < height-margin; y++ {
		for x := margin; x < width-margin; x++ {
			vals = append(vals, float64(plane[y*width+x]))
		}
	}
	sort.Float64s(vals)
	return vals[len(vals)/2]
}

func TestFarnebackRecoversTranslation(t *testing.T) {
	t.Parallel()

	ch := translatingChannel(t, 4, 64, 2)

	est, err := NewFarneback(UmPerSecond, DefaultFarnebackParams())
	require.NoError(t, err)

	var pcts []float64
	est.Progress = func(pct float64) { pcts = append(pcts, pct) }

	field, err := est.Compute(ch)
	require.NoError(t, err)

	assert.Equal(t, 3, field.Frames)
	assert.Equal(t, 64, field.Height)
	assert.Equal(t, 64, field.Width)
	assert.False(t, field.Windowed())
	assert.Equal(t, UmPerSecond, field.Unit)
	assert.InDelta(t, 1.0, field.Scaler, 1e-12)

	for i := 0; i < field.Frames; i++ {
		u := interiorMedian(field.UFrame(i), 64, 64, 8)
		v := interiorMedian(field.VFrame(i), 64, 64, 8)
		assert.InDelta(t, 2.0, u, 0.5, "frame pair %d u", i)
		assert.InDelta(t, 0.0, v, 0.5, "frame pair %d v", i)
	}

	require.NotEmpty(t, pcts)
	assert.Equal(t, 0.0, pcts[0])
	assert.Equal(t, 100.0, pcts[len(pcts)-1])
	assert.True(t, sort.Float64sAreSorted(pcts))
}

func TestFarnebackRejectsSingleFrame(t *testing.T) {
	t.Parallel()

	ch := translatingChannel(t, 1, 16, 0)
	est, err := NewFarneback(UmPerSecond, DefaultFarnebackParams())
	require.NoError(t, err)
	_, err = est.Compute(ch)
	assert.Error(t, err)
}
