package metrics

import (
	"math"

	"cellflow/internal/flow"
	"cellflow/internal/stack"
)

// SpeedAnalysis derives per-pixel speeds and their frame aggregates from a
// velocity field. Results are computed lazily on first access and cached;
// Invalidate drops them for explicit recomputation.
type SpeedAnalysis struct {
	field *flow.Field

	speeds *stack.Cube
	avg    []float64
}

// NewSpeedAnalysis creates a speed analysis over f.
func NewSpeedAnalysis(f *flow.Field) *SpeedAnalysis {
	return &SpeedAnalysis{field: f}
}

// Field returns the underlying velocity field.
func (a *SpeedAnalysis) Field() *flow.Field { return a.field }

// Speeds returns the (time, y, x) speed cube: the elementwise vector
// magnitude scaled by the field's unit scaler.
func (a *SpeedAnalysis) Speeds() *stack.Cube {
	if a.speeds != nil {
		return a.speeds
	}

	f := a.field
	out := stack.NewCube(f.Frames, f.Height, f.Width)
	scaler := f.Scaler
	for i := range f.U {
		u := float64(f.U[i])
		v := float64(f.V[i])
		out.Data[i] = float32(scaler * math.Sqrt(u*u+v*v))
	}

	a.speeds = out
	return a.speeds
}

// FrameAverages returns the mean speed per time slice, skipping NaN entries
// when the field contains any.
func (a *SpeedAnalysis) FrameAverages() []float64 {
	if a.avg != nil {
		return a.avg
	}

	speeds := a.Speeds()
	out := make([]float64, speeds.Frames)
	for t := 0; t < speeds.Frames; t++ {
		out[t] = frameMean(speeds.Frame(t))
	}

	a.avg = out
	return a.avg
}

// Invalidate drops all cached results.
func (a *SpeedAnalysis) Invalidate() {
	a.speeds = nil
	a.avg = nil
}
