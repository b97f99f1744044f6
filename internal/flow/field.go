package flow

import (
	"cellflow/pkg/geometry"
)

// Field is a time sequence of 2-component velocity fields in pixels/frame.
// It holds one vector per source pixel for dense estimators, or one vector
// per search window for windowed estimators. A field derived from an
// N-frame channel has N-1 time slices: each slice describes the transition
// between consecutive frames, so the final frame has no outgoing vectors.
type Field struct {
	Frames int
	Height int
	Width  int

	// U and V hold the horizontal and vertical vector components,
	// frame-major, row-major within a frame. Windowed estimators may
	// legitimately produce NaN entries for low-confidence windows.
	U []float32
	V []float32

	// Coords records, for windowed fields, the source-image pixel position
	// of each vector's window center. Y is flipped to a bottom-up
	// convention. Nil for dense fields, where vector (y,x) simply belongs
	// to pixel (y,x).
	Coords []geometry.Point2D

	// SourceHeight and SourceWidth are the dimensions of the channel the
	// field was computed from. Equal to Height/Width for dense fields.
	SourceHeight int
	SourceWidth  int

	// Scaler converts vector lengths from pixels/frame to Unit.
	Scaler float64
	Unit   Unit
}

// NewField allocates a zero field.
func NewField(frames, height, width int) *Field {
	return &Field{
		Frames:       frames,
		Height:       height,
		Width:        width,
		SourceHeight: height,
		SourceWidth:  width,
		U:            make([]float32, frames*height*width),
		V:            make([]float32, frames*height*width),
	}
}

// UFrame returns the u-component plane of time slice t as a shared view.
func (f *Field) UFrame(t int) []float32 {
	n := f.Height * f.Width
	return f.U[t*n : (t+1)*n]
}

// VFrame returns the v-component plane of time slice t as a shared view.
func (f *Field) VFrame(t int) []float32 {
	n := f.Height * f.Width
	return f.V[t*n : (t+1)*n]
}

// At returns the vector at (t, y, x).
func (f *Field) At(t, y, x int) (u, v float32) {
	i := (t*f.Height+y)*f.Width + x
	return f.U[i], f.V[i]
}

// Windowed reports whether the field carries a window-center coordinate
// grid. Consumers dispatch on this rather than on the estimator type.
func (f *Field) Windowed() bool {
	return f.Coords != nil
}

// CoordAt returns the source-image position of the vector at grid cell
// (y, x) of a windowed field.
func (f *Field) CoordAt(y, x int) geometry.Point2D {
	return f.Coords[y*f.Width+x]
}
