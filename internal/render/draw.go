// Package render turns velocity fields and derived metrics into drawable
// 8-bit frames, plots and tabular files. It sits at the output boundary of
// the pipeline; nothing here feeds back into the analysis.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"cellflow/internal/flow"
	"cellflow/internal/stack"
	"cellflow/pkg/geometry"

	"gocv.io/x/gocv"
)

// DrawOptions configures flow visualization frames.
type DrawOptions struct {
	Step           int     // pixels between arrows for dense fields
	Scale          float64 // length scaling of drawn vectors
	LineThickness  int
	Scalebar       bool    // draw a physical scale bar overlay
	ScalebarLength float64 // speed the bar length represents, in the field's unit
}

// DefaultDrawOptions returns the drawing defaults.
func DefaultDrawOptions() DrawOptions {
	return DrawOptions{
		Step:           15,
		Scale:          20,
		LineThickness:  2,
		ScalebarLength: 10,
	}
}

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// DrawFlowFrames draws the flow as line segments superimposed on the given
// 8-bit background frames. The background must match the field's source
// dimensions and cover at least as many frames as the field has time
// slices; the source channel's final frame is not drawn because it has no
// outgoing flow.
func DrawFlowFrames(f *flow.Field, bg *stack.Cube8, opts DrawOptions) (*stack.Cube8, error) {
	if bg.Height != f.SourceHeight || bg.Width != f.SourceWidth {
		return nil, fmt.Errorf("background is %dx%d, field source is %dx%d",
			bg.Width, bg.Height, f.SourceWidth, f.SourceHeight)
	}
	if bg.Frames < f.Frames {
		return nil, fmt.Errorf("background has %d frames, field has %d time slices", bg.Frames, f.Frames)
	}
	return drawFrames(f, bg, opts)
}

// DrawFlowFramesOnBlack draws the flow on a black background.
func DrawFlowFramesOnBlack(f *flow.Field, opts DrawOptions) (*stack.Cube8, error) {
	bg := stack.NewCube8(f.Frames, f.SourceHeight, f.SourceWidth)
	return drawFrames(f, bg, opts)
}

func drawFrames(f *flow.Field, bg *stack.Cube8, opts DrawOptions) (*stack.Cube8, error) {
	if opts.Step < 1 {
		return nil, fmt.Errorf("arrow step must be >= 1, got %d", opts.Step)
	}

	var scalebarPx int
	if opts.Scalebar {
		if f.Scaler <= 0 {
			return nil, fmt.Errorf("scale bar needs a positive unit scaler, got %g", f.Scaler)
		}
		scalebarPx = int(opts.Scale * opts.ScalebarLength / f.Scaler)
	}

	out := stack.NewCube8(f.Frames, f.SourceHeight, f.SourceWidth)
	for t := 0; t < f.Frames; t++ {
		mat := matFromPlane(bg.Frame(t), f.SourceHeight, f.SourceWidth)

		if f.Windowed() {
			drawWindowedFrame(&mat, f, t, opts)
		} else {
			drawDenseFrame(&mat, f, t, opts)
		}
		if opts.Scalebar {
			drawScalebar(&mat, scalebarPx, opts.LineThickness)
		}

		planeFromMat(mat, out.Frame(t))
		mat.Close()
	}
	return out, nil
}

// drawDenseFrame draws a subsampled grid of vectors from a dense field.
func drawDenseFrame(mat *gocv.Mat, f *flow.Field, t int, opts DrawOptions) {
	for y := opts.Step / 2; y < f.Height; y += opts.Step {
		for x := opts.Step / 2; x < f.Width; x += opts.Step {
			u, v := f.At(t, y, x)
			if math.IsNaN(float64(u)) || math.IsNaN(float64(v)) {
				continue
			}
			to := image.Pt(
				x+int(float64(u)*opts.Scale+0.5),
				y+int(float64(v)*opts.Scale+0.5),
			)
			gocv.Line(mat, image.Pt(x, y), to, white, opts.LineThickness)
		}
	}
}

// drawWindowedFrame draws every window vector of a windowed field at its
// source-image position. The stored grid and v components use a bottom-up
// y axis, so both flip back to image coordinates here.
func drawWindowedFrame(mat *gocv.Mat, f *flow.Field, t int, opts DrawOptions) {
	for gy := 0; gy < f.Height; gy++ {
		for gx := 0; gx < f.Width; gx++ {
			u, v := f.At(t, gy, gx)
			if math.IsNaN(float64(u)) || math.IsNaN(float64(v)) {
				continue
			}
			c := f.CoordAt(gy, gx)
			fromX := int(c.X)
			fromY := f.SourceHeight - int(c.Y)
			tip := geometry.NewPoint2D(float64(u), float64(-v)).Scale(opts.Scale)
			to := image.Pt(fromX+int(tip.X+0.5), fromY+int(tip.Y+0.5))
			gocv.Line(mat, image.Pt(fromX, fromY), to, white, opts.LineThickness)
		}
	}
}

// drawScalebar draws a white bar in the bottom right corner.
func drawScalebar(mat *gocv.Mat, pxLength, thickness int) {
	h, w := mat.Rows(), mat.Cols()
	from := image.Pt(w-32, h-50)
	to := image.Pt(w-32-pxLength, h-50)
	gocv.Line(mat, from, to, white, thickness+3)
}

// matFromPlane copies an 8-bit plane into a single-channel Mat.
func matFromPlane(plane []uint8, h, w int) gocv.Mat {
	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8U)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mat.SetUCharAt(y, x, plane[y*w+x])
		}
	}
	return mat
}

// planeFromMat copies a single-channel 8-bit Mat back into a plane.
func planeFromMat(mat gocv.Mat, plane []uint8) {
	h, w := mat.Rows(), mat.Cols()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			plane[y*w+x] = mat.GetUCharAt(y, x)
		}
	}
}
