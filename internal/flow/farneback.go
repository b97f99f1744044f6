package flow

import (
	"fmt"

	"cellflow/internal/stack"

	"gocv.io/x/gocv"
)

// FarnebackParams configures the pyramidal dense-flow algorithm.
type FarnebackParams struct {
	PyrScale   float64 `json:"pyr_scale"`  // pyramid scale between levels, < 1
	Levels     int     `json:"levels"`     // number of pyramid levels
	WinSize    int     `json:"winsize"`    // averaging window size
	Iterations int     `json:"iterations"` // iterations per pyramid level
	PolyN      int     `json:"poly_n"`     // pixel neighborhood for polynomial expansion
	PolySigma  float64 `json:"poly_sigma"` // gaussian sigma for polynomial expansion
	Flags      int     `json:"flags"`
}

// DefaultFarnebackParams returns the defaults used throughout the pipeline.
func DefaultFarnebackParams() FarnebackParams {
	return FarnebackParams{
		PyrScale:   0.5,
		Levels:     3,
		WinSize:    15,
		Iterations: 3,
		PolyN:      5,
		PolySigma:  1.2,
		Flags:      0,
	}
}

// Farneback computes a dense per-pixel velocity field between every pair of
// consecutive frames.
type Farneback struct {
	Params   FarnebackParams
	Unit     Unit
	Progress Progress
}

// NewFarneback creates a dense estimator for the given output unit.
func NewFarneback(unit Unit, params FarnebackParams) (*Farneback, error) {
	if _, ok := secondsPerUnit[unit]; !ok {
		return nil, fmt.Errorf("unit has to be one of %q, %q, %q; got %q",
			UmPerSecond, UmPerMinute, UmPerHour, unit)
	}
	if params.PyrScale <= 0 || params.PyrScale >= 1 {
		return nil, fmt.Errorf("pyramid scale must be in (0,1), got %g", params.PyrScale)
	}
	return &Farneback{Params: params, Unit: unit}, nil
}

// Compute runs the dense flow estimation over the whole channel. The output
// field has one time slice per consecutive frame pair and one vector per
// source pixel, in pixels/frame.
func (fb *Farneback) Compute(ch ChannelSource) (*Field, error) {
	arr, err := ch.Array()
	if err != nil {
		return nil, err
	}
	if arr.Frames < 2 {
		return nil, fmt.Errorf("channel %q has %d frame(s), need at least 2 for flow", ch.Name(), arr.Frames)
	}

	scaler, err := Scaler(ch.PixelSizeUm(), ch.FrameIntervalMs(), fb.Unit)
	if err != nil {
		return nil, err
	}

	// The kernel consumes 8-bit planes; rescale wider sample types over the
	// stack's global range.
	planes := stack.To8Bit(arr)

	pairs := arr.Frames - 1
	field := NewField(pairs, arr.Height, arr.Width)
	field.Scaler = scaler
	field.Unit = fb.Unit

	report(fb.Progress, 0)

	prev := matFromBytes(planes.Frame(0), arr.Height, arr.Width)
	defer prev.Close()

	flowMat := gocv.NewMat()
	defer flowMat.Close()

	p := fb.Params
	for i := 0; i < pairs; i++ {
		next := matFromBytes(planes.Frame(i+1), arr.Height, arr.Width)

		gocv.CalcOpticalFlowFarneback(prev, next, &flowMat,
			p.PyrScale, p.Levels, p.WinSize, p.Iterations, p.PolyN, p.PolySigma, p.Flags)

		u := field.UFrame(i)
		v := field.VFrame(i)
		for y := 0; y < arr.Height; y++ {
			for x := 0; x < arr.Width; x++ {
				vec := flowMat.GetVecfAt(y, x)
				u[y*arr.Width+x] = vec[0]
				v[y*arr.Width+x] = vec[1]
			}
		}

		prev.Close()
		prev = next

		report(fb.Progress, 100*float64(i+1)/float64(pairs))
	}

	return field, nil
}
