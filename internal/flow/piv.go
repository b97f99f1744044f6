package flow

import (
	"fmt"
	"math"

	"cellflow/pkg/geometry"

	"gocv.io/x/gocv"
)

// Signal-to-noise estimation methods for the windowed estimator.
const (
	SigToNoisePeakToPeak = "peak2peak"
	SigToNoisePeakToMean = "peak2mean"
)

// PIVParams configures the windowed cross-correlation estimator.
type PIVParams struct {
	WindowSize       int     `json:"window_size"`      // interrogation window side, px
	Overlap          int     `json:"overlap"`          // overlap between neighboring windows, px
	SearchAreaSize   int     `json:"search_area_size"` // search area side in the second frame, px
	SigToNoiseMethod string  `json:"sig2noise_method"` // peak2peak or peak2mean
	MinSigToNoise    float64 `json:"min_sig2noise"`    // vectors below this become NaN; 0 keeps all
}

// DefaultPIVParams returns the defaults used throughout the pipeline.
func DefaultPIVParams() PIVParams {
	return PIVParams{
		WindowSize:       64,
		Overlap:          32,
		SearchAreaSize:   70,
		SigToNoiseMethod: SigToNoisePeakToPeak,
	}
}

// PIV estimates one displacement vector per search window by normalized
// cross-correlation between consecutive frames. It produces a coarser field
// than the dense estimator, plus a coordinate grid locating each window
// center in the source image. The correlation backend's origin is top-left
// while the rest of the pipeline treats y as growing upward, so v
// components are negated and grid y coordinates flipped.
type PIV struct {
	Params   PIVParams
	Unit     Unit
	Progress Progress
}

// NewPIV creates a windowed estimator for the given output unit.
func NewPIV(unit Unit, params PIVParams) (*PIV, error) {
	if _, ok := secondsPerUnit[unit]; !ok {
		return nil, fmt.Errorf("unit has to be one of %q, %q, %q; got %q",
			UmPerSecond, UmPerMinute, UmPerHour, unit)
	}
	if params.WindowSize < 2 {
		return nil, fmt.Errorf("window size must be >= 2, got %d", params.WindowSize)
	}
	if params.Overlap < 0 || params.Overlap >= params.WindowSize {
		return nil, fmt.Errorf("overlap must be in [0,%d), got %d", params.WindowSize, params.Overlap)
	}
	if params.SearchAreaSize < params.WindowSize {
		return nil, fmt.Errorf("search area %d smaller than window %d", params.SearchAreaSize, params.WindowSize)
	}
	switch params.SigToNoiseMethod {
	case SigToNoisePeakToPeak, SigToNoisePeakToMean:
	default:
		return nil, fmt.Errorf("unknown sig2noise method %q", params.SigToNoiseMethod)
	}
	return &PIV{Params: params, Unit: unit}, nil
}

// Compute runs the windowed estimation over the whole channel.
func (p *PIV) Compute(ch ChannelSource) (*Field, error) {
	arr, err := ch.Array()
	if err != nil {
		return nil, err
	}
	if arr.Frames < 2 {
		return nil, fmt.Errorf("channel %q has %d frame(s), need at least 2 for flow", ch.Name(), arr.Frames)
	}

	scaler, err := Scaler(ch.PixelSizeUm(), ch.FrameIntervalMs(), p.Unit)
	if err != nil {
		return nil, err
	}

	win := p.Params.WindowSize
	step := win - p.Params.Overlap
	rows := (arr.Height-win)/step + 1
	cols := (arr.Width-win)/step + 1
	if arr.Height < win || arr.Width < win {
		return nil, fmt.Errorf("frame %dx%d smaller than %d px window", arr.Width, arr.Height, win)
	}

	pairs := arr.Frames - 1
	field := NewField(pairs, rows, cols)
	field.SourceHeight = arr.Height
	field.SourceWidth = arr.Width
	field.Scaler = scaler
	field.Unit = p.Unit
	field.Coords = windowCenters(rows, cols, step, win, arr.Height)

	report(p.Progress, 0)

	nan := float32(math.NaN())
	for i := 0; i < pairs; i++ {
		frameA := arr.Frame(i)
		frameB := arr.Frame(i + 1)

		u := field.UFrame(i)
		v := field.VFrame(i)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				du, dv, ok := p.windowDisplacement(frameA, frameB, arr.Height, arr.Width, r*step, c*step)
				if !ok {
					u[r*cols+c] = nan
					v[r*cols+c] = nan
					continue
				}
				u[r*cols+c] = float32(du)
				// The backend's y axis points down; flip to bottom-up.
				v[r*cols+c] = float32(-dv)
			}
		}

		report(p.Progress, 100*float64(i+1)/float64(pairs))
	}

	return field, nil
}

// windowCenters builds the coordinate grid of window centers, with y
// flipped to the bottom-up convention.
func windowCenters(rows, cols, step, win, height int) []geometry.Point2D {
	coords := make([]geometry.Point2D, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cx := c*step + win/2
			cy := r*step + win/2
			coords[r*cols+c] = geometry.Point2D{X: float64(cx), Y: float64(height - cy)}
		}
	}
	return coords
}

// windowDisplacement correlates one interrogation window of frameA against
// its search area in frameB and returns the displacement of the correlation
// peak in pixels, with sub-pixel refinement. ok is false when the window
// carries no usable signal or fails the signal-to-noise threshold.
func (p *PIV) windowDisplacement(frameA, frameB []float32, h, w, y0, x0 int) (du, dv float64, ok bool) {
	win := p.Params.WindowSize
	search := p.Params.SearchAreaSize
	margin := (search - win) / 2

	tmplData := extractPatch(frameA, h, w, y0, x0, win)
	searchData := extractPatch(frameB, h, w, y0-margin, x0-margin, search)

	tmpl := matFromFloats(tmplData, win, win)
	defer tmpl.Close()
	searchMat := matFromFloats(searchData, search, search)
	defer searchMat.Close()

	res := gocv.NewMat()
	defer res.Close()
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.MatchTemplate(searchMat, tmpl, &res, gocv.TmCcoeffNormed, mask)

	minV, maxV, _, maxLoc := gocv.MinMaxLoc(res)
	if math.IsNaN(float64(maxV)) || maxV == minV {
		return 0, 0, false
	}

	if p.Params.MinSigToNoise > 0 {
		s2n := p.sigToNoise(res, maxLoc.X, maxLoc.Y, float64(maxV))
		if s2n < p.Params.MinSigToNoise {
			return 0, 0, false
		}
	}

	dx := float64(maxLoc.X - margin)
	dy := float64(maxLoc.Y - margin)
	dx += subPixelPeak(res, maxLoc.X, maxLoc.Y, true)
	dy += subPixelPeak(res, maxLoc.X, maxLoc.Y, false)

	return dx, dy, true
}

// extractPatch copies a size x size square starting at (y0, x0) out of a
// sample plane, zero-padding outside the image.
func extractPatch(plane []float32, h, w, y0, x0, size int) []float32 {
	out := make([]float32, size*size)
	for y := 0; y < size; y++ {
		sy := y0 + y
		if sy < 0 || sy >= h {
			continue
		}
		for x := 0; x < size; x++ {
			sx := x0 + x
			if sx < 0 || sx >= w {
				continue
			}
			out[y*size+x] = plane[sy*w+sx]
		}
	}
	return out
}

// subPixelPeak refines the peak location by a three-point parabolic fit
// along one axis. Returns 0 at the correlation-map border.
func subPixelPeak(res gocv.Mat, px, py int, horizontal bool) float64 {
	var c0, c1, c2 float64
	if horizontal {
		if px <= 0 || px >= res.Cols()-1 {
			return 0
		}
		c0 = float64(res.GetFloatAt(py, px-1))
		c1 = float64(res.GetFloatAt(py, px))
		c2 = float64(res.GetFloatAt(py, px+1))
	} else {
		if py <= 0 || py >= res.Rows()-1 {
			return 0
		}
		c0 = float64(res.GetFloatAt(py-1, px))
		c1 = float64(res.GetFloatAt(py, px))
		c2 = float64(res.GetFloatAt(py+1, px))
	}
	denom := 2*c0 - 4*c1 + 2*c2
	if denom == 0 || math.IsNaN(denom) {
		return 0
	}
	delta := (c0 - c2) / denom
	if math.Abs(delta) > 1 {
		return 0
	}
	return delta
}

// sigToNoise estimates the confidence of a correlation peak with the
// configured method.
func (p *PIV) sigToNoise(res gocv.Mat, px, py int, peak float64) float64 {
	rows, cols := res.Rows(), res.Cols()

	if p.Params.SigToNoiseMethod == SigToNoisePeakToMean {
		var sum float64
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				sum += float64(res.GetFloatAt(y, x))
			}
		}
		mean := sum / float64(rows*cols)
		if mean <= 0 {
			return math.Inf(1)
		}
		return peak / mean
	}

	// peak2peak: second-highest value outside the 3x3 peak neighborhood.
	second := math.Inf(-1)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if absInt(y-py) <= 1 && absInt(x-px) <= 1 {
				continue
			}
			if v := float64(res.GetFloatAt(y, x)); v > second {
				second = v
			}
		}
	}
	if second <= 0 || math.IsInf(second, -1) {
		return math.Inf(1)
	}
	return peak / second
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
