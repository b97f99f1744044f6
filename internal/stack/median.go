package stack

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// MedianOptions configures a temporal median projection.
type MedianOptions struct {
	Window  int  // frames per median projection
	Start   int  // first source frame to use
	Stop    int  // frame bound (exclusive); 0 means all frames
	Gliding bool // gliding (overlapping) vs staggered (non-overlapping) windows
}

// DefaultMedianOptions returns a gliding 3-frame projection over the whole
// channel.
func DefaultMedianOptions() MedianOptions {
	return MedianOptions{Window: 3, Gliding: true}
}

// MedianChannel is a Channel whose samples are a temporal median projection
// of a source channel. Filtering out fast-moving debris this way markedly
// improves flow estimates on noisy time lapses. The projection is computed
// eagerly at construction; calibration is inherited from the source, which
// must outlive the derived channel.
type MedianChannel struct {
	Channel

	source *Channel
	opts   MedianOptions
}

// NewMedianChannel computes a temporal median projection of src.
func NewMedianChannel(src *Channel, opts MedianOptions) (*MedianChannel, error) {
	if opts.Window < 1 {
		return nil, fmt.Errorf("median window must be >= 1, got %d", opts.Window)
	}

	stop := opts.Stop
	if stop == 0 {
		stop = src.Frames()
	}
	if stop > src.Frames() {
		return nil, fmt.Errorf("stop frame %d beyond channel end %d", stop, src.Frames())
	}
	if opts.Start >= stop {
		return nil, fmt.Errorf("start frame %d must be before stop frame %d", opts.Start, stop)
	}
	span := stop - opts.Start
	if span < opts.Window {
		return nil, fmt.Errorf("%d frames selected, need at least the %d-frame window", span, opts.Window)
	}

	arr, err := src.Array()
	if err != nil {
		return nil, err
	}

	var outFrames, stride int
	if opts.Gliding {
		outFrames = span - (opts.Window - 1)
		stride = 1
	} else {
		outFrames = span / opts.Window
		stride = opts.Window
	}

	out := NewCube(outFrames, arr.Height, arr.Width)
	buf := make([]float32, opts.Window)
	n := arr.Height * arr.Width

	for o := 0; o < outFrames; o++ {
		in := opts.Start + o*stride
		for px := 0; px < n; px++ {
			for k := 0; k < opts.Window; k++ {
				buf[k] = arr.Frame(in + k)[px]
			}
			out.Frame(o)[px] = median(buf)
		}
	}

	elapsed := projectElapsedTimes(src.ElapsedMs(), opts.Start, opts.Window, stride, outFrames)

	mc := &MedianChannel{
		Channel: Channel{
			index:       src.index,
			slice:       src.slice,
			name:        src.name,
			pxSizeUm:    src.pxSizeUm,
			fintervalMs: src.fintervalMs,
			elapsedMs:   elapsed,
			array:       out,
		},
		source: src,
		opts:   opts,
	}
	return mc, nil
}

// Source returns the channel the projection was derived from.
func (m *MedianChannel) Source() *Channel { return m.source }

// Options returns the projection parameters.
func (m *MedianChannel) Options() MedianOptions { return m.opts }

// projectElapsedTimes derives per-output-frame timestamps by averaging the
// timestamps of each projection window, using the same window and stride as
// the sample projection.
func projectElapsedTimes(parent []float64, start, window, stride, outFrames int) []float64 {
	out := make([]float64, outFrames)
	for o := 0; o < outFrames; o++ {
		in := start + o*stride
		out[o] = stat.Mean(parent[in:in+window], nil)
	}
	return out
}

// median returns the median of buf, reordering it in place.
func median(buf []float32) float32 {
	slices.Sort(buf)
	mid := len(buf) / 2
	if len(buf)%2 == 1 {
		return buf[mid]
	}
	return (buf[mid-1] + buf[mid]) / 2
}
