package stack

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Channel is one (time, y, x) image sequence extracted from a Source,
// together with its physical calibration. The sample cube is materialized
// on first use and cached; calibration is fixed at construction.
type Channel struct {
	index      int
	slice      int
	name       string
	pxSizeUm   float64
	fintervalMs float64
	elapsedMs  []float64

	src   *Source
	pages []int // page indexes in src belonging to this channel
	array *Cube // cached by Array
}

// NewChannel extracts the (chIndex, sliceIndex) channel from a Source.
// Pixel size and frame interval are resolved from the source metadata;
// unrecognized schemas and non-positive pixel sizes are construction errors.
func NewChannel(src *Source, chIndex, sliceIndex int, name string) (*Channel, error) {
	meta := src.Metadata()

	pxSize, err := meta.PixelSizeUm()
	if err != nil {
		return nil, fmt.Errorf("resolve pixel size: %w", err)
	}
	if pxSize <= 0 {
		return nil, fmt.Errorf("pixel size must be positive, got %g", pxSize)
	}

	finterval, err := meta.FrameIntervalMs()
	if err != nil {
		return nil, fmt.Errorf("resolve frame interval: %w", err)
	}
	if finterval < 0 {
		return nil, fmt.Errorf("frame interval must be non-negative, got %g", finterval)
	}

	channelOf, sliceOf, err := meta.PageLayout(src.Pages())
	if err != nil {
		return nil, fmt.Errorf("resolve page layout: %w", err)
	}

	var pages []int
	for i := 0; i < src.Pages(); i++ {
		if channelOf[i] == chIndex && sliceOf[i] == sliceIndex {
			pages = append(pages, i)
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages for channel %d slice %d", chIndex, sliceIndex)
	}

	elapsed := extractElapsedTimes(meta, pages, finterval)

	return &Channel{
		index:       chIndex,
		slice:       sliceIndex,
		name:        name,
		pxSizeUm:    pxSize,
		fintervalMs: finterval,
		elapsedMs:   elapsed,
		src:         src,
		pages:       pages,
	}, nil
}

// NewMemChannel wraps an already materialized cube as a Channel. Used for
// synthetic data and derived channels. elapsedMs may be nil, in which case
// timestamps are synthesized from the frame interval.
func NewMemChannel(name string, array *Cube, pxSizeUm, fintervalMs float64, elapsedMs []float64) (*Channel, error) {
	if array == nil || array.Frames == 0 {
		return nil, fmt.Errorf("channel %q has no frames", name)
	}
	if pxSizeUm <= 0 {
		return nil, fmt.Errorf("pixel size must be positive, got %g", pxSizeUm)
	}
	if fintervalMs < 0 {
		return nil, fmt.Errorf("frame interval must be non-negative, got %g", fintervalMs)
	}
	if elapsedMs == nil {
		elapsedMs = make([]float64, array.Frames)
		for i := range elapsedMs {
			elapsedMs[i] = float64(i) * fintervalMs
		}
	}
	if len(elapsedMs) != array.Frames {
		return nil, fmt.Errorf("have %d timestamps for %d frames", len(elapsedMs), array.Frames)
	}
	return &Channel{
		name:        name,
		pxSizeUm:    pxSizeUm,
		fintervalMs: fintervalMs,
		elapsedMs:   elapsedMs,
		array:       array,
	}, nil
}

// extractElapsedTimes returns per-frame acquisition timestamps. Real
// timestamps exist only in MicroManager files; otherwise the nominal frame
// interval is trusted.
func extractElapsedTimes(meta *Metadata, pages []int, fintervalMs float64) []float64 {
	out := make([]float64, len(pages))

	if meta.MicroManager != nil && len(meta.MicroManager.ElapsedMs) > 0 {
		stamps := meta.MicroManager.ElapsedMs
		covered := true
		for _, p := range pages {
			if p >= len(stamps) {
				covered = false
				break
			}
		}
		if covered {
			for i, p := range pages {
				out[i] = stamps[p]
			}
			return out
		}
	}

	for i := range out {
		out[i] = float64(i) * fintervalMs
	}
	return out
}

// Name returns the display name of the channel.
func (c *Channel) Name() string { return c.name }

// ChannelIndex returns the source channel index.
func (c *Channel) ChannelIndex() int { return c.index }

// SliceIndex returns the source z-slice index.
func (c *Channel) SliceIndex() int { return c.slice }

// PixelSizeUm returns the pixel size in micrometers.
func (c *Channel) PixelSizeUm() float64 { return c.pxSizeUm }

// FrameIntervalMs returns the nominal frame interval recorded in the
// acquisition metadata, in milliseconds.
func (c *Channel) FrameIntervalMs() float64 { return c.fintervalMs }

// Frames returns the number of frames in the channel.
func (c *Channel) Frames() int { return len(c.elapsedMs) }

// ElapsedMs returns the per-frame acquisition timestamps in milliseconds
// from the start of the acquisition.
func (c *Channel) ElapsedMs() []float64 { return c.elapsedMs }

// Array returns the channel samples as a (frame, y, x) cube. The cube is
// read from the source on first call and cached.
func (c *Channel) Array() (*Cube, error) {
	if c.array != nil {
		return c.array, nil
	}

	first, h, w, err := c.src.Plane(c.pages[0])
	if err != nil {
		return nil, err
	}
	cube := NewCube(len(c.pages), h, w)
	copy(cube.Frame(0), first)

	for i := 1; i < len(c.pages); i++ {
		plane, ph, pw, err := c.src.Plane(c.pages[i])
		if err != nil {
			return nil, err
		}
		if ph != h || pw != w {
			return nil, fmt.Errorf("page %d is %dx%d, expected %dx%d", c.pages[i], pw, ph, w, h)
		}
		copy(cube.Frame(i), plane)
	}

	c.array = cube
	return c.array, nil
}

// ActualFrameIntervalsMs returns the consecutive differences of the
// acquisition timestamps. The result has one fewer entry than the channel
// has frames; nil is returned for single-frame channels.
func (c *Channel) ActualFrameIntervalsMs() []float64 {
	if len(c.elapsedMs) < 2 {
		return nil
	}
	out := make([]float64, len(c.elapsedMs)-1)
	for i := 1; i < len(c.elapsedMs); i++ {
		out[i-1] = c.elapsedMs[i] - c.elapsedMs[i-1]
	}
	return out
}

// FrameIntervalSane checks that the mean actual frame interval agrees with
// the nominal interval to within maxDiff, expressed as a fraction. The
// comparison is inclusive, so a deviation of exactly maxDiff passes.
// Single-frame channels have no actual intervals and return an error; a
// zero nominal interval fails outright.
func (c *Channel) FrameIntervalSane(maxDiff float64) (bool, error) {
	actual := c.ActualFrameIntervalsMs()
	if actual == nil {
		return false, fmt.Errorf("interval check not defined for single-frame channel %q", c.name)
	}
	if c.fintervalMs == 0 {
		return false, nil
	}
	fract := stat.Mean(actual, nil) / c.fintervalMs
	return math.Abs(1-fract) <= maxDiff, nil
}
