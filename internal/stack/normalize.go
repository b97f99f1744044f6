package stack

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Normalize8Bit rescales a cube to 8-bit for visualization, saturating
// lowClip percent of samples at the dark end and highClip percent at the
// bright end. The defaults of 0.175/0.175 saturate 0.35% of pixels in
// total, which matches the usual auto-contrast behaviour.
func Normalize8Bit(c *Cube, lowClip, highClip float64) *Cube8 {
	sorted := make([]float64, len(c.Data))
	for i, v := range c.Data {
		sorted[i] = float64(v)
	}
	sort.Float64s(sorted)

	low := stat.Quantile(lowClip/100, stat.Empirical, sorted, nil)
	high := stat.Quantile(1-highClip/100, stat.Empirical, sorted, nil)

	out := NewCube8(c.Frames, c.Height, c.Width)
	span := high - low
	for i, v := range c.Data {
		switch {
		case span <= 0 || float64(v) <= low:
			out.Data[i] = 0
		case float64(v) >= high:
			out.Data[i] = 255
		default:
			out.Data[i] = uint8((float64(v) - low) / span * 255)
		}
	}
	return out
}

// To8Bit linearly rescales a cube over its global min/max range without
// clipping. Flow estimation inputs use this to preserve relative sample
// values.
func To8Bit(c *Cube) *Cube8 {
	lo, hi := c.MinMax()
	out := NewCube8(c.Frames, c.Height, c.Width)
	span := float64(hi) - float64(lo)
	if span <= 0 {
		return out
	}
	for i, v := range c.Data {
		out.Data[i] = uint8((float64(v) - float64(lo)) / span * 255)
	}
	return out
}
