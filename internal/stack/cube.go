// Package stack handles time-lapse image stacks: frame containers,
// acquisition metadata normalization, channels and temporal projections.
package stack

import (
	"math"
)

// Cube is a dense (frame, y, x) float32 image sequence. Data is stored
// frame-major, row-major within a frame.
type Cube struct {
	Frames int
	Height int
	Width  int
	Data   []float32
}

// NewCube allocates a zero-filled cube with the given dimensions.
func NewCube(frames, height, width int) *Cube {
	return &Cube{
		Frames: frames,
		Height: height,
		Width:  width,
		Data:   make([]float32, frames*height*width),
	}
}

// Frame returns the i-th frame as a shared slice view.
func (c *Cube) Frame(i int) []float32 {
	n := c.Height * c.Width
	return c.Data[i*n : (i+1)*n]
}

// At returns the sample at (frame, y, x).
func (c *Cube) At(t, y, x int) float32 {
	return c.Data[(t*c.Height+y)*c.Width+x]
}

// Set writes the sample at (frame, y, x).
func (c *Cube) Set(t, y, x int, v float32) {
	c.Data[(t*c.Height+y)*c.Width+x] = v
}

// MinMax returns the smallest and largest finite sample in the cube.
func (c *Cube) MinMax() (lo, hi float32) {
	lo = float32(math.Inf(1))
	hi = float32(math.Inf(-1))
	for _, v := range c.Data {
		if math.IsNaN(float64(v)) {
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Cube8 is a dense (frame, y, x) 8-bit image sequence used for drawable
// visualization output.
type Cube8 struct {
	Frames int
	Height int
	Width  int
	Data   []uint8
}

// NewCube8 allocates a zero-filled 8-bit cube with the given dimensions.
func NewCube8(frames, height, width int) *Cube8 {
	return &Cube8{
		Frames: frames,
		Height: height,
		Width:  width,
		Data:   make([]uint8, frames*height*width),
	}
}

// Frame returns the i-th frame as a shared slice view.
func (c *Cube8) Frame(i int) []uint8 {
	n := c.Height * c.Width
	return c.Data[i*n : (i+1)*n]
}
