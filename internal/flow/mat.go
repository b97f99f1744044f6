package flow

import (
	"gocv.io/x/gocv"
)

// matFromBytes copies an 8-bit sample plane into a single-channel gocv Mat.
func matFromBytes(plane []uint8, h, w int) gocv.Mat {
	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8U)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mat.SetUCharAt(y, x, plane[y*w+x])
		}
	}
	return mat
}

// matFromFloats copies a float32 sample plane into a single-channel gocv Mat.
func matFromFloats(plane []float32, h, w int) gocv.Mat {
	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV32F)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mat.SetFloatAt(y, x, plane[y*w+x])
		}
	}
	return mat
}
