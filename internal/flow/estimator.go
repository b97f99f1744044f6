// Package flow computes velocity fields between consecutive frames of a
// time-lapse channel. Two estimation strategies are provided: a dense
// per-pixel estimator backed by the pyramidal Farneback algorithm and a
// windowed cross-correlation (PIV style) estimator producing one vector per
// search window.
package flow

import (
	"fmt"

	"cellflow/internal/stack"
)

// Unit is a physical velocity unit for scaled flow output.
type Unit string

const (
	UmPerSecond Unit = "um/s"
	UmPerMinute Unit = "um/min"
	UmPerHour   Unit = "um/h"
)

// secondsPerUnit maps a velocity unit to the number of seconds in its time
// denominator.
var secondsPerUnit = map[Unit]float64{
	UmPerSecond: 1,
	UmPerMinute: 60,
	UmPerHour:   60 * 60,
}

// Scaler returns the factor converting vector lengths from pixels/frame to
// the requested physical unit:
//
//	um/px * frames/min * px/frame = um/min
//
// It is a pure function of the calibration; scaling to um/min yields
// exactly 60x the um/s scaler for the same inputs.
func Scaler(pxSizeUm, fintervalMs float64, unit Unit) (float64, error) {
	seconds, ok := secondsPerUnit[unit]
	if !ok {
		return 0, fmt.Errorf("unit has to be one of %q, %q, %q; got %q",
			UmPerSecond, UmPerMinute, UmPerHour, unit)
	}
	if fintervalMs <= 0 {
		return 0, fmt.Errorf("frame interval must be positive to scale flow, got %g ms", fintervalMs)
	}
	framesPerUnit := seconds / (fintervalMs / 1000)
	return pxSizeUm * framesPerUnit, nil
}

// Progress receives completion percentages in [0,100]. Estimators reset it
// to 0 at the start of a computation and report after every processed frame
// pair.
type Progress func(pct float64)

// ChannelSource is the part of a stack channel the estimators consume.
// Both stack.Channel and stack.MedianChannel satisfy it.
type ChannelSource interface {
	Array() (*stack.Cube, error)
	PixelSizeUm() float64
	FrameIntervalMs() float64
	Name() string
}

// Estimator computes a velocity field from a channel.
type Estimator interface {
	Compute(ch ChannelSource) (*Field, error)
}

func report(p Progress, pct float64) {
	if p != nil {
		p(pct)
	}
}
