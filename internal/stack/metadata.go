package stack

import (
	"fmt"
	"regexp"
)

// Metadata mirrors the acquisition-software metadata carried alongside the
// frame images. Exactly one of the schema branches is normally present;
// MicroManager wins if both are.
//
// The two acquisition programs in circulation disagree on where calibration
// lives and which unit strings they write, so all consumers go through
// PixelSizeUm and FrameIntervalMs instead of reading fields directly.
type Metadata struct {
	MicroManager *MicroManagerMeta `json:"micromanager,omitempty"`
	ImageJ       *ImageJMeta       `json:"imagej,omitempty"`
}

// MicroManagerMeta holds the subset of MicroManager metadata the pipeline
// consumes. Field locations differ between program generations: 2.0-beta
// stores the pixel size at the root and the frame interval as WaitInterval,
// while 1.4.x and 2.0-gamma store both under Summary.
type MicroManagerMeta struct {
	Summary     MMSummary `json:"Summary"`
	PixelSizeUm float64   `json:"PixelSize_um,omitempty"` // root-level, 2.0-beta only
	IndexMap    *IndexMap `json:"IndexMap,omitempty"`
	ElapsedMs   []float64 `json:"ElapsedTime-ms,omitempty"` // per page, acquisition timestamps
}

// MMSummary is the MicroManager acquisition summary block.
type MMSummary struct {
	Version      string  `json:"MicroManagerVersion"`
	PixelSizeUm  float64 `json:"PixelSize_um,omitempty"`
	IntervalMs   float64 `json:"Interval_ms,omitempty"`
	WaitInterval float64 `json:"WaitInterval,omitempty"`
	Channels     int     `json:"Channels,omitempty"`
	Slices       int     `json:"Slices,omitempty"`
}

// IndexMap assigns each page of the container to a channel and z-slice.
type IndexMap struct {
	Channel []int `json:"Channel"`
	Slice   []int `json:"Slice"`
}

// ImageJMeta holds ImageJ hyperstack calibration. Pixel size comes from the
// XResolution rational in a declared size unit; the frame interval comes
// from finterval in a declared time unit. Nil interval means unset.
type ImageJMeta struct {
	XResolution Rational `json:"XResolution"`
	Unit        string   `json:"unit,omitempty"`      // size unit, defaults to µm
	FInterval   *float64 `json:"finterval,omitempty"` // defaults to 1
	TUnit       string   `json:"tunit,omitempty"`     // time unit, defaults to s
	Channels    int      `json:"channels,omitempty"`
	Slices      int      `json:"slices,omitempty"`
}

// Rational is a TIF-tag style rational value.
type Rational struct {
	Num   uint32 `json:"num"`
	Denom uint32 `json:"denom"`
}

// MicroManager version dispatch. 1.4.x and 2.0-gamma share a layout;
// 2.0-beta is the odd one out.
var (
	mmVersion14    = regexp.MustCompile(`1\.4\.\d`)
	mmVersionGamma = regexp.MustCompile(`gamma`)
	mmVersionBeta  = regexp.MustCompile(`beta`)
)

// Size-unit vocabularies seen in ImageJ files, normalized to µm.
var sizeUnitToUm = map[string]float64{
	"cm": 10000, "centimeter": 10000, "centimeters": 10000,
	"mm": 1000, "millimeter": 1000, "millimeters": 1000,
	"µm": 1, "um": 1, "micrometer": 1, "micron": 1,
}

// Time-unit vocabularies seen in ImageJ files, normalized to ms.
var timeUnitToMs = map[string]float64{
	"min": 60 * 1000, "mins": 60 * 1000, "minutes": 60 * 1000, "m": 60 * 1000,
	"hour": 60 * 60 * 1000, "hours": 60 * 60 * 1000, "h": 60 * 60 * 1000,
	"seconds": 1000, "sec": 1000, "s": 1000,
}

// PixelSizeUm resolves the pixel size in micrometers from whichever schema
// is present. Unrecognized program versions or unit strings are errors.
func (m *Metadata) PixelSizeUm() (float64, error) {
	switch {
	case m.MicroManager != nil:
		mm := m.MicroManager
		version := mm.Summary.Version
		switch {
		case mmVersionBeta.MatchString(version):
			return mm.PixelSizeUm, nil
		case mmVersion14.MatchString(version), mmVersionGamma.MatchString(version):
			return mm.Summary.PixelSizeUm, nil
		default:
			return 0, fmt.Errorf("unrecognized MicroManager version %q", version)
		}

	case m.ImageJ != nil:
		ij := m.ImageJ
		if ij.XResolution.Num == 0 {
			return 0, fmt.Errorf("XResolution numerator is zero")
		}
		pxSize := float64(ij.XResolution.Denom) / float64(ij.XResolution.Num)

		unit := ij.Unit
		if unit == "" {
			unit = "µm"
		}
		factor, ok := sizeUnitToUm[unit]
		if !ok {
			return 0, fmt.Errorf("unrecognized size unit %q", unit)
		}
		return pxSize * factor, nil
	}

	return 0, fmt.Errorf("no pixel size found in metadata")
}

// FrameIntervalMs resolves the nominal frame interval in milliseconds from
// whichever schema is present.
func (m *Metadata) FrameIntervalMs() (float64, error) {
	switch {
	case m.MicroManager != nil:
		mm := m.MicroManager
		version := mm.Summary.Version
		switch {
		case mmVersionBeta.MatchString(version):
			return mm.Summary.WaitInterval, nil
		case mmVersion14.MatchString(version), mmVersionGamma.MatchString(version):
			return mm.Summary.IntervalMs, nil
		default:
			return 0, fmt.Errorf("unrecognized MicroManager version %q", version)
		}

	case m.ImageJ != nil:
		ij := m.ImageJ
		finterval := 1.0
		if ij.FInterval != nil {
			finterval = *ij.FInterval
		}
		unit := ij.TUnit
		if unit == "" {
			unit = "s"
		}
		factor, ok := timeUnitToMs[unit]
		if !ok {
			return 0, fmt.Errorf("unrecognized time unit %q", unit)
		}
		return finterval * factor, nil
	}

	return 0, fmt.Errorf("no frame interval found in metadata")
}

// ChannelCount reports the number of channels declared in the metadata,
// defaulting to 1.
func (m *Metadata) ChannelCount() int {
	if m.MicroManager != nil && m.MicroManager.Summary.Channels > 0 {
		return m.MicroManager.Summary.Channels
	}
	if m.ImageJ != nil && m.ImageJ.Channels > 0 {
		return m.ImageJ.Channels
	}
	return 1
}

// SliceCount reports the number of z-slices declared in the metadata,
// defaulting to 1.
func (m *Metadata) SliceCount() int {
	if m.MicroManager != nil && m.MicroManager.Summary.Slices > 0 {
		return m.MicroManager.Summary.Slices
	}
	if m.ImageJ != nil && m.ImageJ.Slices > 0 {
		return m.ImageJ.Slices
	}
	return 1
}

// PageLayout maps every page index to its (channel, slice) pair. An
// explicit MicroManager IndexMap wins; otherwise the channel-major
// hyperstack interleave is assumed.
func (m *Metadata) PageLayout(pages int) (channelOf, sliceOf []int, err error) {
	if m.MicroManager != nil && m.MicroManager.IndexMap != nil {
		im := m.MicroManager.IndexMap
		if len(im.Channel) != pages || len(im.Slice) != pages {
			return nil, nil, fmt.Errorf("index map covers %d/%d pages, have %d",
				len(im.Channel), len(im.Slice), pages)
		}
		return im.Channel, im.Slice, nil
	}

	nChannels := m.ChannelCount()
	nSlices := m.SliceCount()
	channelOf = make([]int, pages)
	sliceOf = make([]int, pages)
	for i := 0; i < pages; i++ {
		channelOf[i] = i % nChannels
		sliceOf[i] = (i / nChannels) % nSlices
	}
	return channelOf, sliceOf, nil
}
