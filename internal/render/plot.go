package render

import (
	"fmt"
	"math"

	"cellflow/internal/metrics"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SaveSeriesPlot writes a line plot of a per-frame metric series to a PNG
// (or any extension gonum/plot supports). NaN entries are left out.
func SaveSeriesPlot(path, title, xlabel, ylabel string, times, values []float64) error {
	if len(times) != len(values) {
		return fmt.Errorf("have %d time points for %d values", len(times), len(values))
	}

	pts := make(plotter.XYs, 0, len(values))
	for i := range values {
		if math.IsNaN(values[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: times[i], Y: values[i]})
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("build series line: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save series plot: %w", err)
	}
	return nil
}

// SaveHistogramPlot writes one frame's speed distribution as a step-style
// line over the bin centers.
func SaveHistogramPlot(path, title, xlabel string, h *metrics.Histograms, frame int) error {
	if frame < 0 || frame >= len(h.Counts) {
		return fmt.Errorf("frame %d out of range [0,%d)", frame, len(h.Counts))
	}

	counts := h.Counts[frame]
	pts := make(plotter.XYs, len(counts))
	for i := range counts {
		center := (h.Dividers[i] + h.Dividers[i+1]) / 2
		pts[i] = plotter.XY{X: center, Y: counts[i]}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	if h.Density {
		p.Y.Label.Text = "density"
	} else {
		p.Y.Label.Text = "count"
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("build histogram line: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save histogram plot: %w", err)
	}
	return nil
}
