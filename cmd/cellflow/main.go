// Command cellflow runs optical-flow motion analysis on a microscopy
// time-lapse stack and writes velocity visualizations, metric tables and
// plots.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cellflow/internal/config"
	"cellflow/internal/flow"
	"cellflow/internal/metrics"
	"cellflow/internal/render"
	"cellflow/internal/stack"
	"cellflow/internal/version"
)

func main() {
	input := flag.String("i", "", "Directory containing the frame images")
	metaPath := flag.String("meta", "", "Acquisition metadata sidecar (default <input>/metadata.json)")
	outDir := flag.String("o", "cellflow-out", "Output directory")
	configPath := flag.String("config", config.DefaultPath(), "Analysis settings file")
	chIndex := flag.Int("ch", 0, "Channel index to analyze")
	sliceIndex := flag.Int("slice", 0, "Z-slice index to analyze")
	name := flag.String("name", "", "Channel display name (default ch<index>)")
	algo := flag.String("algo", "", "Flow estimator: farneback or piv (default from config)")
	unit := flag.String("unit", "", "Velocity unit: um/s, um/min or um/h (default from config)")
	median := flag.Int("median", -1, "Temporal median window, 0 disables (default from config)")
	staggered := flag.Bool("staggered", false, "Use staggered instead of gliding median projection")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *input == "" {
		fmt.Println("Usage: cellflow -i <stack dir> [-o <out dir>] [-algo farneback|piv] [-unit um/s|um/min|um/h]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *algo != "" {
		cfg.Estimator = *algo
	}
	if *unit != "" {
		cfg.Unit = *unit
	}
	if *median >= 0 {
		cfg.Median.Enabled = *median > 0
		if *median > 0 {
			cfg.Median.Options.Window = *median
		}
	}
	if *staggered {
		cfg.Median.Options.Gliding = false
	}

	if err := run(cfg, *input, *metaPath, *outDir, *chIndex, *sliceIndex, *name); err != nil {
		fmt.Fprintf(os.Stderr, "Analysis failed: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, input, metaPath, outDir string, chIndex, sliceIndex int, name string) error {
	src, err := stack.OpenDir(input, metaPath)
	if err != nil {
		return err
	}

	if name == "" {
		name = fmt.Sprintf("ch%d", chIndex)
	}
	ch, err := stack.NewChannel(src, chIndex, sliceIndex, name)
	if err != nil {
		return err
	}

	fmt.Printf("=== %s: %d frames, %.3f um/px, %.1f ms interval ===\n",
		ch.Name(), ch.Frames(), ch.PixelSizeUm(), ch.FrameIntervalMs())

	if ok, err := ch.FrameIntervalSane(0.01); err != nil {
		fmt.Printf("Frame interval check skipped: %v\n", err)
	} else if !ok {
		fmt.Printf("Warning: actual frame intervals deviate >1%% from the %g ms setting\n",
			ch.FrameIntervalMs())
	}

	var source flow.ChannelSource = ch
	if cfg.Median.Enabled {
		mc, err := stack.NewMedianChannel(ch, cfg.Median.Options)
		if err != nil {
			return fmt.Errorf("median filter: %w", err)
		}
		fmt.Printf("Median filter: %d-frame window, %d output frames\n",
			cfg.Median.Options.Window, mc.Frames())
		source = mc
	}

	progress := func(pct float64) {
		fmt.Printf("Progress: %.1f %% on %s\n", pct, name)
	}

	var estimator flow.Estimator
	switch cfg.Estimator {
	case "farneback":
		fb, err := flow.NewFarneback(flow.Unit(cfg.Unit), cfg.Farneback)
		if err != nil {
			return err
		}
		fb.Progress = progress
		estimator = fb
	case "piv":
		piv, err := flow.NewPIV(flow.Unit(cfg.Unit), cfg.PIV)
		if err != nil {
			return err
		}
		piv.Progress = progress
		estimator = piv
	default:
		return fmt.Errorf("unknown estimator %q (want farneback or piv)", cfg.Estimator)
	}

	field, err := estimator.Compute(source)
	if err != nil {
		return err
	}
	fmt.Printf("Flow: %d time slices of %dx%d vectors\n", field.Frames, field.Width, field.Height)

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	speed := metrics.NewSpeedAnalysis(field)
	align := metrics.NewAlignmentAnalysis(field)
	order := metrics.NewOrderAnalysis(field)

	times, err := metrics.TimePoints(field.Frames, ch.FrameIntervalMs(), cfg.Output.TimeUnit)
	if err != nil {
		return err
	}
	timeHeader := "Time(" + cfg.Output.TimeUnit + ")"

	if cfg.Output.CSV {
		unitTag := strings.ReplaceAll(cfg.Unit, "/", "-per-")
		csvs := []struct {
			suffix, column string
			values         []float64
		}{
			{"_speeds.csv", "AVG_frame_flow_" + cfg.Unit, speed.FrameAverages()},
			{"_ai.csv", "AVG_alignment_index", align.FrameAverages()},
			{"_iop.csv", "instantaneous_order_parameter", order.Values()},
		}
		for _, c := range csvs {
			path := filepath.Join(outDir, name+c.suffix)
			if err := render.WriteSeriesCSV(path, timeHeader, c.column, times, c.values); err != nil {
				return err
			}
		}
		fmt.Printf("Wrote metric tables (%s)\n", unitTag)
	}

	if cfg.Output.Plots {
		plots := []struct {
			suffix, title string
			values        []float64
		}{
			{"_speeds.png", "Mean speed (" + cfg.Unit + ")", speed.FrameAverages()},
			{"_ai.png", "Mean alignment index", align.FrameAverages()},
			{"_iop.png", "Instantaneous order parameter", order.Values()},
		}
		for _, p := range plots {
			path := filepath.Join(outDir, name+p.suffix)
			if err := render.SaveSeriesPlot(path, p.title, timeHeader, p.title, times, p.values); err != nil {
				return err
			}
		}

		hists, err := speed.Histograms(metrics.DefaultHistogramOptions())
		if err != nil {
			return err
		}
		histPath := filepath.Join(outDir, name+"_speed_hist.png")
		if err := render.SaveHistogramPlot(histPath, "Speed distribution, first transition",
			"speed ("+cfg.Unit+")", hists, 0); err != nil {
			return err
		}
		fmt.Println("Wrote plots")
	}

	if cfg.Output.DrawFlow {
		arr, err := source.Array()
		if err != nil {
			return err
		}
		bg := stack.Normalize8Bit(arr, 0.175, 0.175)

		opts := render.DefaultDrawOptions()
		opts.Scalebar = cfg.Output.Scalebar
		opts.ScalebarLength = cfg.Output.ScalebarLength

		drawn, err := render.DrawFlowFrames(field, bg, opts)
		if err != nil {
			return err
		}
		if err := render.SaveFrames(filepath.Join(outDir, "flow"), name+"_flow", drawn); err != nil {
			return err
		}
		fmt.Printf("Wrote %d flow frames\n", drawn.Frames)
	}

	return nil
}
