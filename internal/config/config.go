// Package config provides JSON-based analysis settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cellflow/internal/flow"
	"cellflow/internal/stack"
)

const configFile = "config.json"

// Config holds the analysis defaults. Zero-value fields are filled in from
// Default on load, so a partial file only overrides what it names.
type Config struct {
	Unit      string               `json:"unit"`      // um/s, um/min or um/h
	Estimator string               `json:"estimator"` // farneback or piv
	Farneback flow.FarnebackParams `json:"farneback"`
	PIV       flow.PIVParams       `json:"piv"`
	Median    MedianConfig         `json:"median"`
	Output    OutputConfig         `json:"output"`
}

// MedianConfig controls the optional temporal median prefilter.
type MedianConfig struct {
	Enabled bool                `json:"enabled"`
	Options stack.MedianOptions `json:"options"`
}

// OutputConfig controls which artifacts a run writes.
type OutputConfig struct {
	DrawFlow       bool    `json:"draw_flow"`
	Scalebar       bool    `json:"scalebar"`
	ScalebarLength float64 `json:"scalebar_length"`
	CSV            bool    `json:"csv"`
	Plots          bool    `json:"plots"`
	TimeUnit       string  `json:"time_unit"` // s, min, h or days
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Unit:      string(flow.UmPerSecond),
		Estimator: "farneback",
		Farneback: flow.DefaultFarnebackParams(),
		PIV:       flow.DefaultPIVParams(),
		Median: MedianConfig{
			Options: stack.DefaultMedianOptions(),
		},
		Output: OutputConfig{
			DrawFlow:       true,
			ScalebarLength: 10,
			CSV:            true,
			TimeUnit:       "s",
		},
	}
}

// DefaultPath returns ~/.config/cellflow/config.json.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "cellflow", configFile)
}

// Load reads settings from path. A missing file yields the defaults; a
// malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Save writes the settings to path, creating parent directories as needed.
func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
