package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("missing file yields defaults", func(t *testing.T) {
		t.Parallel()
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
		assert.Equal(t, "farneback", cfg.Estimator)
		assert.Equal(t, 0.5, cfg.Farneback.PyrScale)
		assert.True(t, cfg.Median.Options.Gliding)
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("partial file overrides only what it names", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
			"estimator": "piv",
			"piv": {"window_size": 32, "overlap": 16, "search_area_size": 40, "sig2noise_method": "peak2peak"}
		}`), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "piv", cfg.Estimator)
		assert.Equal(t, 32, cfg.PIV.WindowSize)
		// untouched sections keep their defaults
		assert.Equal(t, Default().Farneback, cfg.Farneback)
		assert.Equal(t, Default().Unit, cfg.Unit)
	})
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "deep", "config.json")

	cfg := Default()
	cfg.Estimator = "piv"
	cfg.Unit = "um/min"
	cfg.Median.Enabled = true
	cfg.Median.Options.Window = 5
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
