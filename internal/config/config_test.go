package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("D4G_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "both", cfg.Logging.Output)
	assert.Equal(t, ModeGrid, cfg.Analysis.ClassifierMode)
	assert.Equal(t, 6, cfg.Analysis.RecencyYears)
	assert.True(t, cfg.Analysis.Charts)
	assert.True(t, cfg.Analysis.Excel)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "d4g.yaml")
	require.NoError(t, os.WriteFile(file, []byte(
		"paths:\n  input_dir: /data/from-file\nanalysis:\n  classifier_mode: tree\n  as_of_date: \"2024-06-30\"\n"), 0644))
	t.Setenv("D4G_CONFIG_FILE", file)
	t.Setenv("D4G_PATHS_INPUT_DIR", "/data/from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/from-env", cfg.Paths.InputDir)
	assert.Equal(t, ModeTree, cfg.Analysis.ClassifierMode)
	assert.Equal(t, "2024-06-30", cfg.Analysis.AsOfDate)
}

func TestLoadFileDisablesToggles(t *testing.T) {
	file := filepath.Join(t.TempDir(), "d4g.yaml")
	require.NoError(t, os.WriteFile(file, []byte(
		"analysis:\n  charts: false\n  excel: false\n"), 0644))
	t.Setenv("D4G_CONFIG_FILE", file)

	cfg, err := Load()
	require.NoError(t, err)

	// A file-provided false must survive the env defaults.
	assert.False(t, cfg.Analysis.Charts)
	assert.False(t, cfg.Analysis.Excel)

	t.Setenv("D4G_ANALYSIS_CHARTS", "true")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.Analysis.Charts)
	assert.False(t, cfg.Analysis.Excel)
}

func TestFinalize(t *testing.T) {
	now := time.Date(2025, 8, 30, 14, 5, 0, 0, time.UTC)

	t.Run("fills defaults", func(t *testing.T) {
		cfg := &Config{
			Paths:    PathsConfig{InputDir: t.TempDir()},
			Logging:  LoggingConfig{Level: "info", Output: "both"},
			Analysis: AnalysisConfig{ClassifierMode: ModeGrid, RecencyYears: 6},
		}
		require.NoError(t, cfg.Finalize(now))

		assert.Equal(t, "2025-08-30", cfg.Analysis.AsOfDate)
		assert.Contains(t, cfg.Paths.OutputDir, "Output2025_08_30_14_05")

		asOf, err := cfg.AsOfDate()
		require.NoError(t, err)
		assert.Equal(t, 2025, asOf.Year())
	})

	t.Run("rejects bad as-of date", func(t *testing.T) {
		cfg := &Config{
			Paths:    PathsConfig{InputDir: t.TempDir(), OutputDir: t.TempDir()},
			Logging:  LoggingConfig{Level: "info", Output: "both"},
			Analysis: AnalysisConfig{AsOfDate: "30/08/2025", ClassifierMode: ModeGrid, RecencyYears: 6},
		}
		assert.Error(t, cfg.Finalize(now))
	})

	t.Run("rejects unknown classifier mode", func(t *testing.T) {
		cfg := &Config{
			Paths:    PathsConfig{InputDir: t.TempDir(), OutputDir: t.TempDir()},
			Logging:  LoggingConfig{Level: "info", Output: "both"},
			Analysis: AnalysisConfig{AsOfDate: "2025-08-30", ClassifierMode: "forest", RecencyYears: 6},
		}
		assert.Error(t, cfg.Finalize(now))
	})

	t.Run("log file path", func(t *testing.T) {
		cfg := &Config{Paths: PathsConfig{OutputDir: "/tmp/out"}}
		assert.Equal(t, filepath.Join("/tmp/out", "2025_08_30_14_05Analysis.log"), cfg.LogFilePath(now))
	})
}
