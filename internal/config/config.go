// Package config loads the run configuration from environment variables
// (prefix D4G), an optional d4g.yaml file, and command-line overrides applied
// by the caller. Environment beats file; flags beat both.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// ClassifierMode selects how the persona grid resolves overlapping rules.
const (
	// ModeGrid evaluates the six rules in order with last-match-wins
	// overwrite semantics. This is the historical behavior and the default.
	ModeGrid = "grid"
	// ModeTree uses a strictly partitioning decision tree with half-open
	// amount bands, so no account ever matches two rules.
	ModeTree = "tree"
)

// Config is the complete run configuration.
type Config struct {
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Analysis AnalysisConfig `yaml:"analysis" envconfig:"ANALYSIS"`
}

// PathsConfig locates the input extracts and the output folder.
type PathsConfig struct {
	InputDir  string `yaml:"input_dir" envconfig:"INPUT_DIR" validate:"required"`
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR"`
}

// LoggingConfig configures the slog setup.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Output string `yaml:"output" envconfig:"OUTPUT" default:"both" validate:"oneof=console file both"`
}

// AnalysisConfig holds the engine knobs.
type AnalysisConfig struct {
	// AsOfDate anchors every "current year" computation, format 2006-01-02.
	// Empty means today, resolved once by the caller, never inside the engine.
	AsOfDate string `yaml:"as_of_date" envconfig:"AS_OF_DATE"`
	// ClassifierMode is "grid" (ordered overwrite) or "tree" (strict partition).
	ClassifierMode string `yaml:"classifier_mode" envconfig:"CLASSIFIER_MODE" default:"grid" validate:"oneof=grid tree"`
	// RecencyYears is the span of the trailing recency window, as-of year included.
	RecencyYears int  `yaml:"recency_years" envconfig:"RECENCY_YEARS" default:"6" validate:"min=1,max=25"`
	Charts       bool `yaml:"charts" envconfig:"CHARTS" default:"true"`
	Excel        bool `yaml:"excel" envconfig:"EXCEL" default:"true"`
}

// Load builds the configuration from environment variables and, when present,
// a d4g.yaml next to the working directory. Validation is deferred to
// Finalize so callers can layer flag overrides first.
func Load() (*Config, error) {
	var (
		fileCfg Config
		toggles fileToggles
	)
	if data, err := os.ReadFile(configFilePath()); err == nil {
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configFilePath(), err)
		}
		if err := yaml.Unmarshal(data, &toggles); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configFilePath(), err)
		}
	}

	cfg := fileCfg
	if err := envconfig.Process("D4G", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}
	// envconfig fills defaults even when the file set a value; restore
	// file-provided fields the environment left untouched.
	mergeFromFile(&cfg, fileCfg, toggles)

	return &cfg, nil
}

// Finalize fills derived defaults and validates the configuration. now is the
// wall-clock anchor used only for defaulting AsOfDate and naming the output
// folder, keeping the engine itself clock-free.
func (c *Config) Finalize(now time.Time) error {
	if c.Paths.InputDir == "" {
		c.Paths.InputDir, _ = os.Getwd()
	}
	if c.Paths.OutputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
		c.Paths.OutputDir = filepath.Join(wd, "Output"+now.Format("2006_01_02_15_04"))
	}
	if c.Analysis.AsOfDate == "" {
		c.Analysis.AsOfDate = now.Format("2006-01-02")
	}
	if _, err := c.AsOfDate(); err != nil {
		return err
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// AsOfDate parses the configured as-of date.
func (c *Config) AsOfDate() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.Analysis.AsOfDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid as_of_date %q: %w", c.Analysis.AsOfDate, err)
	}
	return t, nil
}

// ChartsDir returns the chart output folder inside the run's output folder.
func (c *Config) ChartsDir() string {
	return filepath.Join(c.Paths.OutputDir, "charts")
}

// LogFilePath returns the run's log file path inside the output folder,
// named the way the legacy tooling named it.
func (c *Config) LogFilePath(now time.Time) string {
	return filepath.Join(c.Paths.OutputDir, now.Format("2006_01_02_15_04")+"Analysis.log")
}

func configFilePath() string {
	if p := os.Getenv("D4G_CONFIG_FILE"); p != "" {
		return p
	}
	return "d4g.yaml"
}

// fileToggles re-reads the boolean toggles as pointers so mergeFromFile can
// tell "charts: false in the file" apart from "charts absent".
type fileToggles struct {
	Analysis struct {
		Charts *bool `yaml:"charts"`
		Excel  *bool `yaml:"excel"`
	} `yaml:"analysis"`
}

func mergeFromFile(dst *Config, file Config, toggles fileToggles) {
	if dst.Paths.InputDir == "" {
		dst.Paths.InputDir = file.Paths.InputDir
	}
	if dst.Paths.OutputDir == "" {
		dst.Paths.OutputDir = file.Paths.OutputDir
	}
	if file.Logging.Level != "" && os.Getenv("D4G_LOGGING_LEVEL") == "" {
		dst.Logging.Level = file.Logging.Level
	}
	if file.Logging.Output != "" && os.Getenv("D4G_LOGGING_OUTPUT") == "" {
		dst.Logging.Output = file.Logging.Output
	}
	if file.Analysis.AsOfDate != "" && os.Getenv("D4G_ANALYSIS_AS_OF_DATE") == "" {
		dst.Analysis.AsOfDate = file.Analysis.AsOfDate
	}
	if file.Analysis.ClassifierMode != "" && os.Getenv("D4G_ANALYSIS_CLASSIFIER_MODE") == "" {
		dst.Analysis.ClassifierMode = file.Analysis.ClassifierMode
	}
	if file.Analysis.RecencyYears != 0 && os.Getenv("D4G_ANALYSIS_RECENCY_YEARS") == "" {
		dst.Analysis.RecencyYears = file.Analysis.RecencyYears
	}
	if toggles.Analysis.Charts != nil && os.Getenv("D4G_ANALYSIS_CHARTS") == "" {
		dst.Analysis.Charts = *toggles.Analysis.Charts
	}
	if toggles.Analysis.Excel != nil && os.Getenv("D4G_ANALYSIS_EXCEL") == "" {
		dst.Analysis.Excel = *toggles.Analysis.Excel
	}
}
