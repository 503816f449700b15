// Command analysis runs the donor report pipeline: persona classification,
// email campaign engagement, and church giving, writing every artifact into a
// timestamped output folder.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/jayroplekar/D4G/internal/campaign"
	"github.com/jayroplekar/D4G/internal/church"
	"github.com/jayroplekar/D4G/internal/config"
	"github.com/jayroplekar/D4G/internal/infrastructure"
	"github.com/jayroplekar/D4G/internal/persona"
	"github.com/jayroplekar/D4G/internal/runner"
)

func main() {
	inputDir := flag.String("input", "", "directory holding the input extracts (defaults to D4G_PATHS_INPUT_DIR, then the working directory)")
	outputDir := flag.String("output", "", "output directory (defaults to Output<timestamp> under the working directory)")
	asOf := flag.String("as-of", "", "as-of date YYYY-MM-DD anchoring all year windows (defaults to today)")
	mode := flag.String("mode", "", "persona classifier mode: grid or tree")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Flags beat environment and file.
	if *inputDir != "" {
		cfg.Paths.InputDir = *inputDir
	}
	if *outputDir != "" {
		cfg.Paths.OutputDir = *outputDir
	}
	if *asOf != "" {
		cfg.Analysis.AsOfDate = *asOf
	}
	if *mode != "" {
		cfg.Analysis.ClassifierMode = *mode
	}

	now := time.Now()
	if err := cfg.Finalize(now); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.Paths.OutputDir, 0755); err != nil {
		slog.Error("Failed to create output directory", "dir", cfg.Paths.OutputDir, "error", err)
		os.Exit(1)
	}

	logger, closeLogger, err := infrastructure.InitLogger(cfg.Logging, cfg.LogFilePath(now))
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer closeLogger()

	exe, _ := os.Executable()
	logger.Info("donor analysis starting",
		slog.String("executable", exe),
		slog.String("input_dir", cfg.Paths.InputDir),
		slog.String("output_dir", cfg.Paths.OutputDir),
		slog.String("as_of", cfg.Analysis.AsOfDate),
		slog.String("classifier_mode", cfg.Analysis.ClassifierMode))

	r := runner.New(logger,
		persona.NewAnalysis(cfg, logger),
		campaign.NewAnalysis(cfg, logger),
		church.NewAnalysis(cfg, logger),
	)

	ctx := context.Background()
	failed, err := r.Run(ctx, cfg.Paths.OutputDir)
	if err != nil {
		logger.Error("Failed to write error summary", "error", err)
		os.Exit(1)
	}
	if failed > 0 {
		logger.Error("Run finished with failures", "failed_modules", failed)
		os.Exit(1)
	}
	logger.Info("donor analysis complete", "output_dir", cfg.Paths.OutputDir)
}
