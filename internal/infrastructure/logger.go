// Package infrastructure wires up the run-wide slog logger: JSON output to
// the console, the run's log file in the output folder, or both.
package infrastructure

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jayroplekar/D4G/internal/config"
)

// InitLogger creates the logger described by cfg and installs it as the slog
// default. logPath is the run's log file inside the output folder; an
// existing file from an aborted run is replaced. The returned closer flushes
// and closes the log file and must be called on shutdown.
func InitLogger(cfg config.LoggingConfig, logPath string) (*slog.Logger, func() error, error) {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}

	var output io.Writer = os.Stdout
	var file *os.File

	switch strings.ToLower(cfg.Output) {
	case "file", "both":
		f, err := openLogFile(logPath)
		if err != nil {
			return nil, nil, err
		}
		file = f
		if strings.ToLower(cfg.Output) == "both" {
			output = io.MultiWriter(os.Stdout, f)
		} else {
			output = f
		}
	}

	logger := slog.New(slog.NewJSONHandler(output, opts))
	slog.SetDefault(logger)

	closer := func() error {
		if file != nil {
			return file.Close()
		}
		return nil
	}
	return logger, closer, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	// Truncate, not append: one log file per run, replaced on rerun.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return f, nil
}
