// Package runner orchestrates the analysis modules: each validates its own
// inputs, failures are isolated and summarized, and siblings always run.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/google/uuid"

	"github.com/jayroplekar/D4G/internal/errors"
)

// Analysis is one independent analysis module. Run validates its own inputs
// and writes its own outputs.
type Analysis interface {
	Name() string
	Run(ctx context.Context) error
}

// Runner executes analyses in order with per-module isolation.
type Runner struct {
	runID    string
	analyses []Analysis
	logger   *slog.Logger
}

// New creates a runner over the given analyses. Every run gets a uuid for
// log correlation and the error summary header.
func New(logger *slog.Logger, analyses ...Analysis) *Runner {
	runID := uuid.NewString()
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		runID:    runID,
		analyses: analyses,
		logger:   logger.With(slog.String("run_id", runID)),
	}
}

// RunID returns this run's identifier.
func (r *Runner) RunID() string { return r.runID }

// Run executes every analysis in order. A failing or panicking module is
// recorded and its siblings still run; the combined failure count comes back
// so the caller can exit non-zero. The error summary lands in outputDir.
func (r *Runner) Run(ctx context.Context, outputDir string) (failed int, err error) {
	summary := errors.NewSummary(r.runID)

	for _, a := range r.analyses {
		r.logger.InfoContext(ctx, "starting analysis module", slog.String("module", a.Name()))
		if err := r.runOne(ctx, a); err != nil {
			r.logger.ErrorContext(ctx, "analysis module failed",
				slog.String("module", a.Name()),
				slog.String("error", err.Error()))
			summary.Record(a.Name(), err)
			continue
		}
		r.logger.InfoContext(ctx, "analysis module finished", slog.String("module", a.Name()))
	}

	if err := summary.Write(outputDir); err != nil {
		return len(summary.Failures()), err
	}
	return len(summary.Failures()), nil
}

// runOne isolates a single module, turning a panic into an error so one
// broken module cannot take down the others.
func (r *Runner) runOne(ctx context.Context, a Analysis) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in %s: %v\n%s", a.Name(), rec, debug.Stack())
		}
	}()
	return a.Run(ctx)
}
