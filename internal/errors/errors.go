// Package errors defines the typed error values shared by the analysis
// modules. Validation errors abort a single module; invariant errors mark a
// computation bug and fail the whole run.
package errors

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ValidationError reports a required input table that is missing entirely or
// is missing required columns. It aborts only the analysis module that raised
// it; sibling modules keep running.
type ValidationError struct {
	File    string   // input file name, e.g. "d4g_account.csv"
	Missing []string // missing column names; empty means the file itself is missing
	Err     error    // underlying read error, if any
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch {
	case len(e.Missing) > 0:
		return fmt.Sprintf("file %s is missing columns: %s", e.File, strings.Join(e.Missing, ", "))
	case e.Err != nil:
		return fmt.Sprintf("error reading %s: %v", e.File, e.Err)
	default:
		return fmt.Sprintf("missing required file: %s", e.File)
	}
}

// Unwrap exposes the underlying read error for errors.Is/As.
func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError reports a missing input file.
func NewValidationError(file string) *ValidationError {
	return &ValidationError{File: file}
}

// NewMissingColumnsError reports required columns absent from an input file.
func NewMissingColumnsError(file string, missing []string) *ValidationError {
	cols := make([]string, len(missing))
	copy(cols, missing)
	sort.Strings(cols)
	return &ValidationError{File: file, Missing: cols}
}

// NewReadError reports a file that exists but could not be parsed.
func NewReadError(file string, err error) *ValidationError {
	return &ValidationError{File: file, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// InvariantError marks an internal computation bug, such as a valued account
// surviving classification with no persona. It is fatal for the run: the
// module must stop before emitting any output.
type InvariantError struct {
	Op     string // the operation whose invariant broke
	Detail string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated in %s: %s", e.Op, e.Detail)
}

// NewInvariantError creates an InvariantError for the given operation.
func NewInvariantError(op, format string, args ...any) *InvariantError {
	return &InvariantError{Op: op, Detail: fmt.Sprintf(format, args...)}
}

// IsInvariant reports whether err is (or wraps) an InvariantError.
func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// Summary collects per-module failures during one orchestration pass and
// writes them to error_summary.txt in the output folder, mirroring the file
// the legacy tooling produced.
type Summary struct {
	RunID    string
	failures []failure
}

type failure struct {
	Module string
	Err    error
}

// NewSummary creates an empty error summary for one run.
func NewSummary(runID string) *Summary {
	return &Summary{RunID: runID}
}

// Record adds a module failure to the summary.
func (s *Summary) Record(module string, err error) {
	if err == nil {
		return
	}
	s.failures = append(s.failures, failure{Module: module, Err: err})
}

// Empty reports whether no failures were recorded.
func (s *Summary) Empty() bool { return len(s.failures) == 0 }

// Failures returns the recorded failures as "module: message" lines.
func (s *Summary) Failures() []string {
	lines := make([]string, 0, len(s.failures))
	for _, f := range s.failures {
		lines = append(lines, fmt.Sprintf("%s: %v", f.Module, f.Err))
	}
	return lines
}

// Write persists the summary to error_summary.txt under dir. Writing nothing
// when the summary is empty keeps a clean run's output folder clean.
func (s *Summary) Write(dir string) error {
	if s.Empty() {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "run %s at %s\n", s.RunID, time.Now().Format(time.RFC3339))
	for _, line := range s.Failures() {
		b.WriteString(line)
		b.WriteString("\n")
	}
	path := filepath.Join(dir, "error_summary.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write error summary: %w", err)
	}
	return nil
}
