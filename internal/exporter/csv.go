// Package exporter writes the report artifacts: the CSV output files, the
// combined Excel workbook, and the distribution charts.
package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// CSVWriter writes report tables into the run's output directory. Every file
// gets a UTF-8 BOM so Excel opens it with the right encoding.
type CSVWriter struct {
	dir    string
	logger *slog.Logger
}

// NewCSVWriter creates a writer rooted at the output directory.
func NewCSVWriter(dir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{dir: dir, logger: logger}
}

// Write writes one table to name under the output directory, creating the
// directory if needed. Header order is the file's column contract and is
// written exactly as given.
func (w *CSVWriter) Write(name string, header []string, rows [][]string) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	fullPath := filepath.Join(w.dir, name)
	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer file.Close()

	// BOM so Excel recognizes UTF-8.
	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write BOM to %s: %w", name, err)
	}

	cw := csv.NewWriter(file)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header to %s: %w", name, err)
	}
	for i, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d to %s: %w", i, name, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", name, err)
	}

	w.logger.Info("wrote report file",
		slog.String("file", name),
		slog.Int("rows", len(rows)))
	return nil
}
