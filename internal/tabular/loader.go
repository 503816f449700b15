package tabular

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"github.com/jayroplekar/D4G/internal/errors"
)

// Requirement names an input file and the columns an analysis depends on.
type Requirement struct {
	File    string
	Columns []string
}

// Loader reads input tables from a single extract directory.
type Loader struct {
	dir    string
	logger *slog.Logger
}

// NewLoader creates a loader rooted at the extract directory.
func NewLoader(dir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{dir: dir, logger: logger}
}

// Load reads one table. A .csv extract is preferred; when it is absent an
// .xlsx sibling with the same basename is accepted, since upstream sometimes
// exports workbooks instead of flat files.
func (l *Loader) Load(ctx context.Context, file string) (*Table, error) {
	path := filepath.Join(l.dir, file)
	if _, err := os.Stat(path); err == nil {
		return l.loadCSV(path, file)
	}

	xlsx := strings.TrimSuffix(path, filepath.Ext(path)) + ".xlsx"
	if _, err := os.Stat(xlsx); err == nil {
		l.logger.InfoContext(ctx, "csv extract absent, reading workbook",
			slog.String("file", file), slog.String("workbook", filepath.Base(xlsx)))
		return l.loadXLSX(xlsx, file)
	}

	return nil, errors.NewValidationError(file)
}

// LoadAll validates and loads every required table. The three extracts are
// bulk reads with no shared state, so they load concurrently; validation
// failures are joined so the operator sees every broken file at once.
func (l *Loader) LoadAll(ctx context.Context, reqs []Requirement) (map[string]*Table, error) {
	var (
		mu     sync.Mutex
		tables = make(map[string]*Table, len(reqs))
		bad    []error
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, req := range reqs {
		req := req
		g.Go(func() error {
			table, err := l.Load(ctx, req.File)
			if err == nil {
				err = table.RequireColumns(req.Columns)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				bad = append(bad, err)
				return nil // collect, do not cancel the sibling loads
			}
			tables[req.File] = table
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(bad) > 0 {
		for _, err := range bad {
			l.logger.ErrorContext(ctx, "input validation failed", slog.String("error", err.Error()))
		}
		return nil, joinValidation(bad)
	}

	for _, req := range reqs {
		l.logger.InfoContext(ctx, "input table loaded",
			slog.String("file", req.File), slog.Int("rows", tables[req.File].Len()))
	}
	return tables, nil
}

func (l *Loader) loadCSV(path, name string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewReadError(name, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.NewReadError(name, fmt.Errorf("read header: %w", err))
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewReadError(name, err)
		}
		rows = append(rows, record)
	}
	return NewTable(name, header, rows), nil
}

func (l *Loader) loadXLSX(path, name string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.NewReadError(name, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.NewReadError(name, fmt.Errorf("workbook has no sheets"))
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.NewReadError(name, err)
	}
	if len(rows) == 0 {
		return nil, errors.NewReadError(name, fmt.Errorf("sheet %s is empty", sheets[0]))
	}
	return NewTable(name, rows[0], rows[1:]), nil
}

func joinValidation(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	// Keep the first ValidationError as the unwrap target so callers can
	// still classify the failure.
	return fmt.Errorf("%w (and %d more: %s)", errs[0], len(errs)-1, strings.Join(msgs[1:], "; "))
}
