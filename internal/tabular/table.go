// Package tabular loads the flat input extracts into simple in-memory tables
// and enforces the required-column contract before any analysis touches them.
package tabular

import (
	"strings"

	"github.com/jayroplekar/D4G/internal/errors"
)

// Table is an opaque sequence of records with a named header row. All cells
// are strings; typed interpretation belongs to the consuming analysis.
type Table struct {
	Name   string // source file name, used in validation errors
	Header []string
	Rows   [][]string

	colIndex map[string]int
}

// NewTable builds a table and indexes its header. Rows shorter than the
// header are padded with empty cells so column access never goes out of range.
func NewTable(name string, header []string, rows [][]string) *Table {
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.TrimSpace(col)] = i
	}
	width := len(header)
	for i, row := range rows {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			rows[i] = padded
		}
	}
	return &Table{Name: name, Header: header, Rows: rows, colIndex: idx}
}

// Col returns the index of a column by name.
func (t *Table) Col(name string) (int, bool) {
	i, ok := t.colIndex[name]
	return i, ok
}

// Cell returns the trimmed cell value for a row and column name, or "" when
// the column does not exist.
func (t *Table) Cell(row []string, col string) string {
	i, ok := t.colIndex[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// RequireColumns verifies the table carries every required column, reporting
// all missing ones at once so the operator fixes the extract in one pass.
func (t *Table) RequireColumns(required []string) error {
	var missing []string
	for _, col := range required {
		if _, ok := t.colIndex[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return errors.NewMissingColumnsError(t.Name, missing)
	}
	return nil
}
