package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// Workbook collects report tables and writes them as one Excel file with a
// sheet per table, for reviewers who prefer a single artifact over the CSVs.
type Workbook struct {
	dir    string
	logger *slog.Logger
	sheets []sheet
}

type sheet struct {
	name   string
	header []string
	rows   [][]string
}

// NewWorkbook creates an empty workbook rooted at the output directory.
func NewWorkbook(dir string, logger *slog.Logger) *Workbook {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workbook{dir: dir, logger: logger}
}

// AddSheet appends a table as a sheet. Excel caps sheet names at 31 runes;
// longer names are truncated.
func (b *Workbook) AddSheet(name string, header []string, rows [][]string) {
	if len(name) > 31 {
		name = name[:31]
	}
	b.sheets = append(b.sheets, sheet{name: name, header: header, rows: rows})
}

// Save writes the workbook to name under the output directory.
func (b *Workbook) Save(name string) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range b.sheets {
		if i == 0 {
			// Reuse the default sheet instead of leaving it empty.
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return fmt.Errorf("rename sheet %s: %w", s.name, err)
			}
		} else {
			if _, err := f.NewSheet(s.name); err != nil {
				return fmt.Errorf("create sheet %s: %w", s.name, err)
			}
		}

		if err := writeRow(f, s.name, 1, s.header); err != nil {
			return err
		}
		for j, row := range s.rows {
			if err := writeRow(f, s.name, j+2, row); err != nil {
				return err
			}
		}
	}

	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	fullPath := filepath.Join(b.dir, name)
	if err := f.SaveAs(fullPath); err != nil {
		return fmt.Errorf("save workbook %s: %w", name, err)
	}

	b.logger.Info("wrote workbook",
		slog.String("file", name),
		slog.Int("sheets", len(b.sheets)))
	return nil
}

func writeRow(f *excelize.File, sheetName string, rowNum int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("sheet %s row %d: %w", sheetName, rowNum, err)
	}
	row := make([]interface{}, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
		return fmt.Errorf("sheet %s row %d: %w", sheetName, rowNum, err)
	}
	return nil
}
