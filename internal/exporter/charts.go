package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	charts "github.com/vicanso/go-charts/v2"
)

// ChartWriter renders PNG charts into the run's output directory.
type ChartWriter struct {
	dir    string
	logger *slog.Logger
}

// NewChartWriter creates a chart writer rooted at the output directory.
func NewChartWriter(dir string, logger *slog.Logger) *ChartWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChartWriter{dir: dir, logger: logger}
}

// WritePie renders a pie chart of labeled values to name.
func (w *ChartWriter) WritePie(name, title string, labels []string, values []float64) error {
	p, err := charts.PieRender(
		values,
		charts.TitleTextOptionFunc(title),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: labels,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(800),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return fmt.Errorf("render pie %s: %w", name, err)
	}
	return w.save(name, p)
}

// WriteBar renders a single-series bar chart to name.
func (w *ChartWriter) WriteBar(name, title string, xLabels []string, values []float64) error {
	p, err := charts.BarRender(
		[][]float64{values},
		charts.TitleTextOptionFunc(title),
		charts.XAxisDataOptionFunc(xLabels),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return fmt.Errorf("render bar %s: %w", name, err)
	}
	return w.save(name, p)
}

// WriteLine renders a multi-series line chart to name. Series names become
// legend entries, index-aligned with series.
func (w *ChartWriter) WriteLine(name, title string, xLabels []string, seriesNames []string, series [][]float64) error {
	p, err := charts.LineRender(
		series,
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xLabels}),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: seriesNames,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return fmt.Errorf("render line %s: %w", name, err)
	}
	return w.save(name, p)
}

func (w *ChartWriter) save(name string, p *charts.Painter) error {
	buf, err := p.Bytes()
	if err != nil {
		return fmt.Errorf("encode chart %s: %w", name, err)
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	fullPath := filepath.Join(w.dir, name)
	if err := os.WriteFile(fullPath, buf, 0644); err != nil {
		return fmt.Errorf("write chart %s: %w", name, err)
	}
	w.logger.Info("wrote chart", slog.String("file", name), slog.Int("bytes", len(buf)))
	return nil
}
