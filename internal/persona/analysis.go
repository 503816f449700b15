package persona

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/schollz/progressbar/v3"

	"github.com/jayroplekar/D4G/internal/config"
	"github.com/jayroplekar/D4G/internal/exporter"
	"github.com/jayroplekar/D4G/internal/tabular"
)

// Output file names. Consumers key on these, misspelling included;
// d4g_address_state_distibution.csv has shipped under that name since the
// first report and renaming it would break every downstream sheet.
const (
	StatSummaryFile     = "d4g_stat_summary.csv"
	ValueOutputFile     = "d4g_value_output.csv"
	PotentialOutputFile = "d4g_potential_output.csv"
	MergeOutputFile     = "d4g_merge_account_output.csv"
	StateDistFile       = "d4g_address_state_distibution.csv"
	RecencyWindowFile   = "d4g_recency_window.csv"
	WorkbookFile        = "d4g_report.xlsx"
)

// Analysis is the donor persona analysis: gift records in, classified
// account segments and distribution reports out.
type Analysis struct {
	cfg    *config.Config
	loader *tabular.Loader
	logger *slog.Logger
}

// NewAnalysis creates the persona analysis over the configured input
// directory.
func NewAnalysis(cfg *config.Config, logger *slog.Logger) *Analysis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analysis{
		cfg:    cfg,
		loader: tabular.NewLoader(cfg.Paths.InputDir, logger),
		logger: logger.With(slog.String("analysis", "persona")),
	}
}

// Name identifies the analysis in logs and the error summary.
func (a *Analysis) Name() string { return "persona" }

// Run executes the full pipeline: load and validate the three extracts,
// aggregate, classify, rank, merge, and write every output file. Input
// validation failures and classification invariant violations abort before
// any output is written; chart and workbook failures only log.
func (a *Analysis) Run(ctx context.Context) error {
	asOf, err := a.cfg.AsOfDate()
	if err != nil {
		return fmt.Errorf("resolve as-of date: %w", err)
	}
	asOfYear := asOf.Year()
	a.logger.InfoContext(ctx, "starting persona analysis", slog.Int("as_of_year", asOfYear))

	tables, err := a.loader.LoadAll(ctx, Requirements())
	if err != nil {
		return err
	}

	bar := progressbar.Default(6, "persona pipeline")

	records := ParseGiftRecords(ctx, tables[OpportunityFile], a.logger)
	roster := ParseRoster(tables[AccountFile])
	addresses := ParseAddresses(tables[AddressFile])
	bar.Add(1)

	aggregator := NewTransactionAggregator(a.logger)
	summaries := aggregator.Aggregate(ctx, records, asOfYear)
	bar.Add(1)

	recency := NewRecencyWindowCalculator(a.cfg.Analysis.RecencyYears)
	windows := recency.Compute(records, asOfYear)
	bar.Add(1)

	merger := NewSegmentMerger()
	valued, potential := merger.Partition(summaries)
	a.logger.InfoContext(ctx, "partitioned accounts",
		slog.Int("valued", len(valued)),
		slog.Int("potential", len(potential)))

	classifier := NewPersonaClassifier(a.cfg.Analysis.ClassifierMode, a.logger)
	classified, thresholds, err := classifier.Classify(ctx, valued)
	if err != nil {
		return err
	}
	bar.Add(1)

	reporter := NewStatisticsReporter()
	statTable := reporter.Summarize(classified)
	reporter.RankAccounts(classified)
	bar.Add(1)

	merged := merger.MergeRoster(roster, classified)
	geo := merger.GeoDistribution(addresses)

	if err := a.writeOutputs(classified, potential, merged, geo, windows, statTable); err != nil {
		return err
	}
	bar.Add(1)

	a.writeCharts(ctx, classified, thresholds)
	a.logger.InfoContext(ctx, "persona analysis complete")
	return nil
}

// Column order of d4g_value_output.csv. Downstream joins read these names
// verbatim; never reorder.
var valueColumns = []string{
	"AccountId", "amount_min", "amount_max", "amount_mean",
	"start_year", "latest_year", "first_month", "avg_month", "latest_month",
	"amount_total", "non_zero_counts",
	"this_year_non_zero_counts", "this_year_amount_total", "this_year_amount_mean",
	"prev_year_non_zero_counts", "prev_year_amount_total", "prev_year_amount_mean",
	"account_age", "dormancy_years",
	"average_total_donation", "average_time_between_donation",
	"amount_total_percentiles", "non_zero_counts_percentiles", "dormancy_years_percentiles",
	"persona", "group",
}

func (a *Analysis) writeOutputs(
	classified []ValuedAccount,
	potential []AccountSummary,
	merged []MergedAccount,
	geo []GeoCount,
	windows []RecencyWindow,
	statTable PercentileTable,
) error {
	csv := exporter.NewCSVWriter(a.cfg.Paths.OutputDir, a.logger)

	statHeader := []string{"quantile", "amount_total", "non_zero_counts", "dormancy_years"}
	statRows := make([][]string, len(statTable.Probabilities))
	for i, p := range statTable.Probabilities {
		statRows[i] = []string{
			ff(p),
			ff(statTable.AmountTotal[i]),
			ff(statTable.NonZeroCounts[i]),
			ff(statTable.DormancyYears[i]),
		}
	}
	if err := csv.Write(StatSummaryFile, statHeader, statRows); err != nil {
		return err
	}

	valueRows := make([][]string, len(classified))
	for i, v := range classified {
		valueRows[i] = valuedRow(v)
	}
	if err := csv.Write(ValueOutputFile, valueColumns, valueRows); err != nil {
		return err
	}

	potentialHeader := valueColumns[:21]
	potentialRows := make([][]string, len(potential))
	for i, s := range potential {
		potentialRows[i] = summaryRow(s)
	}
	if err := csv.Write(PotentialOutputFile, potentialHeader, potentialRows); err != nil {
		return err
	}

	mergeHeader := append([]string{"Id", "npo02__LastCloseDate__c", "Last_Close_Month"}, valueColumns[1:]...)
	mergeRows := make([][]string, len(merged))
	for i, m := range merged {
		row := []string{m.ID, m.LastCloseDate, strconv.Itoa(m.LastCloseMonth)}
		if m.Valued != nil {
			row = append(row, valuedRow(*m.Valued)[1:]...)
		} else {
			row = append(row, make([]string, len(valueColumns)-1)...)
		}
		mergeRows[i] = row
	}
	if err := csv.Write(MergeOutputFile, mergeHeader, mergeRows); err != nil {
		return err
	}

	geoHeader := []string{"npsp__MailingState__c", "npsp__MailingCity__c", "count"}
	geoRows := make([][]string, len(geo))
	for i, g := range geo {
		geoRows[i] = []string{g.State, g.City, strconv.Itoa(g.Count)}
	}
	if err := csv.Write(StateDistFile, geoHeader, geoRows); err != nil {
		return err
	}

	if err := csv.Write(RecencyWindowFile, recencyHeader(windows), recencyRows(windows)); err != nil {
		return err
	}

	if a.cfg.Analysis.Excel {
		wb := exporter.NewWorkbook(a.cfg.Paths.OutputDir, a.logger)
		wb.AddSheet("stat_summary", statHeader, statRows)
		wb.AddSheet("value_output", valueColumns, valueRows)
		wb.AddSheet("potential_output", potentialHeader, potentialRows)
		wb.AddSheet("merge_account_output", mergeHeader, mergeRows)
		wb.AddSheet("address_state_distibution", geoHeader, geoRows)
		if err := wb.Save(WorkbookFile); err != nil {
			// The CSVs already carry the data.
			a.logger.Warn("workbook export failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

func (a *Analysis) writeCharts(ctx context.Context, classified []ValuedAccount, th Thresholds) {
	if !a.cfg.Analysis.Charts {
		return
	}
	cw := exporter.NewChartWriter(a.cfg.ChartsDir(), a.logger)

	counts := make(map[Persona]int, 6)
	for _, v := range classified {
		counts[v.Persona]++
	}
	labels := make([]string, 0, 6)
	values := make([]float64, 0, 6)
	for _, p := range Personas() {
		labels = append(labels, string(p))
		values = append(values, float64(counts[p]))
	}
	if err := cw.WritePie("persona_distribution.png", "Persona Distribution", labels, values); err != nil {
		a.logger.WarnContext(ctx, "chart export failed", slog.String("error", err.Error()))
	}

	amounts := make([]float64, len(classified))
	nonZero := make([]float64, len(classified))
	dormancy := make([]float64, len(classified))
	for i, v := range classified {
		amounts[i] = v.AmountTotal
		nonZero[i] = float64(v.NonZeroCounts)
		dormancy[i] = float64(v.DormancyYears)
	}
	histograms := []struct {
		file, title string
		values      []float64
	}{
		{"amount_total_histogram.png", fmt.Sprintf("Lifetime Giving (q33=%.0f, q67=%.0f)", th.Q33, th.Q67), amounts},
		{"non_zero_counts_histogram.png", "Donation Counts", nonZero},
		{"dormancy_years_histogram.png", fmt.Sprintf("Dormancy Years (median=%.1f)", th.DormancyMedian), dormancy},
	}
	for _, h := range histograms {
		binLabels, binCounts := histogram(h.values, 10)
		if err := cw.WriteBar(h.file, h.title, binLabels, binCounts); err != nil {
			a.logger.WarnContext(ctx, "chart export failed",
				slog.String("file", h.file), slog.String("error", err.Error()))
		}
	}
}

// histogram bins values into bins equal-width buckets for the bar charts.
func histogram(values []float64, bins int) (labels []string, counts []float64) {
	if len(values) == 0 || bins <= 0 {
		return nil, nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	width := (hi - lo) / float64(bins)
	if width == 0 {
		return []string{ff(lo)}, []float64{float64(len(values))}
	}

	counts = make([]float64, bins)
	for _, v := range values {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		counts[i]++
	}
	labels = make([]string, bins)
	for i := range labels {
		labels[i] = fmt.Sprintf("%.0f", lo+float64(i)*width)
	}
	return labels, counts
}

func recencyHeader(windows []RecencyWindow) []string {
	header := []string{"AccountId"}
	if len(windows) == 0 {
		return append(header, "last_5_non0_years")
	}
	for _, y := range windows[0].Years {
		header = append(header, fmt.Sprintf("times_donated_%d", y.Year))
	}
	for _, y := range windows[0].Years {
		header = append(header, fmt.Sprintf("flag_donated_%d", y.Year))
	}
	return append(header, "last_5_non0_years")
}

func recencyRows(windows []RecencyWindow) [][]string {
	rows := make([][]string, len(windows))
	for i, w := range windows {
		row := []string{w.AccountID}
		for _, y := range w.Years {
			row = append(row, strconv.Itoa(y.Gifts))
		}
		for _, y := range w.Years {
			if y.Donated {
				row = append(row, "1")
			} else {
				row = append(row, "0")
			}
		}
		rows[i] = append(row, strconv.Itoa(w.ActiveYears))
	}
	return rows
}

func summaryRow(s AccountSummary) []string {
	return []string{
		s.AccountID,
		ff(s.AmountMin), ff(s.AmountMax), ff(s.AmountMean),
		strconv.Itoa(s.StartYear), strconv.Itoa(s.LatestYear),
		strconv.Itoa(s.FirstMonth), ff(s.AvgMonth), strconv.Itoa(s.LatestMonth),
		ff(s.AmountTotal), strconv.Itoa(s.NonZeroCounts),
		strconv.Itoa(s.ThisYearNonZeroCounts), ff(s.ThisYearAmountTotal), ff(s.ThisYearAmountMean),
		strconv.Itoa(s.PrevYearNonZeroCounts), ff(s.PrevYearAmountTotal), ff(s.PrevYearAmountMean),
		strconv.Itoa(s.AccountAge), strconv.Itoa(s.DormancyYears),
		ff(s.AverageTotalDonation), ff(s.AverageTimeBetweenDonation),
	}
}

func valuedRow(v ValuedAccount) []string {
	row := summaryRow(v.AccountSummary)
	return append(row,
		ff(v.AmountTotalPercentile), ff(v.NonZeroCountsPercentile), ff(v.DormancyYearsPercentile),
		string(v.Persona), v.Group)
}

// ff formats a float without trailing zero noise.
func ff(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// sortedPersonaCounts is used by tests to assert distribution stability.
func sortedPersonaCounts(classified []ValuedAccount) []string {
	counts := make(map[Persona]int)
	for _, v := range classified {
		counts[v.Persona]++
	}
	out := make([]string, 0, len(counts))
	for p, n := range counts {
		out = append(out, fmt.Sprintf("%s=%d", p, n))
	}
	sort.Strings(out)
	return out
}
