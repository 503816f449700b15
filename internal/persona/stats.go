package persona

// StatisticsReporter computes the human-facing percentile summary and the
// per-account percentile ranks. These use their own fixed probability
// points and are entirely separate from the classifier's q33/q67/median
// thresholds; nothing here feeds back into persona assignment.
type StatisticsReporter struct{}

// NewStatisticsReporter creates a reporter.
func NewStatisticsReporter() *StatisticsReporter { return &StatisticsReporter{} }

// statProbabilities are the fixed reporting points of the summary table.
var statProbabilities = []float64{
	0.01, 0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 0.99, 1.0,
}

// PercentileTable is the multi-point percentile summary over the valued
// population, one row per probability point.
type PercentileTable struct {
	Probabilities []float64
	AmountTotal   []float64
	NonZeroCounts []float64
	DormancyYears []float64
}

// Summarize builds the fixed-point percentile table over the valued set.
func (r *StatisticsReporter) Summarize(valued []ValuedAccount) PercentileTable {
	amounts := make([]float64, len(valued))
	counts := make([]float64, len(valued))
	dormancy := make([]float64, len(valued))
	for i, v := range valued {
		amounts[i] = v.AmountTotal
		counts[i] = float64(v.NonZeroCounts)
		dormancy[i] = float64(v.DormancyYears)
	}

	table := PercentileTable{Probabilities: statProbabilities}
	for _, p := range statProbabilities {
		table.AmountTotal = append(table.AmountTotal, Quantile(amounts, p))
		table.NonZeroCounts = append(table.NonZeroCounts, Quantile(counts, p))
		table.DormancyYears = append(table.DormancyYears, Quantile(dormancy, p))
	}
	return table
}

// RankAccounts fills each account's percentile-rank columns in place: the
// fraction of valued accounts with a lower-or-equal value per field.
func (r *StatisticsReporter) RankAccounts(valued []ValuedAccount) {
	amounts := make([]float64, len(valued))
	counts := make([]float64, len(valued))
	dormancy := make([]float64, len(valued))
	for i, v := range valued {
		amounts[i] = v.AmountTotal
		counts[i] = float64(v.NonZeroCounts)
		dormancy[i] = float64(v.DormancyYears)
	}

	amountRanks := PercentileRanks(amounts)
	countRanks := PercentileRanks(counts)
	dormancyRanks := PercentileRanks(dormancy)
	for i := range valued {
		valued[i].AmountTotalPercentile = amountRanks[i]
		valued[i].NonZeroCountsPercentile = countRanks[i]
		valued[i].DormancyYearsPercentile = dormancyRanks[i]
	}
}
