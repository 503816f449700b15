package persona

import (
	"math"
	"sort"
)

// Quantile returns the value at probability p over values using linear
// interpolation between closest ranks, matching the convention the reporting
// stack has always used. Returns 0 for an empty input.
func Quantile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	index := p * float64(n-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Median is the 50th percentile.
func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

// PercentileRanks returns, for each value, the fraction of values that are
// lower than or equal to it. Output is index-aligned with the input.
func PercentileRanks(values []float64) []float64 {
	n := len(values)
	if n == 0 {
		return nil
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	ranks := make([]float64, n)
	for i, v := range values {
		// first index strictly greater than v == count of values <= v
		count := sort.Search(n, func(j int) bool { return sorted[j] > v })
		ranks[i] = float64(count) / float64(n)
	}
	return ranks
}
