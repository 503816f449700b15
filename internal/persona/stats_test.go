package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rankedSet() []ValuedAccount {
	return []ValuedAccount{
		{AccountSummary: AccountSummary{AccountID: "A1", AmountTotal: 100, NonZeroCounts: 1, DormancyYears: 0}},
		{AccountSummary: AccountSummary{AccountID: "A2", AmountTotal: 500, NonZeroCounts: 2, DormancyYears: 1}},
		{AccountSummary: AccountSummary{AccountID: "A3", AmountTotal: 5000, NonZeroCounts: 10, DormancyYears: 4}},
		{AccountSummary: AccountSummary{AccountID: "A4", AmountTotal: 2000, NonZeroCounts: 4, DormancyYears: 2}},
	}
}

func TestSummarizeFixedProbabilityPoints(t *testing.T) {
	table := NewStatisticsReporter().Summarize(rankedSet())

	require.Len(t, table.Probabilities, 14)
	assert.InDelta(t, 0.01, table.Probabilities[0], 1e-9)
	assert.InDelta(t, 1.0, table.Probabilities[13], 1e-9)
	require.Len(t, table.AmountTotal, 14)
	require.Len(t, table.NonZeroCounts, 14)
	require.Len(t, table.DormancyYears, 14)

	// The terminal point is the maximum of each column.
	assert.InDelta(t, 5000, table.AmountTotal[13], 1e-9)
	assert.InDelta(t, 10, table.NonZeroCounts[13], 1e-9)
	assert.InDelta(t, 4, table.DormancyYears[13], 1e-9)

	// The median row sits at index 6 (p=0.5).
	assert.InDelta(t, 0.5, table.Probabilities[6], 1e-9)
	assert.InDelta(t, 1250, table.AmountTotal[6], 1e-9)
}

func TestRankAccountsFillsPercentiles(t *testing.T) {
	valued := rankedSet()
	NewStatisticsReporter().RankAccounts(valued)

	assert.InDelta(t, 0.25, valued[0].AmountTotalPercentile, 1e-9)
	assert.InDelta(t, 0.50, valued[1].AmountTotalPercentile, 1e-9)
	assert.InDelta(t, 1.0, valued[2].AmountTotalPercentile, 1e-9)
	assert.InDelta(t, 0.75, valued[3].AmountTotalPercentile, 1e-9)

	assert.InDelta(t, 0.25, valued[0].NonZeroCountsPercentile, 1e-9)
	assert.InDelta(t, 1.0, valued[2].DormancyYearsPercentile, 1e-9)
}

func TestRankAccountsDoesNotChangePersona(t *testing.T) {
	valued := rankedSet()
	for i := range valued {
		valued[i].Persona = Gary
	}
	NewStatisticsReporter().RankAccounts(valued)
	for _, v := range valued {
		assert.Equal(t, Gary, v.Persona)
	}
}
