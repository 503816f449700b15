package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantileLinearInterpolation(t *testing.T) {
	values := []float64{100, 500, 5000}

	tests := []struct {
		name string
		p    float64
		want float64
	}{
		{"q33 interpolates between first and second", 0.33, 364},
		{"q67 interpolates between second and third", 0.67, 2030},
		{"median is the middle element", 0.5, 500},
		{"p=0 is the minimum", 0, 100},
		{"p=1 is the maximum", 1, 5000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Quantile(values, tt.p), 1e-9)
		})
	}
}

func TestQuantileDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Quantile(values, 0.5)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestQuantileEmptyInput(t *testing.T) {
	assert.Zero(t, Quantile(nil, 0.5))
	assert.Zero(t, Median(nil))
}

func TestQuantileSingleValue(t *testing.T) {
	assert.InDelta(t, 42.0, Quantile([]float64{42}, 0.33), 1e-9)
	assert.InDelta(t, 42.0, Quantile([]float64{42}, 0.67), 1e-9)
}

func TestPercentileRanksFractionLowerOrEqual(t *testing.T) {
	ranks := PercentileRanks([]float64{10, 20, 30, 40})

	assert.InDelta(t, 0.25, ranks[0], 1e-9)
	assert.InDelta(t, 0.50, ranks[1], 1e-9)
	assert.InDelta(t, 0.75, ranks[2], 1e-9)
	assert.InDelta(t, 1.0, ranks[3], 1e-9)
}

func TestPercentileRanksTies(t *testing.T) {
	// Both tied values count each other, so both rank at the higher fraction.
	ranks := PercentileRanks([]float64{10, 10, 30})

	assert.InDelta(t, 2.0/3.0, ranks[0], 1e-9)
	assert.InDelta(t, 2.0/3.0, ranks[1], 1e-9)
	assert.InDelta(t, 1.0, ranks[2], 1e-9)
}
