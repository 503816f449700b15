package persona

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jayroplekar/D4G/internal/config"
	"github.com/jayroplekar/D4G/internal/errors"
)

func valuedSummary(id string, amount float64, dormancy int) AccountSummary {
	return AccountSummary{AccountID: id, AmountTotal: amount, DormancyYears: dormancy}
}

// sixCorners covers every cell of the classification grid: amounts land in
// the low/mid/high tertiles (q33=360, q67=2075 over this set) and dormancy
// splits at the median of 3.
func sixCorners() []AccountSummary {
	return []AccountSummary{
		valuedSummary("low-active", 100, 0),
		valuedSummary("mid-active", 500, 1),
		valuedSummary("high-active", 5000, 0),
		valuedSummary("low-dormant", 100, 5),
		valuedSummary("mid-dormant", 500, 5),
		valuedSummary("high-dormant", 5000, 5),
	}
}

func personaByID(t *testing.T, classified []ValuedAccount) map[string]Persona {
	t.Helper()
	out := make(map[string]Persona, len(classified))
	for _, v := range classified {
		out[v.AccountID] = v.Persona
	}
	return out
}

func TestClassifyAssignsEveryGridCell(t *testing.T) {
	for _, mode := range []string{config.ModeGrid, config.ModeTree} {
		t.Run(mode, func(t *testing.T) {
			c := NewPersonaClassifier(mode, nil)
			classified, th, err := c.Classify(context.Background(), sixCorners())
			require.NoError(t, err)
			require.Len(t, classified, 6)

			assert.InDelta(t, 360, th.Q33, 1e-9)
			assert.InDelta(t, 2075, th.Q67, 1e-9)
			assert.InDelta(t, 3, th.DormancyMedian, 1e-9)

			got := personaByID(t, classified)
			assert.Equal(t, Yara, got["low-active"])
			assert.Equal(t, Ryan, got["mid-active"])
			assert.Equal(t, Gary, got["high-active"])
			assert.Equal(t, Beth, got["low-dormant"])
			assert.Equal(t, Peter, got["mid-dormant"])
			assert.Equal(t, Laura, got["high-dormant"])
		})
	}
}

func TestClassifyDormancyEqualToMedianIsDormant(t *testing.T) {
	th := Thresholds{Q33: 360, Q67: 2075, DormancyMedian: 3}

	assert.Equal(t, Laura, classifyGrid(valuedSummary("x", 5000, 3), th))
	assert.Equal(t, Laura, classifyTree(valuedSummary("x", 5000, 3), th))
	assert.Equal(t, Beth, classifyGrid(valuedSummary("x", 100, 3), th))
}

func TestClassifyAmountBoundaries(t *testing.T) {
	th := Thresholds{Q33: 364, Q67: 2030, DormancyMedian: 2}

	tests := []struct {
		name     string
		amount   float64
		dormancy int
		want     Persona
	}{
		{"exactly q33 is low band", 364, 0, Yara},
		{"just above q33 is mid band", 364.01, 0, Ryan},
		{"just below q67 is mid band", 2029.99, 0, Ryan},
		{"exactly q67 is high band", 2030, 0, Gary},
		{"exactly q33 dormant", 364, 5, Beth},
		{"exactly q67 dormant", 2030, 5, Laura},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valuedSummary("x", tt.amount, tt.dormancy)
			assert.Equal(t, tt.want, classifyGrid(s, th))
			assert.Equal(t, tt.want, classifyTree(s, th))
		})
	}
}

func TestClassifyDegenerateDistributionModesDiffer(t *testing.T) {
	// Every amount identical collapses q33 == q67, so the boundary rules
	// overlap. Grid resolves by rule order (later rule wins), tree by its
	// first matching band.
	th := Thresholds{Q33: 250, Q67: 250, DormancyMedian: 1}
	active := valuedSummary("a", 250, 0)
	dormant := valuedSummary("d", 250, 4)

	assert.Equal(t, Yara, classifyGrid(active, th))
	assert.Equal(t, Beth, classifyGrid(dormant, th))

	assert.Equal(t, Gary, classifyTree(active, th))
	assert.Equal(t, Laura, classifyTree(dormant, th))
}

func TestClassifyRejectsNonValuedAccount(t *testing.T) {
	c := NewPersonaClassifier(config.ModeGrid, nil)
	in := append(sixCorners(), valuedSummary("freeloader", 0, 1))

	_, _, err := c.Classify(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.IsInvariant(err))
	assert.Contains(t, err.Error(), "freeloader")
}

func TestClassifyDeterministic(t *testing.T) {
	c := NewPersonaClassifier(config.ModeGrid, nil)

	first, th1, err := c.Classify(context.Background(), sixCorners())
	require.NoError(t, err)
	second, th2, err := c.Classify(context.Background(), sixCorners())
	require.NoError(t, err)

	assert.Equal(t, th1, th2)
	assert.Equal(t, sortedPersonaCounts(first), sortedPersonaCounts(second))
	assert.Equal(t, first, second)
}

func TestClassifyEmptyValuedSet(t *testing.T) {
	c := NewPersonaClassifier(config.ModeGrid, nil)
	classified, _, err := c.Classify(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, classified)
}

func TestPersonaGroups(t *testing.T) {
	want := map[Persona]string{
		Gary:  "Gold",
		Yara:  "Light Blue",
		Ryan:  "Green",
		Laura: "Purple",
		Peter: "Dark Blue",
		Beth:  "Red",
	}
	for p, group := range want {
		assert.Equal(t, group, p.Group())
	}
}
