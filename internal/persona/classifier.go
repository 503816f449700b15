package persona

import (
	"context"
	"log/slog"

	"github.com/jayroplekar/D4G/internal/config"
	"github.com/jayroplekar/D4G/internal/errors"
)

// PersonaClassifier assigns each valued account exactly one persona using
// thresholds computed from the valued population itself: amount tertiles
// (q33/q67 with linear interpolation) crossed with the dormancy median.
//
// Two modes exist. The default "grid" mode evaluates the six conditions in
// fixed order and lets a later match overwrite an earlier one; on a
// degenerate distribution (q33 == q67) the boundary conditions overlap and
// the last matching rule wins, which reproduces the historical report
// outputs. "tree" mode partitions strictly, so the first amount band that
// fits decides and no overlap is possible; the two modes differ only on
// degenerate boundaries.
type PersonaClassifier struct {
	mode   string
	logger *slog.Logger
}

// NewPersonaClassifier creates a classifier in the given mode
// (config.ModeGrid or config.ModeTree).
func NewPersonaClassifier(mode string, logger *slog.Logger) *PersonaClassifier {
	if mode == "" {
		mode = config.ModeGrid
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PersonaClassifier{mode: mode, logger: logger}
}

// ComputeThresholds derives the classification boundaries from the valued
// population. Deterministic: identical inputs yield identical thresholds.
func (c *PersonaClassifier) ComputeThresholds(valued []AccountSummary) Thresholds {
	amounts := make([]float64, len(valued))
	dormancy := make([]float64, len(valued))
	for i, s := range valued {
		amounts[i] = s.AmountTotal
		dormancy[i] = float64(s.DormancyYears)
	}
	return Thresholds{
		Q33:            Quantile(amounts, 0.33),
		Q67:            Quantile(amounts, 0.67),
		DormancyMedian: Median(dormancy),
	}
}

// Classify assigns a persona and color group to every valued account. A
// summary with non-positive lifetime giving is a caller bug and surfaces as
// an invariant violation, as does any account left unclassified: the grid is
// supposed to partition the whole space, so a gap means the computation is
// broken and the run must stop before emitting output.
func (c *PersonaClassifier) Classify(ctx context.Context, valued []AccountSummary) ([]ValuedAccount, Thresholds, error) {
	th := c.ComputeThresholds(valued)
	c.logger.InfoContext(ctx, "computed classification thresholds",
		slog.Float64("q33", th.Q33),
		slog.Float64("q67", th.Q67),
		slog.Float64("dormancy_median", th.DormancyMedian),
		slog.String("mode", c.mode),
		slog.Int("valued_accounts", len(valued)))

	out := make([]ValuedAccount, 0, len(valued))
	var unclassified []string
	for _, s := range valued {
		if !s.Valued() {
			return nil, th, errors.NewInvariantError("classify",
				"account %s has non-positive amount_total %.2f in valued set", s.AccountID, s.AmountTotal)
		}
		var p Persona
		if c.mode == config.ModeTree {
			p = classifyTree(s, th)
		} else {
			p = classifyGrid(s, th)
		}
		if p == NoPersona {
			unclassified = append(unclassified, s.AccountID)
			continue
		}
		out = append(out, ValuedAccount{AccountSummary: s, Persona: p, Group: p.Group()})
	}

	if len(unclassified) > 0 {
		sample := unclassified
		if len(sample) > 5 {
			sample = sample[:5]
		}
		return nil, th, errors.NewInvariantError("classify",
			"%d valued accounts left without a persona (e.g. %v)", len(unclassified), sample)
	}

	counts := make(map[Persona]int, 6)
	for _, v := range out {
		counts[v.Persona]++
	}
	c.logger.InfoContext(ctx, "persona assignment complete",
		slog.Int("gary", counts[Gary]), slog.Int("yara", counts[Yara]),
		slog.Int("ryan", counts[Ryan]), slog.Int("laura", counts[Laura]),
		slog.Int("peter", counts[Peter]), slog.Int("beth", counts[Beth]))

	return out, th, nil
}

// classifyGrid evaluates all six conditions in table order; the last match
// wins. Required behavior, not an accident: overlapping boundary conditions
// on a degenerate distribution must resolve to the later rule.
func classifyGrid(s AccountSummary, th Thresholds) Persona {
	a := s.AmountTotal
	d := float64(s.DormancyYears)
	active := d < th.DormancyMedian

	p := NoPersona
	if a >= th.Q67 && active {
		p = Gary
	}
	if a <= th.Q33 && active {
		p = Yara
	}
	if a > th.Q33 && a < th.Q67 && active {
		p = Ryan
	}
	if a >= th.Q67 && !active {
		p = Laura
	}
	if a > th.Q33 && a < th.Q67 && !active {
		p = Peter
	}
	if a <= th.Q33 && !active {
		p = Beth
	}
	return p
}

// classifyTree partitions strictly: the high band is checked first, so a
// degenerate q33 == q67 distribution resolves to the high-amount personas.
func classifyTree(s AccountSummary, th Thresholds) Persona {
	a := s.AmountTotal
	active := float64(s.DormancyYears) < th.DormancyMedian

	switch {
	case a >= th.Q67:
		if active {
			return Gary
		}
		return Laura
	case a <= th.Q33:
		if active {
			return Yara
		}
		return Beth
	default:
		if active {
			return Ryan
		}
		return Peter
	}
}
