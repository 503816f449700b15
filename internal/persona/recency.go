package persona

import "sort"

// RecencyWindowCalculator computes, for a fixed trailing window of years
// anchored at the as-of year, which years saw any positive donation per
// account. The result feeds downstream reporting only; it never alters
// classification outcomes.
type RecencyWindowCalculator struct {
	span int
}

// NewRecencyWindowCalculator creates a calculator over a trailing window of
// span years, the as-of year included. Span defaults to six when not positive.
func NewRecencyWindowCalculator(span int) *RecencyWindowCalculator {
	if span <= 0 {
		span = 6
	}
	return &RecencyWindowCalculator{span: span}
}

// Span returns the window span in years.
func (c *RecencyWindowCalculator) Span() int { return c.span }

// Compute returns one window per account appearing in records, sorted by
// account id. An account with no positive gifts in an offset year gets a
// zero count and an unset flag for that year, never a missing entry.
func (c *RecencyWindowCalculator) Compute(records []GiftRecord, asOfYear int) []RecencyWindow {
	counts := make(map[string][]int)
	for _, r := range records {
		if _, ok := counts[r.AccountID]; !ok {
			counts[r.AccountID] = make([]int, c.span)
		}
		offset := asOfYear - r.CloseYear
		if r.Amount > 0 && offset >= 0 && offset < c.span {
			counts[r.AccountID][offset]++
		}
	}

	windows := make([]RecencyWindow, 0, len(counts))
	for id, perYear := range counts {
		w := RecencyWindow{AccountID: id, Years: make([]YearActivity, c.span)}
		for offset, n := range perYear {
			donated := n > 0
			w.Years[offset] = YearActivity{Year: asOfYear - offset, Gifts: n, Donated: donated}
			if donated {
				w.ActiveYears++
			}
		}
		windows = append(windows, w)
	}
	sort.Slice(windows, func(i, j int) bool {
		return windows[i].AccountID < windows[j].AccountID
	})
	return windows
}
