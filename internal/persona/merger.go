package persona

import "sort"

// SegmentMerger joins classified accounts back onto the full roster and
// partitions the aggregate table into the valued and potential segments.
type SegmentMerger struct{}

// NewSegmentMerger creates a merger.
func NewSegmentMerger() *SegmentMerger { return &SegmentMerger{} }

// Partition splits summaries into valued (amount_total > 0) and potential
// (amount_total <= 0) sets. Mutually exclusive and exhaustive over every
// account that appears in the gift records.
func (m *SegmentMerger) Partition(summaries []AccountSummary) (valued, potential []AccountSummary) {
	for _, s := range summaries {
		if s.Valued() {
			valued = append(valued, s)
		} else {
			potential = append(potential, s)
		}
	}
	return valued, potential
}

// MergeRoster left-joins the full account roster onto the persona-tagged
// valued accounts. Roster rows without a valued summary keep a nil Valued
// so the report renders blanks, not zeros.
func (m *SegmentMerger) MergeRoster(roster []RosterAccount, valued []ValuedAccount) []MergedAccount {
	byID := make(map[string]*ValuedAccount, len(valued))
	for i := range valued {
		byID[valued[i].AccountID] = &valued[i]
	}

	merged := make([]MergedAccount, 0, len(roster))
	for _, acc := range roster {
		merged = append(merged, MergedAccount{RosterAccount: acc, Valued: byID[acc.ID]})
	}
	return merged
}

// GeoDistribution counts addresses per (state, city) pair, sorted by state
// then city for stable report output.
func (m *SegmentMerger) GeoDistribution(addresses []Address) []GeoCount {
	type key struct{ state, city string }
	counts := make(map[key]int)
	for _, a := range addresses {
		counts[key{a.State, a.City}]++
	}

	out := make([]GeoCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, GeoCount{State: k.state, City: k.city, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].State != out[j].State {
			return out[i].State < out[j].State
		}
		return out[i].City < out[j].City
	})
	return out
}
