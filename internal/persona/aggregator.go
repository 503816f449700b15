package persona

import (
	"context"
	"log/slog"
	"sort"
)

// TransactionAggregator reduces gift records to one AccountSummary per
// distinct account id. It is a pure function of its input and the as-of
// year; it never reads the clock.
type TransactionAggregator struct {
	logger *slog.Logger
}

// NewTransactionAggregator creates an aggregator.
func NewTransactionAggregator(logger *slog.Logger) *TransactionAggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransactionAggregator{logger: logger}
}

// Aggregate produces one summary per account that has at least one record,
// sorted by account id for deterministic output. Lifetime aggregates cover
// every record; the this-year and prev-year windows hang off asOfYear, never
// off the wall clock.
func (a *TransactionAggregator) Aggregate(ctx context.Context, records []GiftRecord, asOfYear int) []AccountSummary {
	grouped := make(map[string][]GiftRecord)
	for _, r := range records {
		grouped[r.AccountID] = append(grouped[r.AccountID], r)
	}

	summaries := make([]AccountSummary, 0, len(grouped))
	for id, recs := range grouped {
		summaries = append(summaries, summarizeAccount(id, recs, asOfYear))
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].AccountID < summaries[j].AccountID
	})

	a.logger.InfoContext(ctx, "aggregated gift transactions",
		slog.Int("records", len(records)),
		slog.Int("accounts", len(summaries)),
		slog.Int("as_of_year", asOfYear))

	return summaries
}

func summarizeAccount(id string, recs []GiftRecord, asOfYear int) AccountSummary {
	s := AccountSummary{AccountID: id}

	var amountSum, monthSum float64
	var thisYearSum, prevYearSum float64
	var thisYearCount, prevYearCount int

	for i, r := range recs {
		if i == 0 {
			s.AmountMin, s.AmountMax = r.Amount, r.Amount
			s.StartYear, s.LatestYear = r.CloseYear, r.CloseYear
			s.FirstMonth, s.LatestMonth = r.CloseMonth, r.CloseMonth
		}
		if r.Amount < s.AmountMin {
			s.AmountMin = r.Amount
		}
		if r.Amount > s.AmountMax {
			s.AmountMax = r.Amount
		}
		if r.CloseYear < s.StartYear {
			s.StartYear = r.CloseYear
		}
		if r.CloseYear > s.LatestYear {
			s.LatestYear = r.CloseYear
		}
		if r.CloseMonth < s.FirstMonth {
			s.FirstMonth = r.CloseMonth
		}
		if r.CloseMonth > s.LatestMonth {
			s.LatestMonth = r.CloseMonth
		}

		amountSum += r.Amount
		monthSum += float64(r.CloseMonth)
		if r.Amount > 0 {
			s.NonZeroCounts++
		}

		switch r.CloseYear {
		case asOfYear:
			thisYearSum += r.Amount
			thisYearCount++
			if r.Amount > 0 {
				s.ThisYearNonZeroCounts++
			}
		case asOfYear - 1:
			prevYearSum += r.Amount
			prevYearCount++
			if r.Amount > 0 {
				s.PrevYearNonZeroCounts++
			}
		}
	}

	n := float64(len(recs))
	s.AmountTotal = amountSum
	s.AmountMean = amountSum / n
	s.AvgMonth = monthSum / n

	s.ThisYearAmountTotal = thisYearSum
	if thisYearCount > 0 {
		s.ThisYearAmountMean = thisYearSum / float64(thisYearCount)
	}
	s.PrevYearAmountTotal = prevYearSum
	if prevYearCount > 0 {
		s.PrevYearAmountMean = prevYearSum / float64(prevYearCount)
	}

	s.AccountAge = asOfYear - s.StartYear
	if s.AccountAge < 0 {
		s.AccountAge = 0
	}
	s.DormancyYears = asOfYear - s.LatestYear

	// A donor in their first year has age zero; averages treat that as one
	// elapsed year instead of dividing by zero.
	effectiveAge := float64(s.AccountAge)
	if effectiveAge < 1 {
		effectiveAge = 1
	}
	s.AverageTotalDonation = s.AmountTotal / effectiveAge
	s.AverageTimeBetweenDonation = float64(s.NonZeroCounts) / effectiveAge

	return s
}
