// Package church compares giving from religious institutions against the
// rest of the donor base: donors gained per year, closed opportunity dollars
// per year, and monthly seasonality over the trailing two years.
package church

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jayroplekar/D4G/internal/config"
	"github.com/jayroplekar/D4G/internal/exporter"
	"github.com/jayroplekar/D4G/internal/money"
	"github.com/jayroplekar/D4G/internal/persona"
	"github.com/jayroplekar/D4G/internal/tabular"
)

// Input extracts. The account file doubles as the persona module's roster
// source but this analysis requires different columns from it.
const (
	AccountFile     = "d4g_account.csv"
	OpportunityFile = "d4g_opportunity.csv"
)

// Output files.
const (
	DonorsGainedFile = "d4g_church_donors_gained.csv"
	ByYearFile       = "d4g_church_opportunity_by_year.csv"
	ByMonthFile      = "d4g_church_opportunity_by_month.csv"
)

// churchIndicators match the account record types counted as churches, after
// trimming and lowercasing.
var churchIndicators = map[string]bool{
	"church":                true,
	"temple":                true,
	"religious institution": true,
}

// IsChurch reports whether an account record type marks a religious
// institution.
func IsChurch(recordType string) bool {
	return churchIndicators[strings.ToLower(strings.TrimSpace(recordType))]
}

// Requirements lists the extracts the church analysis validates up front.
func Requirements() []tabular.Requirement {
	return []tabular.Requirement{
		{File: AccountFile, Columns: []string{"Account Record Type", "First_Gift_Year__c", "Id"}},
		{File: OpportunityFile, Columns: []string{"Amount", "AccountId", "CloseDate", "Probability"}},
	}
}

type account struct {
	ID            string
	IsChurch      bool
	FirstGiftYear int
}

// closedGift is one fully closed opportunity joined with its account.
type closedGift struct {
	Amount   float64
	IsChurch bool
	Year     int
	Month    int
}

// Series is one gap-filled aggregate keyed by year or month, split into the
// total, church, and non-church populations.
type Series struct {
	Keys      []int
	Total     []float64
	Church    []float64
	NonChurch []float64
}

// Analysis is the church giving analysis.
type Analysis struct {
	cfg    *config.Config
	loader *tabular.Loader
	logger *slog.Logger
}

// NewAnalysis creates the church analysis over the configured input
// directory.
func NewAnalysis(cfg *config.Config, logger *slog.Logger) *Analysis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analysis{
		cfg:    cfg,
		loader: tabular.NewLoader(cfg.Paths.InputDir, logger),
		logger: logger.With(slog.String("analysis", "church")),
	}
}

// Name identifies the analysis in logs and the error summary.
func (a *Analysis) Name() string { return "church" }

// Run loads accounts and opportunities, keeps only fully closed
// opportunities, and writes the three church/non-church series.
func (a *Analysis) Run(ctx context.Context) error {
	asOf, err := a.cfg.AsOfDate()
	if err != nil {
		return fmt.Errorf("resolve as-of date: %w", err)
	}

	tables, err := a.loader.LoadAll(ctx, Requirements())
	if err != nil {
		return err
	}

	accounts := parseAccounts(tables[AccountFile])
	gifts := joinClosedGifts(ctx, tables[OpportunityFile], accounts, a.logger)
	a.logger.InfoContext(ctx, "joined closed opportunities",
		slog.Int("accounts", len(accounts)),
		slog.Int("closed_gifts", len(gifts)))

	donorsGained := donorsGainedPerYear(accounts)
	byYear := opportunityByYear(gifts)
	byMonth := opportunityByMonth(gifts, asOf.Year())

	csv := exporter.NewCSVWriter(a.cfg.Paths.OutputDir, a.logger)
	if err := csv.Write(DonorsGainedFile,
		[]string{"first_gift_year", "total", "church", "not_church"},
		seriesRows(donorsGained)); err != nil {
		return err
	}
	if err := csv.Write(ByYearFile,
		[]string{"year", "total", "church", "not_church"},
		seriesRows(byYear)); err != nil {
		return err
	}
	if err := csv.Write(ByMonthFile,
		[]string{"month", "total", "church", "not_church"},
		seriesRows(byMonth)); err != nil {
		return err
	}

	a.writeCharts(ctx, donorsGained, byYear, byMonth)
	a.logger.InfoContext(ctx, "church analysis complete")
	return nil
}

func parseAccounts(table *tabular.Table) []account {
	accounts := make([]account, 0, table.Len())
	for _, row := range table.Rows {
		id := persona.NormalizeAccountID(table.Cell(row, "Id"))
		if id == "" {
			continue
		}
		// First_Gift_Year__c sometimes exports as "2019.0"; rows without a
		// usable year are dropped, matching how the report always behaved.
		yearStr := persona.NormalizeAccountID(table.Cell(row, "First_Gift_Year__c"))
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			continue
		}
		accounts = append(accounts, account{
			ID:            id,
			IsChurch:      IsChurch(table.Cell(row, "Account Record Type")),
			FirstGiftYear: year,
		})
	}
	return accounts
}

func joinClosedGifts(ctx context.Context, table *tabular.Table, accounts []account, logger *slog.Logger) []closedGift {
	byID := make(map[string]account, len(accounts))
	for _, acc := range accounts {
		byID[acc.ID] = acc
	}

	gifts := make([]closedGift, 0, table.Len())
	skipped := 0
	for _, row := range table.Rows {
		if table.Cell(row, "Probability") != "100%" {
			continue
		}
		acc, ok := byID[persona.NormalizeAccountID(table.Cell(row, "AccountId"))]
		if !ok {
			continue // inner join, opportunity without account drops
		}
		amount, err := money.ParseAmount(table.Cell(row, "Amount"))
		if err != nil {
			skipped++
			continue
		}
		year, month, err := persona.ParseCloseDate(table.Cell(row, "CloseDate"))
		if err != nil {
			skipped++
			continue
		}
		gifts = append(gifts, closedGift{
			Amount:   amount,
			IsChurch: acc.IsChurch,
			Year:     year,
			Month:    month,
		})
	}
	if skipped > 0 {
		logger.WarnContext(ctx, "skipped malformed closed opportunities", slog.Int("skipped", skipped))
	}
	return gifts
}

// donorsGainedPerYear counts new donors per first-gift year, missing years
// filled with zeros between the observed min and max.
func donorsGainedPerYear(accounts []account) Series {
	if len(accounts) == 0 {
		return Series{}
	}
	minYear, maxYear := accounts[0].FirstGiftYear, accounts[0].FirstGiftYear
	for _, acc := range accounts {
		if acc.FirstGiftYear < minYear {
			minYear = acc.FirstGiftYear
		}
		if acc.FirstGiftYear > maxYear {
			maxYear = acc.FirstGiftYear
		}
	}

	s := newSeries(minYear, maxYear)
	for _, acc := range accounts {
		s.add(acc.FirstGiftYear, 1, acc.IsChurch)
	}
	return s
}

// opportunityByYear sums closed dollars per close year, gap-filled.
func opportunityByYear(gifts []closedGift) Series {
	if len(gifts) == 0 {
		return Series{}
	}
	minYear, maxYear := gifts[0].Year, gifts[0].Year
	for _, g := range gifts {
		if g.Year < minYear {
			minYear = g.Year
		}
		if g.Year > maxYear {
			maxYear = g.Year
		}
	}

	s := newSeries(minYear, maxYear)
	for _, g := range gifts {
		s.add(g.Year, g.Amount, g.IsChurch)
	}
	return s
}

// opportunityByMonth sums closed dollars per calendar month over the trailing
// two years relative to the as-of year, all twelve months present.
func opportunityByMonth(gifts []closedGift, asOfYear int) Series {
	s := newSeries(1, 12)
	for _, g := range gifts {
		if g.Year < asOfYear-2 {
			continue
		}
		s.add(g.Month, g.Amount, g.IsChurch)
	}
	return s
}

func newSeries(minKey, maxKey int) Series {
	n := maxKey - minKey + 1
	s := Series{
		Keys:      make([]int, n),
		Total:     make([]float64, n),
		Church:    make([]float64, n),
		NonChurch: make([]float64, n),
	}
	for i := range s.Keys {
		s.Keys[i] = minKey + i
	}
	return s
}

func (s *Series) add(key int, amount float64, isChurch bool) {
	if len(s.Keys) == 0 {
		return
	}
	i := key - s.Keys[0]
	if i < 0 || i >= len(s.Keys) {
		return
	}
	s.Total[i] += amount
	if isChurch {
		s.Church[i] += amount
	} else {
		s.NonChurch[i] += amount
	}
}

func seriesRows(s Series) [][]string {
	rows := make([][]string, len(s.Keys))
	for i, k := range s.Keys {
		rows[i] = []string{
			strconv.Itoa(k),
			strconv.FormatFloat(s.Total[i], 'f', -1, 64),
			strconv.FormatFloat(s.Church[i], 'f', -1, 64),
			strconv.FormatFloat(s.NonChurch[i], 'f', -1, 64),
		}
	}
	return rows
}

var monthNames = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

func (a *Analysis) writeCharts(ctx context.Context, donorsGained, byYear, byMonth Series) {
	if !a.cfg.Analysis.Charts {
		return
	}
	cw := exporter.NewChartWriter(a.cfg.ChartsDir(), a.logger)
	seriesNames := []string{"All Donors", "Churches", "Not Churches"}

	charts := []struct {
		file, title string
		s           Series
		monthly     bool
	}{
		{"church_donors_gained.png", "Number of Donors Gained Each Year", donorsGained, false},
		{"church_opportunity_by_year.png", "Total Donation Opportunity Each Year", byYear, false},
		{"church_opportunity_by_month.png", "Total Opportunity By Month For the Past 2 Years", byMonth, true},
	}
	for _, c := range charts {
		if len(c.s.Keys) == 0 {
			continue
		}
		labels := make([]string, len(c.s.Keys))
		for i, k := range c.s.Keys {
			if c.monthly {
				labels[i] = monthNames[k-1]
			} else {
				labels[i] = strconv.Itoa(k)
			}
		}
		err := cw.WriteLine(c.file, c.title, labels, seriesNames,
			[][]float64{c.s.Total, c.s.Church, c.s.NonChurch})
		if err != nil {
			a.logger.WarnContext(ctx, "chart export failed",
				slog.String("file", c.file), slog.String("error", err.Error()))
		}
	}
}
