// Package persona turns raw gift transactions into account-level donor
// behavior summaries and assigns each donating account one of six behavioral
// personas using thresholds derived from the dataset's own distribution.
package persona

// GiftRecord is one gift transaction keyed by its normalized account id.
// Amount may be zero or negative (adjustments); only positive amounts count
// toward non-zero donation statistics.
type GiftRecord struct {
	AccountID  string
	Amount     float64
	CloseYear  int
	CloseMonth int // 1-12
}

// AccountSummary is the per-account reduction of all gift records.
// Lifetime aggregates run over every record, adjustments included;
// NonZeroCounts runs over the strictly positive subset.
type AccountSummary struct {
	AccountID string

	AmountMin   float64
	AmountMax   float64
	AmountMean  float64
	AmountTotal float64

	StartYear   int
	LatestYear  int
	FirstMonth  int
	AvgMonth    float64
	LatestMonth int

	NonZeroCounts int

	ThisYearNonZeroCounts int
	ThisYearAmountTotal   float64
	ThisYearAmountMean    float64
	PrevYearNonZeroCounts int
	PrevYearAmountTotal   float64
	PrevYearAmountMean    float64

	// AccountAge is as-of year minus StartYear, never negative. Averages
	// below divide by an effective age of at least one year, so a donor in
	// their first year gets defined values rather than an infinity.
	AccountAge    int
	DormancyYears int

	AverageTotalDonation       float64
	AverageTimeBetweenDonation float64
}

// Valued reports whether the account belongs to the valued segment.
func (s AccountSummary) Valued() bool { return s.AmountTotal > 0 }

// Persona is one of the six behavioral labels.
type Persona string

// The six personas, in grid evaluation order.
const (
	Gary  Persona = "Gary"
	Yara  Persona = "Yara"
	Ryan  Persona = "Ryan"
	Laura Persona = "Laura"
	Peter Persona = "Peter"
	Beth  Persona = "Beth"

	// NoPersona marks a not-yet-classified account. A valued account must
	// never be emitted with it.
	NoPersona Persona = ""
)

var personaGroups = map[Persona]string{
	Gary:  "Gold",
	Yara:  "Light Blue",
	Ryan:  "Green",
	Laura: "Purple",
	Peter: "Dark Blue",
	Beth:  "Red",
}

// Group returns the display color group for the persona.
func (p Persona) Group() string { return personaGroups[p] }

// Personas lists all six personas in grid evaluation order.
func Personas() []Persona {
	return []Persona{Gary, Yara, Ryan, Laura, Peter, Beth}
}

// ValuedAccount is an AccountSummary with positive lifetime giving, carrying
// its persona, color group, and informational percentile ranks.
type ValuedAccount struct {
	AccountSummary

	Persona Persona
	Group   string

	// Percentile ranks: fraction of valued accounts with a lower-or-equal
	// value. Informational only; never feeds back into classification.
	AmountTotalPercentile   float64
	NonZeroCountsPercentile float64
	DormancyYearsPercentile float64
}

// Thresholds are the dataset-derived classification boundaries.
type Thresholds struct {
	Q33            float64 // 33rd percentile of valued amount_total
	Q67            float64 // 67th percentile of valued amount_total
	DormancyMedian float64 // median of valued dormancy_years
}

// YearActivity is one year of the trailing recency window.
type YearActivity struct {
	Year    int
	Gifts   int // positive-amount gifts closed in Year
	Donated bool
}

// RecencyWindow records which trailing-window years saw a positive donation.
// ActiveYears is bounded by the window span (six under the default config).
type RecencyWindow struct {
	AccountID   string
	Years       []YearActivity // as-of year first, descending
	ActiveYears int
}

// RosterAccount is one row of the full account roster.
type RosterAccount struct {
	ID             string
	LastCloseDate  string
	LastCloseMonth int // derived from LastCloseDate, 0 when unparseable
}

// Address is one mailing address keyed by household account.
type Address struct {
	HouseholdAccountID string
	City               string
	State              string
}

// MergedAccount is a roster row left-joined with its valued summary;
// Valued stays nil for accounts without positive giving history.
type MergedAccount struct {
	RosterAccount
	Valued *ValuedAccount
}

// GeoCount is the number of addresses for one (state, city) pair.
type GeoCount struct {
	State string
	City  string
	Count int
}
