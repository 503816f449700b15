package persona

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jayroplekar/D4G/internal/money"
	"github.com/jayroplekar/D4G/internal/tabular"
)

// Input file and column contract with the upstream extract job. Not
// negotiable: validation reports these exact names.
const (
	AccountFile     = "d4g_account.csv"
	OpportunityFile = "d4g_opportunity.csv"
	AddressFile     = "d4g_address.csv"

	colAccountID     = "Id"
	colLastCloseDate = "npo02__LastCloseDate__c"
	colOppAccountID  = "AccountId"
	colAmount        = "Amount"
	colCloseDate     = "CloseDate"
	colHousehold     = "npsp__Household_Account__c"
	colMailingCity   = "npsp__MailingCity__c"
	colMailingState  = "npsp__MailingState__c"
)

// Requirements lists the input tables and columns the persona analysis
// depends on, checked before any aggregation begins.
func Requirements() []tabular.Requirement {
	return []tabular.Requirement{
		{File: AccountFile, Columns: []string{colLastCloseDate, colAccountID}},
		{File: OpportunityFile, Columns: []string{colAmount, colOppAccountID, colCloseDate}},
		{File: AddressFile, Columns: []string{colHousehold, colMailingCity, colMailingState}},
	}
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"1/2/2006",
	"2006/1/2",
}

// ParseCloseDate extracts year and month from a close-date cell.
func ParseCloseDate(s string) (year, month int, err error) {
	for _, layout := range dateLayouts {
		if t, perr := time.Parse(layout, s); perr == nil {
			return t.Year(), int(t.Month()), nil
		}
	}
	return 0, 0, fmt.Errorf("unparseable date %q", s)
}

// ParseGiftRecords converts the opportunity table to gift records with
// normalized account ids. Rows with an unparseable date or amount are
// skipped and counted; a handful of bad rows must not sink the whole
// extract.
func ParseGiftRecords(ctx context.Context, table *tabular.Table, logger *slog.Logger) []GiftRecord {
	if logger == nil {
		logger = slog.Default()
	}

	records := make([]GiftRecord, 0, table.Len())
	skipped := 0
	for _, row := range table.Rows {
		id := NormalizeAccountID(table.Cell(row, colOppAccountID))
		if id == "" {
			skipped++
			continue
		}
		amount, err := money.ParseAmount(table.Cell(row, colAmount))
		if err != nil {
			skipped++
			continue
		}
		year, month, err := ParseCloseDate(table.Cell(row, colCloseDate))
		if err != nil {
			skipped++
			continue
		}
		records = append(records, GiftRecord{
			AccountID:  id,
			Amount:     amount,
			CloseYear:  year,
			CloseMonth: month,
		})
	}

	if skipped > 0 {
		logger.WarnContext(ctx, "skipped malformed opportunity rows",
			slog.Int("skipped", skipped), slog.Int("kept", len(records)))
	}
	return records
}

// ParseRoster converts the account table to the full roster, deriving the
// last-close month where the date parses.
func ParseRoster(table *tabular.Table) []RosterAccount {
	roster := make([]RosterAccount, 0, table.Len())
	for _, row := range table.Rows {
		id := NormalizeAccountID(table.Cell(row, colAccountID))
		if id == "" {
			continue
		}
		acc := RosterAccount{ID: id, LastCloseDate: table.Cell(row, colLastCloseDate)}
		if _, month, err := ParseCloseDate(acc.LastCloseDate); err == nil {
			acc.LastCloseMonth = month
		}
		roster = append(roster, acc)
	}
	return roster
}

// ParseAddresses converts the address table.
func ParseAddresses(table *tabular.Table) []Address {
	addrs := make([]Address, 0, table.Len())
	for _, row := range table.Rows {
		addrs = append(addrs, Address{
			HouseholdAccountID: NormalizeAccountID(table.Cell(row, colHousehold)),
			City:               table.Cell(row, colMailingCity),
			State:              table.Cell(row, colMailingState),
		})
	}
	return addrs
}
