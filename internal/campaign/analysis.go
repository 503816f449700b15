// Package campaign analyzes email campaign engagement: which campaigns reach
// the donors who give, how activity splits against unsubscribes, and how
// engagement distributes across the donor personas.
package campaign

import (
	"context"
	"log/slog"
	"sort"
	"strconv"

	"github.com/jayroplekar/D4G/internal/config"
	"github.com/jayroplekar/D4G/internal/exporter"
	"github.com/jayroplekar/D4G/internal/money"
	"github.com/jayroplekar/D4G/internal/persona"
	"github.com/jayroplekar/D4G/internal/tabular"
)

// Input extracts and their required columns.
const (
	MonitorFile  = "campaign_monitor_extract.csv"
	ContactFile  = "contact_extract.csv"
	TrackingFile = "email_tracking_extract.csv"
)

// Output files.
const (
	TopGiftsFile          = "d4g_campaign_top_gifts.csv"
	ActivitySummaryFile   = "d4g_campaign_activity_summary.csv"
	GenderSummaryFile     = "d4g_campaign_gender_summary.csv"
	PersonaEngagementFile = "d4g_campaign_persona_engagement.csv"
)

// Requirements lists the extracts the campaign analysis validates up front.
func Requirements() []tabular.Requirement {
	return []tabular.Requirement{
		{File: MonitorFile, Columns: []string{"Name", "wbsendit__Campaign_ID__c", "wbsendit__Num_Opens__c", "wbsendit__Num_Clicks__c"}},
		{File: ContactFile, Columns: []string{"ID", "goldenapp__Gender__c", "npo02__LastCloseDate__c", "npo02__TotalOppAmount__c"}},
		{File: TrackingFile, Columns: []string{"Name", "wbsendit__Campaign_ID__c", "wbsendit__Contact__c", "wbsendit__Activity__c"}},
	}
}

// engagement is one tracking row joined with its campaign and contact.
type engagement struct {
	CampaignID string
	Campaign   string
	ContactID  string
	Activity   string

	NumOpens   float64
	NumClicks  float64
	TotalGifts float64
}

// Analysis is the email campaign engagement analysis.
type Analysis struct {
	cfg    *config.Config
	loader *tabular.Loader
	logger *slog.Logger
}

// NewAnalysis creates the campaign analysis over the configured input
// directory.
func NewAnalysis(cfg *config.Config, logger *slog.Logger) *Analysis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analysis{
		cfg:    cfg,
		loader: tabular.NewLoader(cfg.Paths.InputDir, logger),
		logger: logger.With(slog.String("analysis", "campaign")),
	}
}

// Name identifies the analysis in logs and the error summary.
func (a *Analysis) Name() string { return "campaign" }

// Run loads the three extracts, joins tracking rows against campaigns and
// contacts, and writes the engagement reports. The persona attribution join
// reads the persona module's value output when present and is skipped with a
// warning otherwise, since the campaign numbers stand on their own.
func (a *Analysis) Run(ctx context.Context) error {
	tables, err := a.loader.LoadAll(ctx, Requirements())
	if err != nil {
		return err
	}

	rows := joinEngagements(tables[TrackingFile], tables[MonitorFile], tables[ContactFile])
	a.logger.InfoContext(ctx, "joined engagement rows", slog.Int("rows", len(rows)))

	csv := exporter.NewCSVWriter(a.cfg.Paths.OutputDir, a.logger)

	top := topCampaignsByGifts(rows, 5)
	topRows := make([][]string, len(top))
	for i, c := range top {
		topRows[i] = []string{c.CampaignID, formatFloat(c.TotalGifts), strconv.Itoa(c.Engagements)}
	}
	if err := csv.Write(TopGiftsFile, []string{"CAMPAIGN_ID", "total_gifts", "engagements"}, topRows); err != nil {
		return err
	}

	if err := csv.Write(ActivitySummaryFile,
		[]string{"scope", "activity", "CAMPAIGN_ID", "total_gifts", "engagements"},
		activitySummaryRows(rows)); err != nil {
		return err
	}

	if err := csv.Write(GenderSummaryFile,
		[]string{"GENDER", "opens_count", "opens_mean", "gifts_count", "gifts_mean", "clicks_count", "clicks_mean"},
		genderSummaryRows(tables[ContactFile], rows)); err != nil {
		return err
	}

	if err := a.writePersonaEngagement(ctx, csv, rows); err != nil {
		return err
	}

	a.writeCharts(ctx, top)
	a.logger.InfoContext(ctx, "campaign analysis complete")
	return nil
}

func joinEngagements(tracking, monitor, contact *tabular.Table) []engagement {
	type campaignStats struct {
		opens, clicks float64
	}
	campaigns := make(map[string]campaignStats, monitor.Len())
	for _, row := range monitor.Rows {
		key := monitor.Cell(row, "Name") + "\x00" + monitor.Cell(row, "wbsendit__Campaign_ID__c")
		opens, _ := money.ParseAmount(monitor.Cell(row, "wbsendit__Num_Opens__c"))
		clicks, _ := money.ParseAmount(monitor.Cell(row, "wbsendit__Num_Clicks__c"))
		campaigns[key] = campaignStats{opens: opens, clicks: clicks}
	}

	type contactInfo struct {
		gifts float64
	}
	contacts := make(map[string]contactInfo, contact.Len())
	for _, row := range contact.Rows {
		id := persona.NormalizeAccountID(contact.Cell(row, "ID"))
		gifts, _ := money.ParseAmount(contact.Cell(row, "npo02__TotalOppAmount__c"))
		contacts[id] = contactInfo{gifts: gifts}
	}

	rows := make([]engagement, 0, tracking.Len())
	for _, row := range tracking.Rows {
		e := engagement{
			Campaign:   tracking.Cell(row, "Name"),
			CampaignID: tracking.Cell(row, "wbsendit__Campaign_ID__c"),
			ContactID:  persona.NormalizeAccountID(tracking.Cell(row, "wbsendit__Contact__c")),
			Activity:   tracking.Cell(row, "wbsendit__Activity__c"),
		}
		// Left joins: a tracking row without a matching campaign or contact
		// keeps zeros rather than disappearing.
		if c, ok := campaigns[e.Campaign+"\x00"+e.CampaignID]; ok {
			e.NumOpens = c.opens
			e.NumClicks = c.clicks
		}
		if c, ok := contacts[e.ContactID]; ok {
			e.TotalGifts = c.gifts
		}
		rows = append(rows, e)
	}
	return rows
}

// campaignTotal is one campaign's summed gifts over its engagement rows.
type campaignTotal struct {
	CampaignID  string
	TotalGifts  float64
	Engagements int
}

func topCampaignsByGifts(rows []engagement, n int) []campaignTotal {
	totals := make(map[string]*campaignTotal)
	for _, e := range rows {
		t, ok := totals[e.CampaignID]
		if !ok {
			t = &campaignTotal{CampaignID: e.CampaignID}
			totals[e.CampaignID] = t
		}
		t.TotalGifts += e.TotalGifts
		t.Engagements++
	}

	out := make([]campaignTotal, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalGifts != out[j].TotalGifts {
			return out[i].TotalGifts > out[j].TotalGifts
		}
		return out[i].CampaignID < out[j].CampaignID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// activitySummaryRows emits, per activity and per Unsubscribed/Others
// category, the top five campaigns by summed gifts.
func activitySummaryRows(rows []engagement) [][]string {
	categorize := func(activity string) string {
		if activity == "Unsubscribed" {
			return "Unsubscribed"
		}
		return "Others"
	}

	var out [][]string
	for _, scope := range []struct {
		name string
		key  func(engagement) string
	}{
		{"activity", func(e engagement) string { return e.Activity }},
		{"category", func(e engagement) string { return categorize(e.Activity) }},
	} {
		grouped := make(map[string][]engagement)
		for _, e := range rows {
			k := scope.key(e)
			grouped[k] = append(grouped[k], e)
		}
		keys := make([]string, 0, len(grouped))
		for k := range grouped {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			for _, c := range topCampaignsByGifts(grouped[k], 5) {
				out = append(out, []string{
					scope.name, k, c.CampaignID,
					formatFloat(c.TotalGifts), strconv.Itoa(c.Engagements),
				})
			}
		}
	}
	return out
}

// genderSummaryRows computes count and rounded mean of opens, gifts, and
// clicks per gender, Male and Female contacts only, one engagement row each.
func genderSummaryRows(contact *tabular.Table, rows []engagement) [][]string {
	genders := make(map[string]string, contact.Len())
	for _, row := range contact.Rows {
		id := persona.NormalizeAccountID(contact.Cell(row, "ID"))
		genders[id] = contact.Cell(row, "goldenapp__Gender__c")
	}

	type acc struct {
		n                    int
		opens, gifts, clicks float64
	}
	byGender := make(map[string]*acc)
	for _, e := range rows {
		g := genders[e.ContactID]
		if g != "Male" && g != "Female" {
			continue
		}
		s, ok := byGender[g]
		if !ok {
			s = &acc{}
			byGender[g] = s
		}
		s.n++
		s.opens += e.NumOpens
		s.gifts += e.TotalGifts
		s.clicks += e.NumClicks
	}

	keys := make([]string, 0, len(byGender))
	for g := range byGender {
		keys = append(keys, g)
	}
	sort.Strings(keys)

	out := make([][]string, 0, len(keys))
	for _, g := range keys {
		s := byGender[g]
		mean := func(sum float64) string {
			return strconv.Itoa(int(sum/float64(s.n) + 0.5))
		}
		out = append(out, []string{
			g,
			strconv.Itoa(s.n), mean(s.opens),
			strconv.Itoa(s.n), mean(s.gifts),
			strconv.Itoa(s.n), mean(s.clicks),
		})
	}
	return out
}

// writePersonaEngagement joins engagement rows to the persona module's value
// output on the normalized account id and aggregates opens and clicks per
// persona.
func (a *Analysis) writePersonaEngagement(ctx context.Context, csv *exporter.CSVWriter, rows []engagement) error {
	outLoader := tabular.NewLoader(a.cfg.Paths.OutputDir, a.logger)
	value, err := outLoader.Load(ctx, persona.ValueOutputFile)
	if err != nil {
		a.logger.WarnContext(ctx, "persona value output unavailable, skipping attribution",
			slog.String("error", err.Error()))
		return nil
	}

	personaByAccount := make(map[string]string, value.Len())
	for _, row := range value.Rows {
		personaByAccount[value.Cell(row, "AccountId")] = value.Cell(row, "persona")
	}

	type acc struct {
		rows          int
		opens, clicks float64
	}
	byPersona := make(map[string]*acc)
	for _, e := range rows {
		p, ok := personaByAccount[e.ContactID]
		if !ok {
			continue
		}
		s, ok := byPersona[p]
		if !ok {
			s = &acc{}
			byPersona[p] = s
		}
		s.rows++
		s.opens += e.NumOpens
		s.clicks += e.NumClicks
	}

	out := make([][]string, 0, 6)
	for _, p := range persona.Personas() {
		s, ok := byPersona[string(p)]
		if !ok {
			s = &acc{}
		}
		out = append(out, []string{
			string(p),
			strconv.Itoa(s.rows),
			formatFloat(s.opens),
			formatFloat(s.clicks),
		})
	}
	return csv.Write(PersonaEngagementFile,
		[]string{"persona", "engagements", "opens", "clicks"}, out)
}

func (a *Analysis) writeCharts(ctx context.Context, top []campaignTotal) {
	if !a.cfg.Analysis.Charts || len(top) == 0 {
		return
	}
	cw := exporter.NewChartWriter(a.cfg.ChartsDir(), a.logger)

	labels := make([]string, len(top))
	values := make([]float64, len(top))
	for i, c := range top {
		labels[i] = c.CampaignID
		values[i] = c.TotalGifts
	}
	if err := cw.WriteBar("campaign_top_gifts.png", "Top Campaigns by Total Gifts", labels, values); err != nil {
		a.logger.WarnContext(ctx, "chart export failed", slog.String("error", err.Error()))
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
