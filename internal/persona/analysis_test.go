package persona

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jayroplekar/D4G/internal/config"
	"github.com/jayroplekar/D4G/internal/errors"
)

func writeInput(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func readOutput(t *testing.T, dir, name string) [][]string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(raw), "\xEF\xBB\xBF")))
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}

func testConfig(inputDir, outputDir string) *config.Config {
	return &config.Config{
		Paths: config.PathsConfig{InputDir: inputDir, OutputDir: outputDir},
		Analysis: config.AnalysisConfig{
			AsOfDate:       "2025-06-30",
			ClassifierMode: config.ModeGrid,
			RecencyYears:   6,
		},
	}
}

func seedExtracts(t *testing.T, inputDir string) {
	t.Helper()
	writeInput(t, inputDir, OpportunityFile, strings.Join([]string{
		"AccountId,Amount,CloseDate",
		"LA,100,2025-01-15",
		"MA,500,2024-03-10",
		"HA,5000,2025-02-01",
		"LD,100,2020-06-01",
		"MD,500,2020-06-01",
		"HD,5000,2020-06-01",
		"P0,0,2024-01-01",
	}, "\n"))
	writeInput(t, inputDir, AccountFile, strings.Join([]string{
		"Id,npo02__LastCloseDate__c",
		"LA,2025-01-15",
		"MA,2024-03-10",
		"HA,2025-02-01",
		"LD,2020-06-01",
		"MD,2020-06-01",
		"HD,2020-06-01",
		"P0,2024-01-01",
		"NEVER,",
	}, "\n"))
	writeInput(t, inputDir, AddressFile, strings.Join([]string{
		"npsp__Household_Account__c,npsp__MailingCity__c,npsp__MailingState__c",
		"LA,Boston,MA",
		"MA,Boston,MA",
		"HD,Oakland,CA",
	}, "\n"))
}

func TestAnalysisRunEndToEnd(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := filepath.Join(t.TempDir(), "out")
	seedExtracts(t, inputDir)

	a := NewAnalysis(testConfig(inputDir, outputDir), nil)
	require.NoError(t, a.Run(context.Background()))

	value := readOutput(t, outputDir, ValueOutputFile)
	require.NotEmpty(t, value)
	assert.Equal(t, valueColumns, value[0])
	require.Len(t, value, 7) // header + six valued accounts

	personas := make(map[string]string)
	for _, row := range value[1:] {
		personas[row[0]] = row[len(row)-2]
	}
	assert.Equal(t, "Yara", personas["LA"])
	assert.Equal(t, "Ryan", personas["MA"])
	assert.Equal(t, "Gary", personas["HA"])
	assert.Equal(t, "Beth", personas["LD"])
	assert.Equal(t, "Peter", personas["MD"])
	assert.Equal(t, "Laura", personas["HD"])

	potential := readOutput(t, outputDir, PotentialOutputFile)
	require.Len(t, potential, 2)
	assert.Equal(t, "P0", potential[1][0])
	assert.Len(t, potential[0], 21)

	merged := readOutput(t, outputDir, MergeOutputFile)
	require.Len(t, merged, 9) // header + eight roster rows
	assert.Equal(t, "Id", merged[0][0])
	byID := make(map[string][]string)
	for _, row := range merged[1:] {
		byID[row[0]] = row
	}
	// A roster row without a valued summary renders blank persona cells.
	neverRow := byID["NEVER"]
	require.NotNil(t, neverRow)
	assert.Empty(t, neverRow[len(neverRow)-2])
	assert.Equal(t, "Gary", byID["HA"][len(merged[0])-2])

	geo := readOutput(t, outputDir, StateDistFile)
	require.Len(t, geo, 3)
	assert.Equal(t, []string{"npsp__MailingState__c", "npsp__MailingCity__c", "count"}, geo[0])
	assert.Equal(t, []string{"CA", "Oakland", "1"}, geo[1])
	assert.Equal(t, []string{"MA", "Boston", "2"}, geo[2])

	stats := readOutput(t, outputDir, StatSummaryFile)
	require.Len(t, stats, 15) // header + fourteen probability points
	assert.Equal(t, []string{"quantile", "amount_total", "non_zero_counts", "dormancy_years"}, stats[0])

	recency := readOutput(t, outputDir, RecencyWindowFile)
	require.NotEmpty(t, recency)
	assert.Equal(t, "times_donated_2025", recency[0][1])
	assert.Equal(t, "flag_donated_2025", recency[0][7])
	assert.Equal(t, "last_5_non0_years", recency[0][13])
}

func TestAnalysisRunMissingInputFailsValidation(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := filepath.Join(t.TempDir(), "out")
	// Only the opportunity extract is present.
	writeInput(t, inputDir, OpportunityFile, "AccountId,Amount,CloseDate\nA,1,2025-01-01")

	a := NewAnalysis(testConfig(inputDir, outputDir), nil)
	err := a.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	// Nothing may be written on a validation failure.
	_, statErr := os.Stat(filepath.Join(outputDir, ValueOutputFile))
	assert.True(t, os.IsNotExist(statErr))
}

func TestAnalysisRunMissingColumnsReported(t *testing.T) {
	inputDir := t.TempDir()
	seedExtracts(t, inputDir)
	// Break the opportunity header.
	writeInput(t, inputDir, OpportunityFile, "AccountId,CloseDate\nA,2025-01-01")

	a := NewAnalysis(testConfig(inputDir, filepath.Join(t.TempDir(), "out")), nil)
	err := a.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "Amount")
}

func TestAnalysisTreeModeSameResultOnCleanData(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := filepath.Join(t.TempDir(), "out")
	seedExtracts(t, inputDir)

	cfg := testConfig(inputDir, outputDir)
	cfg.Analysis.ClassifierMode = config.ModeTree

	a := NewAnalysis(cfg, nil)
	require.NoError(t, a.Run(context.Background()))

	value := readOutput(t, outputDir, ValueOutputFile)
	personas := make(map[string]string)
	for _, row := range value[1:] {
		personas[row[0]] = row[len(row)-2]
	}
	// Non-degenerate thresholds: both modes agree.
	assert.Equal(t, "Gary", personas["HA"])
	assert.Equal(t, "Yara", personas["LA"])
}
