package tabular

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jayroplekar/D4G/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "d4g_account.csv",
		"Id,npo02__LastCloseDate__c\n001,2024-03-15\n002,\n003,2020-11-01,extra\n")

	table, err := NewLoader(dir, nil).Load(context.Background(), "d4g_account.csv")
	require.NoError(t, err)

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, "2024-03-15", table.Cell(table.Rows[0], "npo02__LastCloseDate__c"))
	assert.Equal(t, "", table.Cell(table.Rows[1], "npo02__LastCloseDate__c"))
	assert.Equal(t, "003", table.Cell(table.Rows[2], "Id"))
}

func TestLoadCSVStripsBOM(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "d4g_address.csv",
		"\xEF\xBB\xBFnpsp__Household_Account__c,npsp__MailingCity__c,npsp__MailingState__c\n001,Lansing,MI\n")

	table, err := NewLoader(dir, nil).Load(context.Background(), "d4g_address.csv")
	require.NoError(t, err)

	_, ok := table.Col("npsp__Household_Account__c")
	assert.True(t, ok)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader(t.TempDir(), nil).Load(context.Background(), "d4g_opportunity.csv")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "missing required file: d4g_opportunity.csv")
}

func TestRequireColumns(t *testing.T) {
	table := NewTable("d4g_account.csv", []string{"Id", "Name"}, nil)

	assert.NoError(t, table.RequireColumns([]string{"Id"}))

	err := table.RequireColumns([]string{"Id", "npo02__LastCloseDate__c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "npo02__LastCloseDate__c")
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "d4g_account.csv", "Id,npo02__LastCloseDate__c\n001,2024-01-01\n")
	writeFile(t, dir, "d4g_opportunity.csv", "AccountId,Amount,CloseDate\n001,50,2024-01-01\n")

	loader := NewLoader(dir, nil)

	t.Run("all present", func(t *testing.T) {
		tables, err := loader.LoadAll(context.Background(), []Requirement{
			{File: "d4g_account.csv", Columns: []string{"Id", "npo02__LastCloseDate__c"}},
			{File: "d4g_opportunity.csv", Columns: []string{"AccountId", "Amount", "CloseDate"}},
		})
		require.NoError(t, err)
		assert.Len(t, tables, 2)
	})

	t.Run("missing column aborts with named column", func(t *testing.T) {
		_, err := loader.LoadAll(context.Background(), []Requirement{
			{File: "d4g_account.csv", Columns: []string{"Id", "First_Gift_Year__c"}},
		})
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
		assert.Contains(t, err.Error(), "First_Gift_Year__c")
	})

	t.Run("missing file and missing column both reported", func(t *testing.T) {
		_, err := loader.LoadAll(context.Background(), []Requirement{
			{File: "d4g_account.csv", Columns: []string{"Account Record Type"}},
			{File: "d4g_address.csv", Columns: []string{"npsp__MailingCity__c"}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Account Record Type")
		assert.Contains(t, err.Error(), "d4g_address.csv")
	})
}
