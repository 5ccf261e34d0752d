package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundcompare/backend/internal/comparison"
	"github.com/wonny/fundcompare/backend/internal/contracts"
)

const (
	testCatalog = `{"Funds": [
  {"FundId": "A", "FundName": "Alpha", "ShareClasses": [{"FundClassId": "X", "ClassName": "I"}]},
  {"FundId": "B", "FundName": "Beta", "ShareClasses": [{"FundClassId": "Z", "ClassName": "A"}]}
]}`
	testSeries = `{"data": [
  {"AsOfDateStr": "1/31/2024", "AsOfDateFormatted": "2024-01-31", "Returns": [{"FundClassId": "X", "Return": 1.234}]},
  {"AsOfDateStr": "2/29/2024", "AsOfDateFormatted": "2024-02-29", "Returns": [{"FundClassId": "Z", "Return": 4.5}]}
]}`
)

// setupFeeds points the config at temp documents
func setupFeeds(t *testing.T) {
	t.Helper()
	dir := t.TempDir()

	catalogPath := filepath.Join(dir, "reportjson.json")
	seriesPath := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(catalogPath, []byte(testCatalog), 0o600))
	require.NoError(t, os.WriteFile(seriesPath, []byte(testSeries), 0o600))

	t.Setenv("ENV", "development")
	t.Setenv("CATALOG_LOCATION", catalogPath)
	t.Setenv("SERIES_LOCATION", seriesPath)
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LOG_LEVEL", "error")
}

func testCommand() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetContext(context.Background())
	return cmd, &out
}

func resetTableFlags(t *testing.T, selections []string, period, format string) {
	t.Helper()
	tableSelections, tablePeriod, tableFormat = selections, period, format
	t.Cleanup(func() {
		tableSelections, tablePeriod, tableFormat = nil, "", "text"
	})
}

func TestParseSelection(t *testing.T) {
	fundID, classID, err := parseSelection("A:X")
	require.NoError(t, err)
	assert.Equal(t, "A", fundID)
	assert.Equal(t, "X", classID)

	fundID, classID, err = parseSelection(" 12 : 34:5 ")
	require.NoError(t, err)
	assert.Equal(t, "12", fundID)
	assert.Equal(t, "34:5", classID)

	_, _, err = parseSelection("AX")
	assert.Error(t, err)
}

func TestPrinterTable(t *testing.T) {
	var buf bytes.Buffer
	newPrinter(&buf).Table([]string{"Date", "Alpha Class I"}, [][]string{
		{"2/29/2024", "-"},
		{"1/31/2024", "1.23"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Date       Alpha Class I", lines[0])
	assert.Equal(t, strings.Repeat("─", 24), lines[1])
	assert.Equal(t, "2/29/2024              -", lines[2])
	assert.Equal(t, "1/31/2024           1.23", lines[3])
}

func TestRunTable(t *testing.T) {
	setupFeeds(t)
	resetTableFlags(t, []string{"A:X", "B:Z"}, "", "text")

	cmd, out := testCommand()
	require.NoError(t, runTable(cmd, nil))

	text := out.String()
	assert.Contains(t, text, "Historical returns (All)")
	assert.Contains(t, text, "Alpha Class I")
	assert.Regexp(t, `2/29/2024\s+-\s+4\.50`, text)
	assert.Regexp(t, `1/31/2024\s+1\.23\s+-`, text)
	assert.Less(t, strings.Index(text, "2/29/2024"), strings.Index(text, "1/31/2024"))
}

func TestRunTableJSON(t *testing.T) {
	setupFeeds(t)
	resetTableFlags(t, []string{"B:Z"}, "1m", "json")

	cmd, out := testCommand()
	require.NoError(t, runTable(cmd, nil))

	var table comparison.Table
	require.NoError(t, json.Unmarshal(out.Bytes(), &table))
	require.Len(t, table.Rows, 2, "1/31 is within a month of 2/29")
	assert.Equal(t, "4.50", table.Rows[0].Cells[0].Text)
}

func TestRunTableErrors(t *testing.T) {
	setupFeeds(t)

	tests := []struct {
		name       string
		selections []string
		period     string
		format     string
		wantErr    error
		wantOut    string
	}{
		{"empty", nil, "", "text", contracts.ErrEmptySelection, "Please select at least one fund to view history"},
		{"duplicate", []string{"A:X", "A:X"}, "", "text", contracts.ErrAlreadySelected, "already selected"},
		{"unknown class", []string{"A:Z"}, "", "text", contracts.ErrNotFound, "Please select both a fund and a share class"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetTableFlags(t, tt.selections, tt.period, tt.format)

			cmd, out := testCommand()
			err := runTable(cmd, nil)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, out.String(), tt.wantOut)
		})
	}

	resetTableFlags(t, []string{"A:X"}, "2W", "text")
	cmd, _ := testCommand()
	assert.Error(t, runTable(cmd, nil))

	resetTableFlags(t, []string{"A:X"}, "", "xml")
	cmd, _ = testCommand()
	assert.Error(t, runTable(cmd, nil))
}

func TestRunTableSeriesFailure(t *testing.T) {
	setupFeeds(t)
	t.Setenv("SERIES_LOCATION", filepath.Join(t.TempDir(), "missing.json"))
	resetTableFlags(t, []string{"A:X"}, "", "text")

	cmd, out := testCommand()
	err := runTable(cmd, nil)
	assert.ErrorIs(t, err, contracts.ErrFetchFailure)
	assert.Contains(t, out.String(), "Failed to load historical data. Please try again later.")
}

func TestRunFunds(t *testing.T) {
	setupFeeds(t)

	cmd, out := testCommand()
	require.NoError(t, runFunds(cmd, nil))
	assert.Contains(t, out.String(), "Funds (2)")
	assert.Contains(t, out.String(), "Beta")

	cmd, out = testCommand()
	require.NoError(t, runFunds(cmd, []string{"A"}))
	assert.Contains(t, out.String(), "Class I")

	cmd, _ = testCommand()
	assert.ErrorIs(t, runFunds(cmd, []string{"Q"}), contracts.ErrNotFound)
}

func TestRunFeedCheck(t *testing.T) {
	setupFeeds(t)

	cmd, out := testCommand()
	require.NoError(t, runFeedCheck(cmd, nil))
	assert.Contains(t, out.String(), "2 funds")
	assert.Contains(t, out.String(), "2 dates, latest 2/29/2024")

	t.Setenv("CATALOG_LOCATION", filepath.Join(t.TempDir(), "missing.json"))
	cmd, out = testCommand()
	assert.Error(t, runFeedCheck(cmd, nil))
	assert.Contains(t, out.String(), "❌ catalog")
}

func TestValidateDocument(t *testing.T) {
	feedKind = ""
	t.Cleanup(func() { feedKind = "" })

	assert.NoError(t, validateDocument("catalog", "reportjson.json", []byte(testCatalog)))
	assert.NoError(t, validateDocument("series", "data.json", []byte(testSeries)))
	assert.ErrorIs(t, validateDocument("series", "data.json", []byte(testCatalog)), contracts.ErrParse)
	assert.Error(t, validateDocument("series", "data.yaml", []byte(testSeries)), "format mismatch")

	yamlCatalog := "Funds:\n  - FundId: A\n    FundName: Alpha\n"
	assert.NoError(t, validateDocument("catalog.yaml", "funds.yml", []byte(yamlCatalog)))

	feedKind = "catalog"
	assert.NoError(t, validateDocument("funds", "funds.json", []byte(testCatalog)))
	feedKind = "other"
	assert.Error(t, validateDocument("funds", "funds.json", []byte(testCatalog)))
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "postgres://fund:xxxxx@db:5432/fundcompare", redactURL("postgres://fund:secret@db:5432/fundcompare"))
	assert.Equal(t, "postgres://db/fundcompare", redactURL("postgres://db/fundcompare"))
	assert.Equal(t, "(not set)", redactURL(""))
}
