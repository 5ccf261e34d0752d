package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/fundcompare/backend/internal/comparison"
	"github.com/wonny/fundcompare/backend/internal/contracts"
	"github.com/wonny/fundcompare/backend/internal/selection"
	"github.com/wonny/fundcompare/backend/internal/series"
)

// tableCmd represents the table command
var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the return comparison table",
	Long: `Select up to 5 fund share classes and print their returns by date,
newest first. Missing returns print as "-".

Example:
  go run ./cmd/fundcmp table --select 1234:5678
  go run ./cmd/fundcmp table --select 1234:5678 --select 4321:8765 --period YTD
  go run ./cmd/fundcmp table --select 1234:5678 --format json`,
	RunE: runTable,
}

var (
	tableSelections []string
	tablePeriod     string
	tableFormat     string
)

func init() {
	rootCmd.AddCommand(tableCmd)

	// Flags
	tableCmd.Flags().StringArrayVarP(&tableSelections, "select", "s", nil, "FUND:CLASS pair, repeatable")
	tableCmd.Flags().StringVar(&tablePeriod, "period", "", "1M, 3M, 6M, 1Y, 3Y, 5Y or YTD (default all)")
	tableCmd.Flags().StringVar(&tableFormat, "format", "text", "text or json")
}

func runTable(cmd *cobra.Command, args []string) error {
	out := newPrinter(cmd.OutOrStdout())

	period, err := series.ParsePeriod(tablePeriod)
	if err != nil {
		return err
	}
	if tableFormat != "text" && tableFormat != "json" {
		return fmt.Errorf("unknown format %q", tableFormat)
	}

	rt, err := newRuntime(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	cat, err := rt.loadCatalog(cmd.Context())
	if err != nil {
		out.Error(contracts.UserMessage(contracts.OpLoadCatalog, err))
		return err
	}

	manager := selection.NewManager(cat)
	for _, raw := range tableSelections {
		fundID, classID, err := parseSelection(raw)
		if err != nil {
			return err
		}
		if _, err := manager.Add(fundID, classID); err != nil {
			out.Error(fmt.Sprintf("%s (%s)", contracts.UserMessage(contracts.OpAdd, err), raw))
			return err
		}
	}

	snapshot := manager.Snapshot()
	if len(snapshot) == 0 {
		err := contracts.ErrEmptySelection
		out.Error(contracts.UserMessage(contracts.OpHistory, err))
		return err
	}

	loader, err := rt.seriesLoader()
	if err != nil {
		return err
	}
	idx, err := loader.Load(cmd.Context())
	if err != nil {
		out.Error(contracts.UserMessage(contracts.OpHistory, err))
		return err
	}

	table, err := comparison.BuildPeriod(snapshot, idx, period)
	if err != nil {
		return err
	}

	if tableFormat == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(table)
	}

	printTable(out, table, period)
	return nil
}

func printTable(out printer, table *comparison.Table, period series.Period) {
	out.Header(fmt.Sprintf("Historical returns (%s)", period.Label()))

	columns := make([]string, 0, len(table.Columns)+1)
	columns = append(columns, "Date")
	for _, c := range table.Columns {
		columns = append(columns, c.Name)
	}

	rows := make([][]string, len(table.Rows))
	for i, r := range table.Rows {
		row := make([]string, 0, len(r.Cells)+1)
		row = append(row, r.Date)
		for _, c := range r.Cells {
			row = append(row, c.Text)
		}
		rows[i] = row
	}

	out.Table(columns, rows)
	if len(rows) == 0 {
		out.Info("No dates in the selected period")
	}
}
