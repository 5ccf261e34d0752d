package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/fundcompare/backend/internal/contracts"
)

// fundsCmd represents the funds command
var fundsCmd = &cobra.Command{
	Use:   "funds [FUND_ID]",
	Short: "List funds or the share classes of one fund",
	Long: `List the funds of the catalog in document order.
With a fund id, list that fund's share classes instead.

Example:
  go run ./cmd/fundcmp funds
  go run ./cmd/fundcmp funds 1234`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFunds,
}

func init() {
	rootCmd.AddCommand(fundsCmd)
}

func runFunds(cmd *cobra.Command, args []string) error {
	out := newPrinter(cmd.OutOrStdout())

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

	if len(args) == 0 {
		out.Header(fmt.Sprintf("Funds (%d)", cat.Len()))
		rows := make([][]string, 0, cat.Len())
		for _, f := range cat.Funds() {
			rows = append(rows, []string{f.ID, f.Name, strconv.Itoa(len(f.ShareClasses))})
		}
		out.Table([]string{"ID", "Name", "Classes"}, rows)
		return nil
	}

	fund, ok := cat.FindFund(args[0])
	if !ok {
		err := fmt.Errorf("fund %q: %w", args[0], contracts.ErrNotFound)
		out.Error(err.Error())
		return err
	}

	out.Header(fund.Name)
	rows := make([][]string, 0, len(fund.ShareClasses))
	for _, c := range fund.ShareClasses {
		rows = append(rows, []string{c.ID, c.Label()})
	}
	out.Table([]string{"ID", "Share class"}, rows)
	return nil
}
