package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	env     string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fundcmp",
	Short: "Fund share class return comparison",
	Long: `Fund share class return comparison service and CLI.

Select up to 5 (fund, share class) pairs from the fund catalog and compare
their historical returns side by side.

Usage:
  go run ./cmd/fundcmp [command]

Examples:
  go run ./cmd/fundcmp serve
  go run ./cmd/fundcmp funds
  go run ./cmd/fundcmp funds 1234
  go run ./cmd/fundcmp table --select 1234:5678 --select 4321:8765 --period 1Y
  go run ./cmd/fundcmp feed push catalog ./reportjson.json`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
