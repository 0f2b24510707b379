package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taengine",
	Short: "A memoizing technical-analysis engine and backtest driver",
	Long: `taengine evaluates technical indicators over historical bars.

It provides tools for:
  - Replaying bar CSV files through a strategy and indicator list
  - Journaling every emitted value to SQLite, CSV or Redis streams
  - Listing the built-in indicator formulas
  - Reporting on past runs as org-mode entries

Indicator calls are memoized per bar: the same indicator requested twice on
one bar is computed once.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
