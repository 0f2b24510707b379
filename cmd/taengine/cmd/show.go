package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/taengine/journal"
)

var showCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Query runs recorded in a SQLite journal",
	Long: `Without a run ID, show lists the runs in the journal, newest first.
With one, it prints the run's org report, or with --value the full history
of one emitted value.

Examples:
  taengine show -d taengine.db
  taengine show -d taengine.db 01HV...
  taengine show -d taengine.db 01HV... --value ema.fast`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

var (
	showDBPath string
	showValue  string
)

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVarP(&showDBPath, "db", "d", "./taengine.db", "path to SQLite journal DB")
	showCmd.Flags().StringVar(&showValue, "value", "", "list every recorded value of this name")
}

func runShow(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(showDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		runs, err := j.ListRuns()
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tNAME\tALGORITHM\tBARS\tVALUES\tCREATED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
				r.RunID, r.Name, r.Algorithm, r.Bars, r.Values, r.Created.Format(time.RFC3339))
		}
		return w.Flush()
	}

	runID := args[0]
	if showValue != "" {
		vals, err := j.ListValues(runID, showValue)
		if err != nil {
			return fmt.Errorf("list values: %w", err)
		}
		for _, v := range vals {
			fmt.Fprintf(out, "%d\t%s\t%s\t%g\n", v.Bar, v.Time.Format(time.RFC3339), v.Instrument, v.Value)
		}
		return nil
	}

	run, err := j.GetRun(runID)
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	latest, err := j.Latest(runID)
	if err != nil {
		return fmt.Errorf("latest values: %w", err)
	}
	return journal.WriteRunReport(out, journal.RunReport{Run: run, Latest: latest})
}
