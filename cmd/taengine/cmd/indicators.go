package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/taengine/indicators"
)

var indicatorsCmd = &cobra.Command{
	Use:   "indicators",
	Short: "List the built-in indicator formulas",
	Long: `List every formula an indicators entry in a config file may name,
with its parameters (and their defaults) and its outputs.

Example:
  taengine indicators`,
	Args: cobra.NoArgs,
	RunE: runIndicators,
}

func init() {
	rootCmd.AddCommand(indicatorsCmd)
}

func runIndicators(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPARAMS\tOUTPUTS\tDESCRIPTION")
	for _, f := range indicators.Default().Formulas() {
		params := make([]string, len(f.Params))
		for i, p := range f.Params {
			params[i] = p.Name + "=" + strconv.FormatFloat(p.Default, 'f', -1, 64)
		}
		if f.NeedsBenchmark {
			params = append(params, "benchmark")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			f.Name, strings.Join(params, ","), strings.Join(f.Outputs, ","), f.Description)
	}
	return w.Flush()
}
