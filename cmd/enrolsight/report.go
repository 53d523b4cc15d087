package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"enrolsight/internal/insights"
	"enrolsight/internal/metrics"
	"enrolsight/internal/report"
)

var (
	reportStates []string
	reportFrom   string
	reportTo     string
	reportJSON   bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Compute all metric families and print an insight report",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringSliceVar(&reportStates, "states", nil, "restrict to these states (case-insensitive)")
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "inclusive start date, DD-MM-YYYY")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "inclusive end date, DD-MM-YYYY")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "emit the insight export as JSON instead of the terminal report")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	filter, err := cliFilter(reportStates, reportFrom, reportTo)
	if err != nil {
		return err
	}
	b, err := loadBundle(cmd.Context())
	if err != nil {
		return err
	}

	rep, err := metrics.Compute(b, settings.Columns, filter)
	if err != nil {
		return err
	}
	for _, fam := range rep.Unavailable {
		logger.Warn().Str("family", fam).Msg("metric family unavailable for this dataset")
	}

	a := insights.Generate(rep)
	if reportJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(a.ToExport())
	}
	report.Render(os.Stdout, rep, a)
	return nil
}
