package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var trendsDays int

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Compare recent activity against the previous period",
	Long: `Compare activity metrics over the last N days against the N days
before that: events, tool calls, errors, sessions, compactions, and
token spend. A metric with no activity in the previous period shows
"new" instead of a percentage.`,
	Example: `  sl trends
  sl trends --days 14`,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer b.Close()

		report, err := b.Trends(context.Background(), trendsDays)
		if err != nil {
			return fmt.Errorf("compute trends: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		fmt.Printf("Last %d days vs previous %d days\n\n", report.WindowDays, report.WindowDays)

		t := NewTable(os.Stdout, "METRIC", "CURRENT", "PREVIOUS", "CHANGE")
		for _, tr := range report.Trends {
			change := "new"
			if tr.ChangePct != nil {
				change = fmt.Sprintf("%+.1f%%", *tr.ChangePct)
			} else if tr.Current == 0 {
				change = "-"
			}
			t.Row(
				tr.Metric,
				humanize.Comma(tr.Current),
				humanize.Comma(tr.Previous),
				change,
			)
		}
		return t.Flush()
	},
}

func init() {
	trendsCmd.Flags().IntVar(&trendsDays, "days", 0, "window size in days (default 7)")
	rootCmd.AddCommand(trendsCmd)
}
