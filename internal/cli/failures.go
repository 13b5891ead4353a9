package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/scbrown/session-lens/internal/mine"
	"github.com/spf13/cobra"
)

var (
	failuresSince   string
	failuresProject string
	failuresWindow  string
	failuresLimit   int
)

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "Show failing tool calls and rework they caused",
	Long: `Group error tool results by the tool and command that produced
them. A failure followed by a retry of the same command, or another edit
of the same file, within the rework window counts as rework: a signal
that the failure cost a recovery step.`,
	Example: `  sl failures
  sl failures --since 7d
  sl failures --rework-window 15m`,
	RunE: func(cmd *cobra.Command, args []string) error {
		since, err := sinceTime(failuresSince)
		if err != nil {
			return err
		}

		var window time.Duration
		if failuresWindow != "" {
			window, err = parseDuration(failuresWindow)
			if err != nil {
				return fmt.Errorf("invalid --rework-window value %q: %w", failuresWindow, err)
			}
		}

		b, err := openBackend()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer b.Close()

		stats, err := b.Failures(context.Background(), mine.FailureOptions{
			Since:        since,
			Project:      failuresProject,
			ReworkWindow: window,
			Limit:        failuresLimit,
		})
		if err != nil {
			return fmt.Errorf("analyze failures: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}

		if len(stats) == 0 {
			fmt.Println("No failures found.")
			return nil
		}

		t := NewTable(os.Stdout, "TOOL", "COMMAND", "ERRORS", "REWORK")
		for _, s := range stats {
			t.Row(
				s.Tool,
				truncate(s.Command, 50),
				fmt.Sprintf("%d", s.Errors),
				fmt.Sprintf("%d", s.Rework),
			)
		}
		return t.Flush()
	},
}

func init() {
	failuresCmd.Flags().StringVar(&failuresSince, "since", "", "time window (e.g., 24h, 7d)")
	failuresCmd.Flags().StringVar(&failuresProject, "project", "", "filter by project path substring")
	failuresCmd.Flags().StringVar(&failuresWindow, "rework-window", "", "window for counting rework after a failure (default 10m)")
	failuresCmd.Flags().IntVar(&failuresLimit, "limit", 20, "maximum number of results")
	rootCmd.AddCommand(failuresCmd)
}
