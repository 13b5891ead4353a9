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
	parallelSince      string
	parallelProject    string
	parallelMinOverlap int
	parallelLimit      int
)

var parallelCmd = &cobra.Command{
	Use:   "parallel",
	Short: "Find sessions that were active at the same time",
	Long: `Detect parallel work by pairing sessions whose activity windows
overlap. Long overlaps in the same project usually mean a second
assistant was opened on the same task; overlaps across projects show
genuine multitasking.`,
	Example: `  sl parallel --since 24h
  sl parallel --min-overlap 15
  sl parallel --project myrepo`,
	RunE: func(cmd *cobra.Command, args []string) error {
		since, err := sinceTime(parallelSince)
		if err != nil {
			return err
		}

		b, err := openBackend()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer b.Close()

		overlaps, err := b.Parallel(context.Background(), mine.ParallelOptions{
			Since:      since,
			Project:    parallelProject,
			MinOverlap: time.Duration(parallelMinOverlap) * time.Minute,
			Limit:      parallelLimit,
		})
		if err != nil {
			return fmt.Errorf("parallel sessions: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(overlaps)
		}

		if len(overlaps) == 0 {
			fmt.Println("No overlapping sessions found.")
			return nil
		}

		t := NewTable(os.Stdout, "SESSION A", "SESSION B", "OVERLAP", "FROM", "PROJECTS")
		for _, o := range overlaps {
			projects := truncate(o.ProjectA, 30)
			if !o.SameProject {
				projects = truncate(o.ProjectA, 20) + " / " + truncate(o.ProjectB, 20)
			}
			t.Row(
				truncate(o.SessionA, 12),
				truncate(o.SessionB, 12),
				fmt.Sprintf("%.0fm", o.OverlapMinutes),
				o.Start.Format(time.DateTime),
				projects,
			)
		}
		return t.Flush()
	},
}

func init() {
	parallelCmd.Flags().StringVar(&parallelSince, "since", "24h", "time window (e.g., 24h, 7d)")
	parallelCmd.Flags().StringVar(&parallelProject, "project", "", "filter by project path substring")
	parallelCmd.Flags().IntVar(&parallelMinOverlap, "min-overlap", 5, "minimum overlap in minutes")
	parallelCmd.Flags().IntVar(&parallelLimit, "limit", 20, "maximum number of pairs")
	rootCmd.AddCommand(parallelCmd)
}
