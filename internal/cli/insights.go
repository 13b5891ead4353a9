package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	insightsSince   string
	insightsCompute bool
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Show cached analytical patterns across all types",
	Long: `Show the pattern cache: tool frequency, command frequency, tool
sequences, and permission gaps in one view. Patterns are served from
the cache populated by the last --compute run; pass --compute to
recompute them from current events first.`,
	Example: `  sl insights
  sl insights --compute
  sl insights --compute --since 7d`,
	RunE: func(cmd *cobra.Command, args []string) error {
		since, err := sinceTime(insightsSince)
		if err != nil {
			return err
		}

		b, err := openBackend()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer b.Close()

		ins, err := b.Insights(context.Background(), insightsCompute, since)
		if err != nil {
			return fmt.Errorf("insights: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(ins)
		}

		empty := len(ins.Tools) == 0 && len(ins.Commands) == 0 &&
			len(ins.Sequences) == 0 && len(ins.Gaps) == 0
		if empty {
			fmt.Println("No insights cached. Run: sl insights --compute")
			return nil
		}

		color := isTTY(os.Stdout)

		if len(ins.Tools) > 0 {
			fmt.Println(bold("Top tools:", color))
			for _, t := range ins.Tools {
				fmt.Printf("  %-24s %d\n", t.Name, t.Count)
			}
			fmt.Println()
		}

		if len(ins.Commands) > 0 {
			fmt.Println(bold("Top commands:", color))
			for _, c := range ins.Commands {
				fmt.Printf("  %-24s %d\n", truncate(c.Name, 24), c.Count)
			}
			fmt.Println()
		}

		if len(ins.Sequences) > 0 {
			fmt.Println(bold("Recurring sequences:", color))
			for _, s := range ins.Sequences {
				fmt.Printf("  %-40s %d\n", truncate(s.Key, 40), s.Count)
			}
			fmt.Println()
		}

		if len(ins.Gaps) > 0 {
			fmt.Println(bold("Permission gaps:", color))
			for _, g := range ins.Gaps {
				line := fmt.Sprintf("  %-24s %d  add %s", truncate(g.Command, 24), g.Count, g.Suggestion)
				if g.ClosestAllowed != "" {
					line += fmt.Sprintf("  (near %s)", g.ClosestAllowed)
				}
				fmt.Println(line)
			}
		}
		return nil
	},
}

func init() {
	insightsCmd.Flags().StringVar(&insightsSince, "since", "", "time window for --compute (e.g., 7d)")
	insightsCmd.Flags().BoolVar(&insightsCompute, "compute", false, "recompute patterns from events before showing")
	rootCmd.AddCommand(insightsCmd)
}
