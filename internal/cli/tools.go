package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/scbrown/session-lens/internal/store"
	"github.com/spf13/cobra"
)

var (
	toolsSince   string
	toolsProject string
	toolsLimit   int
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Show most frequently used tools",
	Long: `List tools ordered by how often they were invoked within the time
window. Counts cover tool_use events only.`,
	Example: `  sl tools
  sl tools --since 7d
  sl tools --project myrepo --limit 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		since, err := sinceTime(toolsSince)
		if err != nil {
			return err
		}

		b, err := openBackend()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer b.Close()

		counts, err := b.Tools(context.Background(), store.CountOpts{
			Since:   since,
			Project: toolsProject,
			Limit:   toolsLimit,
		})
		if err != nil {
			return fmt.Errorf("tool counts: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(counts)
		}

		if len(counts) == 0 {
			fmt.Println("No tool usage found.")
			return nil
		}

		t := NewTable(os.Stdout, "TOOL", "COUNT")
		for _, c := range counts {
			t.Row(c.Name, humanize.Comma(int64(c.Count)))
		}
		return t.Flush()
	},
}

func init() {
	toolsCmd.Flags().StringVar(&toolsSince, "since", "", "time window (e.g., 24h, 7d)")
	toolsCmd.Flags().StringVar(&toolsProject, "project", "", "filter by project path substring")
	toolsCmd.Flags().IntVar(&toolsLimit, "limit", 20, "maximum number of results")
	rootCmd.AddCommand(toolsCmd)
}
