package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show summary statistics about the database",
	Long: `Display a summary of ingested data: total events, sessions, commits,
the event date range, and total token spend.`,
	Example: `  sl stats
  sl stats --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer b.Close()

		st, err := b.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}

		fmt.Printf("Total events:    %s\n", humanize.Comma(int64(st.TotalEvents)))
		fmt.Printf("Sessions:        %s\n", humanize.Comma(int64(st.TotalSessions)))
		fmt.Printf("Commits:         %s\n", humanize.Comma(int64(st.TotalCommits)))
		fmt.Printf("Cached patterns: %s\n", humanize.Comma(int64(st.TotalPatterns)))
		fmt.Printf("Source files:    %s\n", humanize.Comma(int64(st.SourceFiles)))

		if st.TotalEvents == 0 {
			return nil
		}

		fmt.Println()
		fmt.Printf("Date range:      %s to %s\n",
			st.Earliest.Format("2006-01-02"), st.Latest.Format("2006-01-02"))

		fmt.Println()
		fmt.Printf("Last 24h:        %s\n", humanize.Comma(int64(st.Last24h)))
		fmt.Printf("Last 7d:         %s\n", humanize.Comma(int64(st.Last7d)))
		fmt.Printf("Last 30d:        %s\n", humanize.Comma(int64(st.Last30d)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
