package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ingestion freshness and database summary",
	Example: `  sl status
  sl status --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer b.Close()

		status, err := b.Status(context.Background())
		if err != nil {
			return fmt.Errorf("get status: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(status)
		}

		if status.LastIngest == nil {
			fmt.Println("Last ingest:     never")
		} else {
			fmt.Printf("Last ingest:     %s (%s)\n",
				status.LastIngest.Format(time.DateTime),
				humanize.Time(*status.LastIngest))
		}
		fmt.Printf("Total events:    %s\n", humanize.Comma(int64(status.Stats.TotalEvents)))
		fmt.Printf("Sessions:        %s\n", humanize.Comma(int64(status.Stats.TotalSessions)))
		fmt.Printf("Source files:    %s\n", humanize.Comma(int64(status.Stats.SourceFiles)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
