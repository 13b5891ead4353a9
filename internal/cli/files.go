package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/scbrown/session-lens/internal/store"
	"github.com/spf13/cobra"
)

var (
	filesSince   string
	filesProject string
	filesLimit   int
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Show per-file activity breakdown",
	Long: `List files ordered by how often they were touched, broken down by
reads, edits, and writes.`,
	Example: `  sl files
  sl files --since 7d --limit 10
  sl files --project myrepo`,
	RunE: func(cmd *cobra.Command, args []string) error {
		since, err := sinceTime(filesSince)
		if err != nil {
			return err
		}

		b, err := openBackend()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer b.Close()

		files, err := b.Files(context.Background(), store.CountOpts{
			Since:   since,
			Project: filesProject,
			Limit:   filesLimit,
		})
		if err != nil {
			return fmt.Errorf("file activity: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(files)
		}

		if len(files) == 0 {
			fmt.Println("No file activity found.")
			return nil
		}

		t := NewTable(os.Stdout, "FILE", "READS", "EDITS", "WRITES", "TOTAL")
		for _, f := range files {
			t.Row(
				truncate(f.FilePath, 60),
				fmt.Sprintf("%d", f.Reads),
				fmt.Sprintf("%d", f.Edits),
				fmt.Sprintf("%d", f.Writes),
				fmt.Sprintf("%d", f.Total),
			)
		}
		return t.Flush()
	},
}

func init() {
	filesCmd.Flags().StringVar(&filesSince, "since", "", "time window (e.g., 24h, 7d)")
	filesCmd.Flags().StringVar(&filesProject, "project", "", "filter by project path substring")
	filesCmd.Flags().IntVar(&filesLimit, "limit", 20, "maximum number of results")
	rootCmd.AddCommand(filesCmd)
}
