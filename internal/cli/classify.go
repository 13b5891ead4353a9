package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	classifySince   string
	classifyProject string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify sessions by activity profile",
	Long: `Label each session by what its activity mix suggests it was for:

  debugging    high error rate with ongoing edits
  development  edit-heavy
  research     read/search-heavy with few edits
  maintenance  shell-heavy with few edits
  mixed        none of the above`,
	Example: `  sl classify
  sl classify --since 7d
  sl classify --project myrepo --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		since, err := sinceTime(classifySince)
		if err != nil {
			return err
		}

		b, err := openBackend()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer b.Close()

		classes, err := b.Classify(context.Background(), since, classifyProject)
		if err != nil {
			return fmt.Errorf("classify sessions: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(classes)
		}

		if len(classes) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		t := NewTable(os.Stdout, "SESSION", "CLASS", "CALLS", "ERRORS", "PROJECT")
		for _, c := range classes {
			t.Row(
				truncate(c.SessionID, 12),
				c.Classification,
				fmt.Sprintf("%d", c.ToolCalls),
				fmt.Sprintf("%d", c.Errors),
				truncate(c.ProjectPath, 40),
			)
		}
		return t.Flush()
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifySince, "since", "", "time window (e.g., 24h, 7d)")
	classifyCmd.Flags().StringVar(&classifyProject, "project", "", "filter by project path substring")
	rootCmd.AddCommand(classifyCmd)
}
