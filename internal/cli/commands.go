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
	commandsSince     string
	commandsProject   string
	commandsPrefix    string
	commandsThreshold int
	commandsLimit     int
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Show most frequently run shell commands",
	Long: `List shell commands ordered by how often they were run within the
time window. Commands are grouped by their head (the first token, or
pipeline head), so "git status" and "git log" both count toward "git"
when filtered with --prefix git.`,
	Example: `  sl commands
  sl commands --since 7d --limit 20
  sl commands --prefix git
  sl commands --threshold 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		since, err := sinceTime(commandsSince)
		if err != nil {
			return err
		}

		b, err := openBackend()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer b.Close()

		counts, err := b.Commands(context.Background(), store.CommandOpts{
			Since:     since,
			Project:   commandsProject,
			Prefix:    commandsPrefix,
			Threshold: commandsThreshold,
			Limit:     commandsLimit,
		})
		if err != nil {
			return fmt.Errorf("command counts: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(counts)
		}

		if len(counts) == 0 {
			fmt.Println("No commands found.")
			return nil
		}

		t := NewTable(os.Stdout, "COMMAND", "COUNT")
		for _, c := range counts {
			t.Row(truncate(c.Name, 60), humanize.Comma(int64(c.Count)))
		}
		return t.Flush()
	},
}

func init() {
	commandsCmd.Flags().StringVar(&commandsSince, "since", "", "time window (e.g., 24h, 7d)")
	commandsCmd.Flags().StringVar(&commandsProject, "project", "", "filter by project path substring")
	commandsCmd.Flags().StringVar(&commandsPrefix, "prefix", "", "only commands whose head matches this prefix")
	commandsCmd.Flags().IntVar(&commandsThreshold, "threshold", 0, "only commands used at least this many times")
	commandsCmd.Flags().IntVar(&commandsLimit, "limit", 20, "maximum number of results")
	rootCmd.AddCommand(commandsCmd)
}
