package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/scbrown/session-lens/internal/store"
	"github.com/spf13/cobra"
)

var (
	sessionsSince   string
	sessionsProject string
	sessionsLimit   int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List sessions with activity totals",
	Long: `List session rollups ordered by most recent activity. Each row
shows the session's time span, event count, error count, and the git
branch most often active during it.`,
	Example: `  sl sessions
  sl sessions --since 7d
  sl sessions --project myrepo --limit 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		since, err := sinceTime(sessionsSince)
		if err != nil {
			return err
		}

		b, err := openBackend()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer b.Close()

		sessions, err := b.Sessions(context.Background(), store.SessionOpts{
			Since:   since,
			Project: sessionsProject,
			Limit:   sessionsLimit,
		})
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(sessions)
		}

		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		t := NewTable(os.Stdout, "SESSION", "LAST SEEN", "ENTRIES", "TOOL CALLS", "BRANCH", "PROJECT")
		for _, s := range sessions {
			t.Row(
				truncate(s.ID, 12),
				s.LastSeen.Format(time.DateTime),
				fmt.Sprintf("%d", s.EntryCount),
				fmt.Sprintf("%d", s.ToolUseCount),
				s.PrimaryBranch,
				truncate(s.ProjectPath, 40),
			)
		}
		return t.Flush()
	},
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsSince, "since", "", "time window (e.g., 24h, 7d)")
	sessionsCmd.Flags().StringVar(&sessionsProject, "project", "", "filter by project path substring")
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "maximum number of results")
	rootCmd.AddCommand(sessionsCmd)
}
