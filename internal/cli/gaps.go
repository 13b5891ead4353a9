package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/scbrown/session-lens/internal/mine"
	"github.com/spf13/cobra"
)

var (
	gapsSince     string
	gapsProject   string
	gapsThreshold int
	gapsSettings  string
	gapsLimit     int
)

var gapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "Find frequently used commands missing from the allow-list",
	Long: `Compare frequently run shell commands against the permission
allow-list in settings.json. Commands at or above the threshold that are
not covered by an existing rule are reported, each with the rule that
would cover it. When a near-identical allow-list entry exists (likely a
typo), it is shown alongside.`,
	Example: `  sl gaps
  sl gaps --threshold 10
  sl gaps --settings /path/to/settings.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		since, err := sinceTime(gapsSince)
		if err != nil {
			return err
		}

		b, err := openBackend()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer b.Close()

		gaps, err := b.Gaps(context.Background(), mine.GapOptions{
			Since:        since,
			Project:      gapsProject,
			Threshold:    gapsThreshold,
			SettingsPath: gapsSettings,
			Limit:        gapsLimit,
		})
		if err != nil {
			return fmt.Errorf("find gaps: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(gaps)
		}

		if len(gaps) == 0 {
			fmt.Println("No permission gaps found.")
			return nil
		}

		t := NewTable(os.Stdout, "COMMAND", "COUNT", "SUGGESTION", "CLOSEST ALLOWED")
		for _, g := range gaps {
			t.Row(
				truncate(g.Command, 40),
				fmt.Sprintf("%d", g.Count),
				g.Suggestion,
				g.ClosestAllowed,
			)
		}
		return t.Flush()
	},
}

func init() {
	gapsCmd.Flags().StringVar(&gapsSince, "since", "", "time window (e.g., 24h, 7d)")
	gapsCmd.Flags().StringVar(&gapsProject, "project", "", "filter by project path substring")
	gapsCmd.Flags().IntVar(&gapsThreshold, "threshold", 0, "minimum occurrences to report (default 5)")
	gapsCmd.Flags().StringVar(&gapsSettings, "settings", "", "path to settings.json (default ~/.claude/settings.json)")
	gapsCmd.Flags().IntVar(&gapsLimit, "limit", 20, "maximum number of results")
	rootCmd.AddCommand(gapsCmd)
}
