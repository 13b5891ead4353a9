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
	tokensSince   string
	tokensProject string
	tokensBy      string
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Show token usage grouped by day, session, or model",
	Example: `  sl tokens
  sl tokens --by model
  sl tokens --by session --since 7d`,
	RunE: func(cmd *cobra.Command, args []string) error {
		since, err := sinceTime(tokensSince)
		if err != nil {
			return err
		}

		b, err := openBackend()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer b.Close()

		buckets, err := b.Tokens(context.Background(), store.TokenOpts{
			Since:   since,
			Project: tokensProject,
			By:      tokensBy,
		})
		if err != nil {
			return fmt.Errorf("token usage: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(buckets)
		}

		if len(buckets) == 0 {
			fmt.Println("No token usage found.")
			return nil
		}

		t := NewTable(os.Stdout, "KEY", "INPUT", "OUTPUT", "CACHE READ", "EVENTS")
		for _, bk := range buckets {
			t.Row(
				truncate(bk.Key, 30),
				humanize.Comma(bk.InputTokens),
				humanize.Comma(bk.OutputTokens),
				humanize.Comma(bk.CacheRead),
				fmt.Sprintf("%d", bk.EventCount),
			)
		}
		return t.Flush()
	},
}

func init() {
	tokensCmd.Flags().StringVar(&tokensSince, "since", "", "time window (e.g., 24h, 7d)")
	tokensCmd.Flags().StringVar(&tokensProject, "project", "", "filter by project path substring")
	tokensCmd.Flags().StringVar(&tokensBy, "by", "day", "grouping: day, session, or model")
	rootCmd.AddCommand(tokensCmd)
}
