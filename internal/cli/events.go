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
	eventsSince      string
	eventsTool       string
	eventsProject    string
	eventsSession    string
	eventsType       string
	eventsErrorsOnly bool
	eventsMinSize    int
	eventsLimit      int
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List raw events from the timeline",
	Long: `List normalized events, newest first. Filters combine: --tool,
--project, --session, --type, and --errors narrow the result together.

Use --type compaction to find context compactions, or --min-size to
find oversized tool results that crowd out context.`,
	Example: `  sl events --since 24h
  sl events --tool Bash --errors
  sl events --session 3f2b1c4d --type tool_result
  sl events --type compaction --since 7d
  sl events --min-size 100000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		since, err := sinceTime(eventsSince)
		if err != nil {
			return err
		}

		b, err := openBackend()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer b.Close()

		events, err := b.Events(context.Background(), store.EventOpts{
			Start:         since,
			Tool:          eventsTool,
			Project:       eventsProject,
			SessionID:     eventsSession,
			EntryType:     eventsType,
			ErrorsOnly:    eventsErrorsOnly,
			MinResultSize: int64(eventsMinSize),
			Limit:         eventsLimit,
		})
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(events)
		}

		if len(events) == 0 {
			fmt.Println("No events found.")
			return nil
		}

		t := NewTable(os.Stdout, "TIMESTAMP", "SESSION", "TYPE", "TOOL", "DETAIL")
		for _, e := range events {
			detail := e.Command
			if detail == "" {
				detail = e.FilePath
			}
			if e.IsError {
				detail = "! " + detail
			}
			t.Row(
				e.Timestamp.Format(time.DateTime),
				truncate(e.SessionID, 12),
				e.EntryType,
				e.ToolName,
				truncate(detail, 50),
			)
		}
		return t.Flush()
	},
}

func init() {
	eventsCmd.Flags().StringVar(&eventsSince, "since", "", "time window (e.g., 24h, 7d)")
	eventsCmd.Flags().StringVar(&eventsTool, "tool", "", "filter by tool name")
	eventsCmd.Flags().StringVar(&eventsProject, "project", "", "filter by project path substring")
	eventsCmd.Flags().StringVar(&eventsSession, "session", "", "filter by session id")
	eventsCmd.Flags().StringVar(&eventsType, "type", "", "filter by entry type (user, assistant, tool_use, tool_result, compaction)")
	eventsCmd.Flags().BoolVar(&eventsErrorsOnly, "errors", false, "only events flagged as errors")
	eventsCmd.Flags().IntVar(&eventsMinSize, "min-size", 0, "only tool results at least this many bytes")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 50, "maximum number of results")
	rootCmd.AddCommand(eventsCmd)
}
