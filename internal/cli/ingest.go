package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/scbrown/session-lens/internal/ingest"
	"github.com/spf13/cobra"
)

var (
	ingestDays    int
	ingestProject string
	ingestForce   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest session transcripts into the database",
	Long: `Scan transcript roots (default ~/.claude/projects) for JSONL session
files modified within the lookback window and load new records into the
database. Ingestion is incremental: each file's byte offset is tracked,
so only appended records are read on subsequent runs. Records are
deduplicated by uuid, making re-ingestion safe.

A truncated or rewritten file is detected by its shrunken size and
re-read from the start.`,
	Example: `  sl ingest
  sl ingest --days 7
  sl ingest --project myrepo
  sl ingest --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer b.Close()

		roots := logRoots
		if len(roots) == 0 {
			roots = ingest.DefaultRoots()
		}
		days := ingestDays
		if days == 0 {
			days = ingestWindowDays()
		}

		res, err := b.Ingest(context.Background(), ingest.Options{
			Roots:   roots,
			Days:    days,
			Project: ingestProject,
			Force:   ingestForce,
		})
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		fmt.Printf("Files found:      %d\n", res.FilesFound)
		fmt.Printf("Files processed:  %d\n", res.FilesProcessed)
		fmt.Printf("Files skipped:    %d\n", res.FilesSkipped)
		fmt.Printf("Events added:     %d\n", res.EventsAdded)
		fmt.Printf("Events skipped:   %d\n", res.EventsSkipped)
		fmt.Printf("Sessions updated: %d\n", res.SessionsUpdated)
		if res.ParseErrors > 0 {
			fmt.Printf("Parse errors:     %d\n", res.ParseErrors)
		}
		for _, s := range res.SkippedSources {
			fmt.Fprintf(os.Stderr, "skipped %s: %s\n", s.Path, s.Reason)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().IntVar(&ingestDays, "days", 0, "only scan files modified within this many days")
	ingestCmd.Flags().StringVar(&ingestProject, "project", "", "only ingest projects whose path contains this substring")
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "re-read files from the start, ignoring saved offsets")
	rootCmd.AddCommand(ingestCmd)
}
