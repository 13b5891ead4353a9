package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scbrown/session-lens/internal/ingest"
	"github.com/scbrown/session-lens/internal/server"
	"github.com/spf13/cobra"
)

var (
	uploadDays    int
	uploadProject string
	uploadBatch   int
)

var uploadCmd = &cobra.Command{
	Use:   "upload [file.jsonl ...]",
	Short: "Push local transcripts to a remote server",
	Long: `Send transcript records to a remote sl serve instance instead of a
local database. With no arguments, scans the configured log roots the
way sl ingest does; with file arguments, uploads exactly those files.

The server deduplicates records by uuid, so re-uploading is safe.
Requires store_mode=remote (sl config store_mode remote).`,
	Example: `  sl upload
  sl upload --days 7
  sl upload ~/.claude/projects/-home-me-proj/abc123.jsonl`,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer b.Close()

		client, ok := b.(*server.Client)
		if !ok {
			return fmt.Errorf("upload requires store_mode=remote; use: sl config store_mode remote")
		}

		files, skipped := uploadSources(args)
		totals := ingest.Result{}
		totals.SkippedSources = skipped
		for _, f := range files {
			res, err := uploadFile(context.Background(), client, f)
			if err != nil {
				totals.SkippedSources = append(totals.SkippedSources,
					ingest.SkippedSource{Path: f.Path, Reason: err.Error()})
				totals.FilesSkipped++
				continue
			}
			totals.FilesProcessed++
			totals.EventsAdded += res.EventsAdded
			totals.EventsSkipped += res.EventsSkipped
			totals.ParseErrors += res.ParseErrors
			totals.SessionsUpdated += res.SessionsUpdated
		}
		totals.FilesFound = len(files)

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(totals)
		}

		fmt.Printf("Files uploaded:   %d\n", totals.FilesProcessed)
		fmt.Printf("Events added:     %d\n", totals.EventsAdded)
		fmt.Printf("Events skipped:   %d\n", totals.EventsSkipped)
		fmt.Printf("Sessions updated: %d\n", totals.SessionsUpdated)
		if totals.ParseErrors > 0 {
			fmt.Printf("Parse errors:     %d\n", totals.ParseErrors)
		}
		for _, s := range totals.SkippedSources {
			fmt.Fprintf(os.Stderr, "skipped %s: %s\n", s.Path, s.Reason)
		}
		return nil
	},
}

func init() {
	uploadCmd.Flags().IntVar(&uploadDays, "days", 0, "only scan files modified within this many days")
	uploadCmd.Flags().StringVar(&uploadProject, "project", "", "project path recorded with uploaded records")
	uploadCmd.Flags().IntVar(&uploadBatch, "batch", 500, "records per upload request")
	rootCmd.AddCommand(uploadCmd)
}

// uploadSources resolves the transcripts to push: explicit file
// arguments, or a root scan identical to local ingestion.
func uploadSources(args []string) ([]ingest.SourceFile, []ingest.SkippedSource) {
	if len(args) == 0 {
		roots := logRoots
		if len(roots) == 0 {
			roots = ingest.DefaultRoots()
		}
		days := uploadDays
		if days == 0 {
			days = ingestWindowDays()
		}
		return ingest.ScanRoots(roots, days, uploadProject)
	}

	var files []ingest.SourceFile
	for _, path := range args {
		project := uploadProject
		if project == "" {
			project = ingest.DecodeProjectDir(filepath.Base(filepath.Dir(path)))
		}
		files = append(files, ingest.SourceFile{Path: path, ProjectPath: project})
	}
	return files, nil
}

// uploadFile streams one transcript to the server in batches.
func uploadFile(ctx context.Context, client *server.Client, f ingest.SourceFile) (ingest.Result, error) {
	var total ingest.Result

	file, err := os.Open(f.Path)
	if err != nil {
		return total, err
	}
	defer file.Close()

	flush := func(batch []json.RawMessage) error {
		if len(batch) == 0 {
			return nil
		}
		res, err := client.UploadEntries(ctx, batch, f.ProjectPath)
		if err != nil {
			return err
		}
		total.EventsAdded += res.EventsAdded
		total.EventsSkipped += res.EventsSkipped
		total.ParseErrors += res.ParseErrors
		total.SessionsUpdated += res.SessionsUpdated
		return nil
	}

	batchSize := uploadBatch
	if batchSize <= 0 {
		batchSize = 500
	}
	var batch []json.RawMessage
	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		batch = append(batch, json.RawMessage(append([]byte(nil), line...)))
		if len(batch) >= batchSize {
			if err := flush(batch); err != nil {
				return total, err
			}
			batch = batch[:0]
		}
	}
	if err := sc.Err(); err != nil {
		return total, err
	}
	return total, flush(batch)
}
