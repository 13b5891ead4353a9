// Package ingest discovers session transcripts on disk, parses the
// records added since the previous run, and persists the resulting
// events. Ingestion is incremental: per-file byte offsets are tracked
// so unchanged files are skipped and growing files are read from where
// the last run stopped.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/scbrown/session-lens/internal/model"
	"github.com/scbrown/session-lens/internal/parse"
	"github.com/scbrown/session-lens/internal/store"
)

// maxLineBytes bounds a single transcript record. Tool results with
// large pasted content can run to several megabytes.
const maxLineBytes = 16 * 1024 * 1024

// Options controls a single ingestion run.
type Options struct {
	Roots   []string // Log roots to scan; empty means DefaultRoots.
	Days    int      // Only consider files modified in the last N days (0 = all).
	Project string   // Substring filter on decoded project paths.
	Force   bool     // Re-read every file from the beginning.
}

// Result summarizes one ingestion run.
type Result struct {
	RunID           string          `json:"run_id"`
	FilesFound      int             `json:"files_found"`
	FilesProcessed  int             `json:"files_processed"`
	FilesSkipped    int             `json:"files_skipped"`
	EventsAdded     int             `json:"events_added"`
	EventsSkipped   int             `json:"events_skipped"`
	ParseErrors     int             `json:"parse_errors"`
	SessionsUpdated int             `json:"sessions_updated"`
	SkippedSources  []SkippedSource `json:"skipped_sources,omitempty"`
}

// sourceError marks a file-level read failure. The run skips the
// source and continues; store failures stay fatal.
type sourceError struct{ err error }

func (e *sourceError) Error() string { return e.err.Error() }
func (e *sourceError) Unwrap() error { return e.err }

// Coordinator runs ingestion against a store.
type Coordinator struct {
	store store.Store
}

// New returns a Coordinator persisting into s.
func New(s store.Store) *Coordinator {
	return &Coordinator{store: s}
}

// Run scans the configured roots and ingests every new or changed
// transcript. Re-running over unchanged files is a no-op, and
// re-reading already-ingested records is harmless: events deduplicate
// on UUID.
func (c *Coordinator) Run(ctx context.Context, opts Options) (Result, error) {
	roots := opts.Roots
	if len(roots) == 0 {
		roots = DefaultRoots()
	}

	res := Result{RunID: uuid.New().String()}

	files, skipped := ScanRoots(roots, opts.Days, opts.Project)
	res.FilesFound = len(files)
	res.SkippedSources = skipped

	branches := newBranchTally()
	touched := map[string]bool{}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		processed, err := c.ingestFile(ctx, f, opts.Force, &res, branches, touched)
		if err != nil {
			var se *sourceError
			if errors.As(err, &se) {
				res.SkippedSources = append(res.SkippedSources, SkippedSource{Path: f.Path, Reason: se.Error()})
				res.FilesSkipped++
				continue
			}
			return res, fmt.Errorf("ingest %s: %w", f.Path, err)
		}
		if processed {
			res.FilesProcessed++
		} else {
			res.FilesSkipped++
		}
	}

	if err := c.finishRun(ctx, &res, branches, touched); err != nil {
		return res, err
	}
	return res, nil
}

// Entries ingests pre-read raw transcript records, the path remote
// clients use to upload. The records go through the same parser and
// dedup as local files.
func (c *Coordinator) Entries(ctx context.Context, entries []json.RawMessage, projectPath string) (Result, error) {
	res := Result{RunID: uuid.New().String()}
	branches := newBranchTally()
	touched := map[string]bool{}

	var events []model.Event
	for _, raw := range entries {
		evs, err := parse.Entry(raw, projectPath)
		if err != nil {
			res.ParseErrors++
			continue
		}
		events = append(events, evs...)
		noteBranches(raw, evs, branches, touched)
	}

	added, err := c.store.AddEvents(ctx, events)
	if err != nil {
		return res, err
	}
	res.EventsAdded = added
	res.EventsSkipped = len(events) - added

	if err := c.finishRun(ctx, &res, branches, touched); err != nil {
		return res, err
	}
	return res, nil
}

// EnsureFresh runs ingestion only when the last run is older than
// maxAge. It returns nil when the data was already fresh.
func (c *Coordinator) EnsureFresh(ctx context.Context, maxAge time.Duration, opts Options) (*Result, error) {
	last, err := c.store.LastIngestTime(ctx)
	if err != nil {
		return nil, err
	}
	if !last.IsZero() && time.Since(last) < maxAge {
		return nil, nil
	}
	res, err := c.Run(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ingestFile reads one transcript from its stored offset and commits
// the parsed events together with the updated offset. Returns false
// when the file was skipped as unchanged.
func (c *Coordinator) ingestFile(ctx context.Context, f SourceFile, force bool, res *Result, branches *branchTally, touched map[string]bool) (bool, error) {
	state, err := c.store.GetIngestionState(ctx, f.Path)
	if err != nil {
		return false, err
	}

	var offset int64
	var processed int64
	if state != nil && !force {
		if state.Offset == f.Size && state.FileSize == f.Size && state.LastModified.Equal(f.ModTime) {
			return false, nil
		}
		offset = state.Offset
		processed = state.EntriesProcessed
		// A shrunk file was rewritten; start over.
		if f.Size < state.Offset {
			offset = 0
			processed = 0
		}
	}

	file, err := os.Open(f.Path)
	if err != nil {
		return false, &sourceError{err}
	}
	defer file.Close()

	if offset > 0 {
		if _, err := file.Seek(offset, io.SeekStart); err != nil {
			return false, &sourceError{err}
		}
	}

	var events []model.Event
	r := bufio.NewReaderSize(file, 256*1024)
	for {
		line, err := readLine(r)
		if len(line) > 0 {
			offset += int64(len(line))
			trimmed := bytes.TrimSpace(line)
			if len(trimmed) > 0 {
				processed++
				evs, perr := parse.Entry(trimmed, f.ProjectPath)
				if perr != nil {
					res.ParseErrors++
				} else {
					events = append(events, evs...)
					noteBranches(trimmed, evs, branches, touched)
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return false, &sourceError{err}
		}
	}

	newState := model.IngestionState{
		FilePath:         f.Path,
		FileSize:         f.Size,
		Offset:           offset,
		LastModified:     f.ModTime,
		EntriesProcessed: processed,
		LastProcessed:    time.Now().UTC(),
	}
	added, err := c.store.CommitFileEvents(ctx, events, newState)
	if err != nil {
		return false, err
	}
	res.EventsAdded += added
	res.EventsSkipped += len(events) - added
	return true, nil
}

// finishRun recomputes session aggregates for every touched session
// and records each session's most common git branch.
func (c *Coordinator) finishRun(ctx context.Context, res *Result, branches *branchTally, touched map[string]bool) error {
	ids := make([]string, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	updated, err := c.store.RecomputeSessions(ctx, ids)
	if err != nil {
		return fmt.Errorf("recompute sessions: %w", err)
	}
	res.SessionsUpdated = updated

	for sessionID, branch := range branches.primary() {
		if err := c.store.SetSessionBranch(ctx, sessionID, branch); err != nil {
			return fmt.Errorf("set branch for %s: %w", sessionID, err)
		}
	}
	return nil
}

// readLine reads one line including its terminator so byte offsets
// stay exact even for lines larger than the reader's buffer.
func readLine(r *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		line = append(line, chunk...)
		if err != bufio.ErrBufferFull {
			return line, err
		}
		if len(line) > maxLineBytes {
			return line, fmt.Errorf("record exceeds %d bytes", maxLineBytes)
		}
	}
}

// branchTally tracks how often each git branch appears per session.
type branchTally struct {
	counts map[string]map[string]int
	order  map[string][]string
}

func newBranchTally() *branchTally {
	return &branchTally{
		counts: map[string]map[string]int{},
		order:  map[string][]string{},
	}
}

func (b *branchTally) add(sessionID, branch string) {
	if sessionID == "" || branch == "" {
		return
	}
	m := b.counts[sessionID]
	if m == nil {
		m = map[string]int{}
		b.counts[sessionID] = m
	}
	if _, seen := m[branch]; !seen {
		b.order[sessionID] = append(b.order[sessionID], branch)
	}
	m[branch]++
}

// primary returns the most frequent branch per session, first seen
// winning ties.
func (b *branchTally) primary() map[string]string {
	out := make(map[string]string, len(b.counts))
	for sessionID, m := range b.counts {
		best, bestCount := "", 0
		for _, branch := range b.order[sessionID] {
			if m[branch] > bestCount {
				best, bestCount = branch, m[branch]
			}
		}
		if best != "" {
			out[sessionID] = best
		}
	}
	return out
}

func noteBranches(raw []byte, events []model.Event, branches *branchTally, touched map[string]bool) {
	branch := parse.Branch(raw)
	for _, ev := range events {
		if ev.SessionID == "" {
			continue
		}
		touched[ev.SessionID] = true
		branches.add(ev.SessionID, branch)
	}
}
