package mine

import (
	"context"
	"sort"
	"time"

	"github.com/scbrown/session-lens/internal/model"
	"github.com/scbrown/session-lens/internal/store"
)

// FailureStat aggregates errors attributed to one tool, with the
// Bash command head broken out when the tool is Bash.
type FailureStat struct {
	Tool    string `json:"tool"`
	Command string `json:"command,omitempty"`
	Errors  int    `json:"errors"`
	Rework  int    `json:"rework"`
}

// FailureOptions controls failure analysis.
type FailureOptions struct {
	Since        time.Time
	Project      string
	ReworkWindow time.Duration // Edits this soon after an error count as rework; 0 means 10m.
	Limit        int
}

// Failures attributes error results to the tool call that preceded
// them in the same session and reports error counts per tool. An edit
// to the same file shortly after a failed edit, or a rerun of the
// same command shortly after a failed one, is counted as rework only
// once the retry's own result comes back without an error.
func (m *Miner) Failures(ctx context.Context, opts FailureOptions) ([]FailureStat, error) {
	window := opts.ReworkWindow
	if window <= 0 {
		window = 10 * time.Minute
	}

	events, err := m.store.EventsInRange(ctx, store.EventOpts{
		Start:     opts.Since,
		Project:   opts.Project,
		Ascending: true,
	})
	if err != nil {
		return nil, err
	}

	type failureKey struct {
		tool    string
		command string
	}
	stats := map[failureKey]*FailureStat{}
	var order []failureKey

	// Per-session walk: the last tool_use before an error result is
	// the call that failed.
	type pendingRework struct {
		key      failureKey
		filePath string
		command  string
		deadline time.Time
	}
	lastUse := map[string]model.Event{}
	pending := map[string][]pendingRework{}
	// Rework claims held until the retry's result arrives. A failed
	// retry, or a new call before any result, drops the claim.
	awaiting := map[string][]failureKey{}

	record := func(key failureKey) *FailureStat {
		s, ok := stats[key]
		if !ok {
			s = &FailureStat{Tool: key.tool, Command: key.command}
			stats[key] = s
			order = append(order, key)
		}
		return s
	}

	for _, ev := range events {
		switch ev.EntryType {
		case model.EntryToolUse:
			sid := ev.SessionID
			delete(awaiting, sid)

			// A repeat of a recently failed command or file edit is a
			// rework candidate, pending a clean result.
			kept := pending[sid][:0]
			for _, p := range pending[sid] {
				if ev.Timestamp.After(p.deadline) {
					continue
				}
				if (p.filePath != "" && ev.FilePath == p.filePath) ||
					(p.command != "" && ev.Command == p.command) {
					awaiting[sid] = append(awaiting[sid], p.key)
					continue
				}
				kept = append(kept, p)
			}
			pending[sid] = kept
			lastUse[sid] = ev

		case model.EntryToolResult:
			if !ev.IsError {
				for _, key := range awaiting[ev.SessionID] {
					record(key).Rework++
				}
				delete(awaiting, ev.SessionID)
				continue
			}
			delete(awaiting, ev.SessionID)
			use, ok := lastUse[ev.SessionID]
			if !ok {
				continue
			}
			key := failureKey{tool: use.ToolName}
			if use.ToolName == "Bash" {
				key.command = use.Command
			}
			record(key).Errors++
			pending[ev.SessionID] = append(pending[ev.SessionID], pendingRework{
				key:      key,
				filePath: use.FilePath,
				command:  use.Command,
				deadline: ev.Timestamp.Add(window),
			})
		}
	}

	results := make([]FailureStat, 0, len(order))
	for _, key := range order {
		results = append(results, *stats[key])
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Errors > results[j].Errors
	})
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}
