package mine

import (
	"context"
	"time"

	"github.com/scbrown/session-lens/internal/model"
	"github.com/scbrown/session-lens/internal/store"
)

var zero time.Time

// fakeStore feeds canned query results to the miner and records
// pattern writes.
type fakeStore struct {
	toolCounts    []store.NameCount
	commandCounts []store.NameCount
	stream        []store.ToolCall
	signals       []store.SessionSignal
	events        []model.Event
	sessions      []model.Session
	currentWin    store.Metrics
	previousWin   store.Metrics

	patterns      []model.Pattern
	clearedCount  int
	commandThresh int
}

func (f *fakeStore) ToolCounts(_ context.Context, opts store.CountOpts) ([]store.NameCount, error) {
	out := f.toolCounts
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeStore) CommandCounts(_ context.Context, opts store.CommandOpts) ([]store.NameCount, error) {
	f.commandThresh = opts.Threshold
	var out []store.NameCount
	for _, c := range f.commandCounts {
		if opts.Threshold > 0 && c.Count < opts.Threshold {
			continue
		}
		out = append(out, c)
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeStore) ToolStream(context.Context, time.Time) ([]store.ToolCall, error) {
	return f.stream, nil
}

func (f *fakeStore) SessionSignals(context.Context, time.Time, string) ([]store.SessionSignal, error) {
	return f.signals, nil
}

func (f *fakeStore) EventsInRange(context.Context, store.EventOpts) ([]model.Event, error) {
	return f.events, nil
}

// WindowMetrics dispatches on window age: starts more than ten days
// back get the previous window's canned metrics.
func (f *fakeStore) WindowMetrics(_ context.Context, start, _ time.Time) (store.Metrics, error) {
	if time.Since(start) > 10*24*time.Hour {
		return f.previousWin, nil
	}
	return f.currentWin, nil
}

func (f *fakeStore) ClearPatterns(context.Context) error {
	f.clearedCount++
	f.patterns = nil
	return nil
}

func (f *fakeStore) UpsertPattern(_ context.Context, p model.Pattern) error {
	f.patterns = append(f.patterns, p)
	return nil
}

func (f *fakeStore) GetPatterns(_ context.Context, patternType string) ([]model.Pattern, error) {
	var out []model.Pattern
	for _, p := range f.patterns {
		if p.Type == patternType {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) AddEvents(context.Context, []model.Event) (int, error) { return 0, nil }
func (f *fakeStore) CommitFileEvents(context.Context, []model.Event, model.IngestionState) (int, error) {
	return 0, nil
}
func (f *fakeStore) FileActivity(context.Context, store.CountOpts) ([]store.FileCount, error) {
	return nil, nil
}
func (f *fakeStore) TokenUsage(context.Context, store.TokenOpts) ([]store.TokenBucket, error) {
	return nil, nil
}
func (f *fakeStore) LatestEventTimes(context.Context, []string) (map[string]time.Time, error) {
	return nil, nil
}
func (f *fakeStore) RecomputeSessions(context.Context, []string) (int, error) { return 0, nil }
func (f *fakeStore) ListSessions(context.Context, store.SessionOpts) ([]model.Session, error) {
	return f.sessions, nil
}
func (f *fakeStore) SetSessionBranch(context.Context, string, string) error { return nil }
func (f *fakeStore) GetIngestionState(context.Context, string) (*model.IngestionState, error) {
	return nil, nil
}
func (f *fakeStore) LastIngestTime(context.Context) (time.Time, error) { return time.Time{}, nil }
func (f *fakeStore) AddCommits(context.Context, []model.GitCommit) (int, error) {
	return 0, nil
}
func (f *fakeStore) UncorrelatedCommits(context.Context, time.Time) ([]model.GitCommit, error) {
	return nil, nil
}
func (f *fakeStore) SetCommitSession(context.Context, string, string) error { return nil }
func (f *fakeStore) SessionCommits(context.Context, string) ([]model.GitCommit, error) {
	return nil, nil
}
func (f *fakeStore) Stats(context.Context) (store.Stats, error) { return store.Stats{}, nil }
func (f *fakeStore) Close() error                               { return nil }
