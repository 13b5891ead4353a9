package server

import (
	"context"
	"time"

	"github.com/scbrown/session-lens/internal/model"
	"github.com/scbrown/session-lens/internal/store"
)

// memStore is an in-memory store.Store for handler tests. It dedups
// events on UUID, records the last option structs it saw, and serves
// canned query results.
type memStore struct {
	seen           map[string]bool
	events         []model.Event
	toolCounts     []store.NameCount
	commandCounts  []store.NameCount
	stream         []store.ToolCall
	sessions       []model.Session
	patterns       []model.Pattern
	sessionCommits map[string][]model.GitCommit
	lastIngest     time.Time

	lastCountOpts store.CountOpts
	lastEventOpts store.EventOpts
}

func newMemStore() *memStore {
	return &memStore{
		seen:           map[string]bool{},
		sessionCommits: map[string][]model.GitCommit{},
	}
}

func (m *memStore) AddEvents(_ context.Context, events []model.Event) (int, error) {
	added := 0
	for _, ev := range events {
		if m.seen[ev.UUID] {
			continue
		}
		m.seen[ev.UUID] = true
		m.events = append(m.events, ev)
		added++
	}
	return added, nil
}

func (m *memStore) CommitFileEvents(ctx context.Context, events []model.Event, _ model.IngestionState) (int, error) {
	return m.AddEvents(ctx, events)
}

func (m *memStore) EventsInRange(_ context.Context, opts store.EventOpts) ([]model.Event, error) {
	m.lastEventOpts = opts
	return nil, nil
}

func (m *memStore) ToolCounts(_ context.Context, opts store.CountOpts) ([]store.NameCount, error) {
	m.lastCountOpts = opts
	return m.toolCounts, nil
}

func (m *memStore) CommandCounts(_ context.Context, _ store.CommandOpts) ([]store.NameCount, error) {
	return m.commandCounts, nil
}

func (m *memStore) ToolStream(_ context.Context, _ time.Time) ([]store.ToolCall, error) {
	return m.stream, nil
}

func (m *memStore) FileActivity(_ context.Context, opts store.CountOpts) ([]store.FileCount, error) {
	m.lastCountOpts = opts
	return nil, nil
}

func (m *memStore) TokenUsage(context.Context, store.TokenOpts) ([]store.TokenBucket, error) {
	return nil, nil
}

func (m *memStore) LatestEventTimes(_ context.Context, sessionIDs []string) (map[string]time.Time, error) {
	want := map[string]bool{}
	for _, id := range sessionIDs {
		want[id] = true
	}
	latest := map[string]time.Time{}
	for _, ev := range m.events {
		if len(want) > 0 && !want[ev.SessionID] {
			continue
		}
		if ev.Timestamp.After(latest[ev.SessionID]) {
			latest[ev.SessionID] = ev.Timestamp
		}
	}
	return latest, nil
}

func (m *memStore) WindowMetrics(context.Context, time.Time, time.Time) (store.Metrics, error) {
	return store.Metrics{}, nil
}


func (m *memStore) RecomputeSessions(_ context.Context, ids []string) (int, error) {
	return len(ids), nil
}

func (m *memStore) ListSessions(context.Context, store.SessionOpts) ([]model.Session, error) {
	return m.sessions, nil
}

func (m *memStore) SetSessionBranch(context.Context, string, string) error { return nil }

func (m *memStore) SessionSignals(context.Context, time.Time, string) ([]store.SessionSignal, error) {
	return nil, nil
}

func (m *memStore) GetIngestionState(context.Context, string) (*model.IngestionState, error) {
	return nil, nil
}

func (m *memStore) LastIngestTime(context.Context) (time.Time, error) {
	return m.lastIngest, nil
}

func (m *memStore) ClearPatterns(context.Context) error {
	m.patterns = nil
	return nil
}

func (m *memStore) UpsertPattern(_ context.Context, p model.Pattern) error {
	m.patterns = append(m.patterns, p)
	return nil
}

func (m *memStore) GetPatterns(_ context.Context, patternType string) ([]model.Pattern, error) {
	var out []model.Pattern
	for _, p := range m.patterns {
		if p.Type == patternType {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) AddCommits(_ context.Context, commits []model.GitCommit) (int, error) {
	return len(commits), nil
}

func (m *memStore) UncorrelatedCommits(context.Context, time.Time) ([]model.GitCommit, error) {
	return nil, nil
}

func (m *memStore) SetCommitSession(context.Context, string, string) error { return nil }

func (m *memStore) SessionCommits(_ context.Context, sessionID string) ([]model.GitCommit, error) {
	return m.sessionCommits[sessionID], nil
}

func (m *memStore) Stats(context.Context) (store.Stats, error) {
	return store.Stats{TotalEvents: len(m.events)}, nil
}

func (m *memStore) Close() error { return nil }
