package gitlog

import (
	"context"
	"time"

	"github.com/scbrown/session-lens/internal/model"
	"github.com/scbrown/session-lens/internal/store"
)

// fakeBase supplies no-op implementations for the store.Store methods
// the tests do not exercise.
type fakeBase struct{}

func (fakeBase) AddEvents(context.Context, []model.Event) (int, error) { return 0, nil }
func (fakeBase) CommitFileEvents(context.Context, []model.Event, model.IngestionState) (int, error) {
	return 0, nil
}
func (fakeBase) EventsInRange(context.Context, store.EventOpts) ([]model.Event, error) {
	return nil, nil
}
func (fakeBase) ToolCounts(context.Context, store.CountOpts) ([]store.NameCount, error) {
	return nil, nil
}
func (fakeBase) CommandCounts(context.Context, store.CommandOpts) ([]store.NameCount, error) {
	return nil, nil
}
func (fakeBase) ToolStream(context.Context, time.Time) ([]store.ToolCall, error) { return nil, nil }
func (fakeBase) FileActivity(context.Context, store.CountOpts) ([]store.FileCount, error) {
	return nil, nil
}
func (fakeBase) TokenUsage(context.Context, store.TokenOpts) ([]store.TokenBucket, error) {
	return nil, nil
}
func (fakeBase) LatestEventTimes(context.Context, []string) (map[string]time.Time, error) {
	return nil, nil
}
func (fakeBase) WindowMetrics(context.Context, time.Time, time.Time) (store.Metrics, error) {
	return store.Metrics{}, nil
}
func (fakeBase) RecomputeSessions(context.Context, []string) (int, error) { return 0, nil }
func (fakeBase) ListSessions(context.Context, store.SessionOpts) ([]model.Session, error) {
	return nil, nil
}
func (fakeBase) SetSessionBranch(context.Context, string, string) error { return nil }
func (fakeBase) SessionSignals(context.Context, time.Time, string) ([]store.SessionSignal, error) {
	return nil, nil
}
func (fakeBase) GetIngestionState(context.Context, string) (*model.IngestionState, error) {
	return nil, nil
}
func (fakeBase) LastIngestTime(context.Context) (time.Time, error)  { return time.Time{}, nil }
func (fakeBase) ClearPatterns(context.Context) error                { return nil }
func (fakeBase) UpsertPattern(context.Context, model.Pattern) error { return nil }
func (fakeBase) GetPatterns(context.Context, string) ([]model.Pattern, error) {
	return nil, nil
}
func (fakeBase) AddCommits(context.Context, []model.GitCommit) (int, error) { return 0, nil }
func (fakeBase) UncorrelatedCommits(context.Context, time.Time) ([]model.GitCommit, error) {
	return nil, nil
}
func (fakeBase) SetCommitSession(context.Context, string, string) error { return nil }
func (fakeBase) SessionCommits(context.Context, string) ([]model.GitCommit, error) {
	return nil, nil
}
func (fakeBase) Stats(context.Context) (store.Stats, error) { return store.Stats{}, nil }
func (fakeBase) Close() error                               { return nil }
