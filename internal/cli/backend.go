package cli

import (
	"context"
	"time"

	"github.com/scbrown/session-lens/internal/gitlog"
	"github.com/scbrown/session-lens/internal/ingest"
	"github.com/scbrown/session-lens/internal/mine"
	"github.com/scbrown/session-lens/internal/model"
	"github.com/scbrown/session-lens/internal/server"
	"github.com/scbrown/session-lens/internal/store"
)

// defaultMaxAge is how stale the database may be before a read command
// triggers a re-ingestion.
const defaultMaxAge = 5 * time.Minute

// backend is the query surface shared by all commands. It is satisfied
// by localBackend (direct SQLite access) and by *server.Client when
// store_mode is "remote", so every command works against either.
type backend interface {
	Ingest(ctx context.Context, opts ingest.Options) (ingest.Result, error)
	GitIngest(ctx context.Context, repoPath, projectPath string, since time.Time) (gitlog.Result, error)
	Stats(ctx context.Context) (store.Stats, error)
	Status(ctx context.Context) (server.Status, error)
	Tools(ctx context.Context, opts store.CountOpts) ([]store.NameCount, error)
	Commands(ctx context.Context, opts store.CommandOpts) ([]store.NameCount, error)
	Sequences(ctx context.Context, opts mine.SequenceOptions) ([]mine.Sequence, error)
	Gaps(ctx context.Context, opts mine.GapOptions) ([]mine.Gap, error)
	Failures(ctx context.Context, opts mine.FailureOptions) ([]mine.FailureStat, error)
	Classify(ctx context.Context, since time.Time, project string) ([]mine.SessionClass, error)
	Trends(ctx context.Context, windowDays int) (mine.TrendReport, error)
	Sessions(ctx context.Context, opts store.SessionOpts) ([]model.Session, error)
	Parallel(ctx context.Context, opts mine.ParallelOptions) ([]mine.SessionOverlap, error)
	SessionCommits(ctx context.Context, sessionID string) ([]model.GitCommit, error)
	Tokens(ctx context.Context, opts store.TokenOpts) ([]store.TokenBucket, error)
	Events(ctx context.Context, opts store.EventOpts) ([]model.Event, error)
	Files(ctx context.Context, opts store.CountOpts) ([]store.FileCount, error)
	Insights(ctx context.Context, compute bool, since time.Time) (mine.Insights, error)
	Close() error
}

// localBackend wraps the SQLite store with the ingestion coordinator
// and miner. Read methods first refresh the database when the last
// ingestion is older than maxAge, so queries see current transcripts
// without an explicit sl ingest.
type localBackend struct {
	store        store.Store
	coord        *ingest.Coordinator
	miner        *mine.Miner
	git          gitlog.CommitReader
	ingestOpts   ingest.Options
	settingsPath string
	maxAge       time.Duration
	refreshed    bool
}

func newLocalBackend(s store.Store, opts ingest.Options, settingsPath string) *localBackend {
	return &localBackend{
		store:        s,
		coord:        ingest.New(s),
		miner:        mine.New(s),
		git:          gitlog.GitReader{},
		ingestOpts:   opts,
		settingsPath: settingsPath,
		maxAge:       defaultMaxAge,
	}
}

// refresh runs the freshness gate once per process. Failures are
// non-fatal: a query over slightly stale data beats no answer.
func (b *localBackend) refresh(ctx context.Context) {
	if b.refreshed || b.maxAge <= 0 {
		return
	}
	b.refreshed = true
	b.coord.EnsureFresh(ctx, b.maxAge, b.ingestOpts)
}

func (b *localBackend) Ingest(ctx context.Context, opts ingest.Options) (ingest.Result, error) {
	b.refreshed = true
	return b.coord.Run(ctx, opts)
}

func (b *localBackend) GitIngest(ctx context.Context, repoPath, projectPath string, since time.Time) (gitlog.Result, error) {
	return gitlog.Ingest(ctx, b.store, b.git, repoPath, projectPath, since)
}

func (b *localBackend) Stats(ctx context.Context) (store.Stats, error) {
	b.refresh(ctx)
	return b.store.Stats(ctx)
}

func (b *localBackend) Status(ctx context.Context) (server.Status, error) {
	var status server.Status
	stats, err := b.store.Stats(ctx)
	if err != nil {
		return status, err
	}
	status.Stats = stats
	last, err := b.store.LastIngestTime(ctx)
	if err != nil {
		return status, err
	}
	if !last.IsZero() {
		status.LastIngest = &last
	}
	return status, nil
}

func (b *localBackend) Tools(ctx context.Context, opts store.CountOpts) ([]store.NameCount, error) {
	b.refresh(ctx)
	return b.miner.ToolFrequency(ctx, opts)
}

func (b *localBackend) Commands(ctx context.Context, opts store.CommandOpts) ([]store.NameCount, error) {
	b.refresh(ctx)
	return b.miner.CommandFrequency(ctx, opts)
}

func (b *localBackend) Sequences(ctx context.Context, opts mine.SequenceOptions) ([]mine.Sequence, error) {
	b.refresh(ctx)
	return b.miner.Sequences(ctx, opts)
}

func (b *localBackend) Gaps(ctx context.Context, opts mine.GapOptions) ([]mine.Gap, error) {
	b.refresh(ctx)
	if opts.SettingsPath == "" {
		opts.SettingsPath = b.settingsPath
	}
	return b.miner.Gaps(ctx, opts)
}

func (b *localBackend) Failures(ctx context.Context, opts mine.FailureOptions) ([]mine.FailureStat, error) {
	b.refresh(ctx)
	return b.miner.Failures(ctx, opts)
}

func (b *localBackend) Classify(ctx context.Context, since time.Time, project string) ([]mine.SessionClass, error) {
	b.refresh(ctx)
	return b.miner.Classify(ctx, since, project)
}

func (b *localBackend) Trends(ctx context.Context, windowDays int) (mine.TrendReport, error) {
	b.refresh(ctx)
	return b.miner.Trends(ctx, windowDays)
}

func (b *localBackend) Sessions(ctx context.Context, opts store.SessionOpts) ([]model.Session, error) {
	b.refresh(ctx)
	return b.store.ListSessions(ctx, opts)
}

func (b *localBackend) Parallel(ctx context.Context, opts mine.ParallelOptions) ([]mine.SessionOverlap, error) {
	b.refresh(ctx)
	return b.miner.ParallelSessions(ctx, opts)
}

func (b *localBackend) SessionCommits(ctx context.Context, sessionID string) ([]model.GitCommit, error) {
	return b.store.SessionCommits(ctx, sessionID)
}

func (b *localBackend) Tokens(ctx context.Context, opts store.TokenOpts) ([]store.TokenBucket, error) {
	b.refresh(ctx)
	return b.store.TokenUsage(ctx, opts)
}

func (b *localBackend) Events(ctx context.Context, opts store.EventOpts) ([]model.Event, error) {
	b.refresh(ctx)
	return b.store.EventsInRange(ctx, opts)
}

func (b *localBackend) Files(ctx context.Context, opts store.CountOpts) ([]store.FileCount, error) {
	b.refresh(ctx)
	return b.store.FileActivity(ctx, opts)
}

func (b *localBackend) Insights(ctx context.Context, compute bool, since time.Time) (mine.Insights, error) {
	b.refresh(ctx)
	if compute {
		return b.miner.ComputeInsights(ctx, mine.InsightOptions{
			Since:        since,
			SettingsPath: b.settingsPath,
		})
	}
	return b.miner.CachedInsights(ctx)
}

func (b *localBackend) Close() error {
	return b.store.Close()
}
