// Package store defines the storage interface for session-lens data.
package store

import (
	"context"
	"time"

	"github.com/scbrown/session-lens/internal/model"
)

// Store is the persistence interface for events, sessions, ingestion
// state, derived patterns, and git commits.
type Store interface {
	// AddEvents inserts events with insert-or-ignore semantics on uuid.
	// Returns the number of rows actually inserted; duplicates are
	// silently dropped.
	AddEvents(ctx context.Context, events []model.Event) (int, error)

	// CommitFileEvents inserts events and updates the source file's
	// ingestion state in a single transaction, so a crash never leaves
	// the offset ahead of committed inserts.
	CommitFileEvents(ctx context.Context, events []model.Event, state model.IngestionState) (int, error)

	// EventsInRange returns events matching the given filter options.
	EventsInRange(ctx context.Context, opts EventOpts) ([]model.Event, error)

	// ToolCounts returns per-tool event counts ordered by count descending.
	ToolCounts(ctx context.Context, opts CountOpts) ([]NameCount, error)

	// CommandCounts returns per-command counts for shell-tool events.
	CommandCounts(ctx context.Context, opts CommandOpts) ([]NameCount, error)

	// ToolStream returns tool-bearing events ordered by (session_id,
	// timestamp) for sequence mining.
	ToolStream(ctx context.Context, since time.Time) ([]ToolCall, error)

	// FileActivity returns per-file event counts broken down by access kind.
	FileActivity(ctx context.Context, opts CountOpts) ([]FileCount, error)

	// TokenUsage returns token totals grouped by day, session, or model.
	TokenUsage(ctx context.Context, opts TokenOpts) ([]TokenBucket, error)

	// LatestEventTimes returns the newest event timestamp per session,
	// optionally restricted to the given session IDs.
	LatestEventTimes(ctx context.Context, sessionIDs []string) (map[string]time.Time, error)

	// WindowMetrics aggregates the trend metric set over [start, end).
	WindowMetrics(ctx context.Context, start, end time.Time) (Metrics, error)


	// RecomputeSessions rebuilds session aggregates from the event table
	// for the given session IDs. Returns the number of sessions upserted.
	RecomputeSessions(ctx context.Context, ids []string) (int, error)

	// ListSessions returns session rollups matching the filter options.
	ListSessions(ctx context.Context, opts SessionOpts) ([]model.Session, error)

	// SetSessionBranch records the primary git branch observed for a
	// session. Recompute passes preserve it.
	SetSessionBranch(ctx context.Context, sessionID, branch string) error

	// SessionSignals returns per-session activity counts used for
	// classification.
	SessionSignals(ctx context.Context, since time.Time, project string) ([]SessionSignal, error)

	// GetIngestionState returns the high-water mark for a source file,
	// or nil if the file has never been seen.
	GetIngestionState(ctx context.Context, filePath string) (*model.IngestionState, error)

	// LastIngestTime returns the most recent last_processed across all
	// source files, or the zero time if nothing was ever ingested.
	LastIngestTime(ctx context.Context) (time.Time, error)

	// ClearPatterns empties the pattern cache.
	ClearPatterns(ctx context.Context) error

	// UpsertPattern stores one derived pattern row.
	UpsertPattern(ctx context.Context, p model.Pattern) error

	// GetPatterns returns cached patterns, optionally filtered by type.
	GetPatterns(ctx context.Context, patternType string) ([]model.Pattern, error)

	// AddCommits inserts commits with insert-or-ignore semantics on hash.
	AddCommits(ctx context.Context, commits []model.GitCommit) (int, error)

	// UncorrelatedCommits returns commits without a session assignment.
	UncorrelatedCommits(ctx context.Context, since time.Time) ([]model.GitCommit, error)

	// SetCommitSession fills a commit's session assignment. It never
	// overwrites an existing assignment.
	SetCommitSession(ctx context.Context, hash, sessionID string) error

	// SessionCommits returns commits correlated to a session.
	SessionCommits(ctx context.Context, sessionID string) ([]model.GitCommit, error)

	// Stats returns database summary statistics.
	Stats(ctx context.Context) (Stats, error)

	// Close releases any resources held by the store.
	Close() error
}

// EventOpts controls filtering for EventsInRange.
type EventOpts struct {
	Start         time.Time // Only events at or after this time.
	End           time.Time // Only events before this time.
	Tool          string    // Filter by tool name.
	Project       string    // Substring match on project path.
	SessionID     string    // Filter by session ID.
	EntryType     string    // Filter by entry type (e.g. "compaction").
	ErrorsOnly    bool      // Only events flagged is_error.
	ToolsOnly     bool      // Only events with a tool name.
	MinResultSize int64     // Only events with result_size_bytes >= this.
	Ascending     bool      // Oldest-first ordering; default newest-first.
	Limit         int       // Maximum results; 0 means no limit.
}

// CountOpts controls filtering for grouped count queries.
type CountOpts struct {
	Since   time.Time // Only events at or after this time.
	Project string    // Substring match on project path.
	Limit   int       // Maximum results; 0 means no limit.
}

// CommandOpts controls filtering for CommandCounts.
type CommandOpts struct {
	Since     time.Time // Only events at or after this time.
	Project   string    // Substring match on project path.
	Prefix    string    // Command prefix filter (e.g. "git").
	Threshold int       // Minimum count to include; 0 means all.
	Limit     int       // Maximum results; 0 means no limit.
}

// TokenOpts controls grouping for TokenUsage.
type TokenOpts struct {
	Since   time.Time
	Project string
	By      string // "day", "session", or "model".
}

// SessionOpts controls filtering for ListSessions.
type SessionOpts struct {
	Since   time.Time // Only sessions with last_seen at or after this time.
	Project string    // Substring match on project path.
	Limit   int       // Maximum results; 0 means no limit.
}

// NameCount pairs a grouping key with its occurrence count.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// FileCount holds per-file activity counts.
type FileCount struct {
	FilePath string `json:"file_path"`
	Reads    int    `json:"reads"`
	Edits    int    `json:"edits"`
	Writes   int    `json:"writes"`
	Total    int    `json:"total"`
}

// ToolCall is one tool-bearing event in session/timestamp order.
type ToolCall struct {
	SessionID string    `json:"session_id"`
	ToolName  string    `json:"tool_name"`
	Timestamp time.Time `json:"timestamp"`
}

// TokenBucket is one row of a token usage breakdown.
type TokenBucket struct {
	Key           string `json:"key"`
	ProjectPath   string `json:"project,omitempty"`
	InputTokens   int64  `json:"input_tokens"`
	OutputTokens  int64  `json:"output_tokens"`
	CacheRead     int64  `json:"cache_read_tokens"`
	CacheCreation int64  `json:"cache_creation_tokens"`
	EventCount    int    `json:"event_count"`
}

// Metrics is the aggregate metric set compared across trend windows.
type Metrics struct {
	Events       int   `json:"events"`
	ToolCalls    int   `json:"tool_calls"`
	Errors       int   `json:"errors"`
	Sessions     int   `json:"sessions"`
	Compactions  int   `json:"compactions"`
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// SessionSignal holds per-session activity counts for classification.
type SessionSignal struct {
	SessionID   string    `json:"session_id"`
	ProjectPath string    `json:"project,omitempty"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	ToolCalls   int       `json:"tool_calls"`
	Errors      int       `json:"errors"`
	Edits       int       `json:"edits"`
	Reads       int       `json:"reads"`
	Searches    int       `json:"searches"`
	Commands    int       `json:"commands"`
}

// Stats holds database summary statistics.
type Stats struct {
	TotalEvents   int       `json:"total_events"`
	TotalSessions int       `json:"total_sessions"`
	TotalCommits  int       `json:"total_commits"`
	TotalPatterns int       `json:"total_patterns"`
	SourceFiles   int       `json:"source_files"`
	Earliest      time.Time `json:"earliest"`
	Latest        time.Time `json:"latest"`
	Last24h       int       `json:"last_24h"`
	Last7d        int       `json:"last_7d"`
	Last30d       int       `json:"last_30d"`
}
