// Package model defines core types for session-lens: events (normalized
// session log records), sessions (per-session rollups), patterns (derived
// analytics), and git commits.
package model

import (
	"encoding/json"
	"time"
)

// Event is one normalized action or message observed within a session.
// Events are append-only: created once by ingestion, never mutated or
// deleted. UUID is the dedup key; re-ingesting the same raw record must
// not create a second row.
type Event struct {
	UUID            string    `json:"uuid"`
	Timestamp       time.Time `json:"timestamp"`
	SessionID       string    `json:"session_id"`
	ProjectPath     string    `json:"project_path,omitempty"`
	EntryType       string    `json:"entry_type"`
	ToolName        string    `json:"tool_name,omitempty"`
	Command         string    `json:"command,omitempty"`
	CommandArgs     string    `json:"command_args,omitempty"`
	FilePath        string    `json:"file_path,omitempty"`
	SkillName       string    `json:"skill_name,omitempty"`
	InputTokens     *int64    `json:"input_tokens,omitempty"`
	OutputTokens    *int64    `json:"output_tokens,omitempty"`
	CacheReadTokens *int64    `json:"cache_read_tokens,omitempty"`
	CacheCreation   *int64    `json:"cache_creation_tokens,omitempty"`
	Model           string    `json:"model,omitempty"`
	IsError         bool      `json:"is_error,omitempty"`
	ResultSizeBytes int64     `json:"result_size_bytes,omitempty"`
}

// Entry types produced by the parser.
const (
	EntryUser       = "user"
	EntryAssistant  = "assistant"
	EntryToolUse    = "tool_use"
	EntryToolResult = "tool_result"
	EntrySystem     = "system"
	EntryCompaction = "compaction"
)

// Session is the aggregate rollup of all Events sharing a session ID.
// Counters are recomputed from the event table after each ingestion
// batch, not patched incrementally, so out-of-order backfills stay
// consistent.
type Session struct {
	ID                string    `json:"id"`
	ProjectPath       string    `json:"project_path,omitempty"`
	FirstSeen         time.Time `json:"first_seen"`
	LastSeen          time.Time `json:"last_seen"`
	EntryCount        int       `json:"entry_count"`
	ToolUseCount      int       `json:"tool_use_count"`
	TotalInputTokens  int64     `json:"total_input_tokens"`
	TotalOutputTokens int64     `json:"total_output_tokens"`
	PrimaryBranch     string    `json:"primary_branch,omitempty"`
}

// IngestionState is the high-water mark for one source file: how far
// into the file ingestion has committed. Offset only advances together
// with the inserts it covers; if the file shrank (truncation) ingestion
// restarts from zero.
type IngestionState struct {
	FilePath         string    `json:"file_path"`
	FileSize         int64     `json:"file_size"`
	Offset           int64     `json:"offset"`
	LastModified     time.Time `json:"last_modified"`
	EntriesProcessed int64     `json:"entries_processed"`
	LastProcessed    time.Time `json:"last_processed"`
}

// Pattern is a materialized analytical result. Patterns are a cache:
// fully derivable from events, cleared and repopulated wholesale by a
// recompute pass.
type Pattern struct {
	Type       string          `json:"pattern_type"`
	Key        string          `json:"pattern_key"`
	Count      int             `json:"count"`
	LastSeen   time.Time       `json:"last_seen"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	ComputedAt time.Time       `json:"computed_at"`
}

// Pattern types stored in the cache.
const (
	PatternToolFrequency    = "tool_frequency"
	PatternCommandFrequency = "command_frequency"
	PatternToolSequence     = "tool_sequence"
	PatternPermissionGap    = "permission_gap"
)

// GitCommit is one commit ingested from a repository's history.
// SessionID is filled by the correlation pass and never overwritten
// once set.
type GitCommit struct {
	Hash         string    `json:"hash"`
	Author       string    `json:"author"`
	Timestamp    time.Time `json:"timestamp"`
	Message      string    `json:"message"`
	FilesChanged int       `json:"files_changed"`
	ProjectPath  string    `json:"project_path,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
}
