// Package store provides SQLite-backed persistence for session-lens data.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/scbrown/session-lens/internal/model"

	_ "modernc.org/sqlite"
)

const schemaVersion = 2

// Tool groupings used by activity and classification queries. The sets
// must stay aligned with the parser's file-tool extraction.
const (
	editTools   = "'Edit', 'Write', 'MultiEdit', 'NotebookEdit'"
	searchTools = "'Grep', 'Glob', 'WebSearch', 'WebFetch'"
)

// SQLiteStore implements Store using a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at dbPath. It auto-creates
// the parent directory (e.g. ~/.session-lens/) and runs schema
// migrations to ensure the database is up to date.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single connection for WAL mode simplicity; serializes writers.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// migrate runs schema migrations up to the current version.
func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("create version table: %w", err)
	}

	var ver int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&ver)
	if err == sql.ErrNoRows {
		ver = 0
	} else if err != nil {
		return fmt.Errorf("read version: %w", err)
	}

	if ver < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	if ver < 2 {
		if err := s.migrateV2(); err != nil {
			return err
		}
	}

	return nil
}

func (s *SQLiteStore) migrateV1() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id                    INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid                  TEXT NOT NULL UNIQUE,
			timestamp             TEXT NOT NULL,
			session_id            TEXT NOT NULL,
			project_path          TEXT,
			entry_type            TEXT NOT NULL,
			tool_name             TEXT,
			command               TEXT,
			command_args          TEXT,
			file_path             TEXT,
			skill_name            TEXT,
			input_tokens          INTEGER,
			output_tokens         INTEGER,
			cache_read_tokens     INTEGER,
			cache_creation_tokens INTEGER,
			model                 TEXT,
			is_error              INTEGER NOT NULL DEFAULT 0,
			result_size_bytes     INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_events_tool_name ON events(tool_name)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id                  TEXT PRIMARY KEY,
			project_path        TEXT,
			first_seen          TEXT NOT NULL,
			last_seen           TEXT NOT NULL,
			entry_count         INTEGER NOT NULL DEFAULT 0,
			tool_use_count      INTEGER NOT NULL DEFAULT 0,
			total_input_tokens  INTEGER NOT NULL DEFAULT 0,
			total_output_tokens INTEGER NOT NULL DEFAULT 0,
			primary_branch      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_last_seen ON sessions(last_seen)`,
		`CREATE TABLE IF NOT EXISTS ingestion_state (
			file_path         TEXT PRIMARY KEY,
			file_size         INTEGER NOT NULL DEFAULT 0,
			offset            INTEGER NOT NULL DEFAULT 0,
			last_modified     TEXT,
			entries_processed INTEGER NOT NULL DEFAULT 0,
			last_processed    TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS patterns (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			pattern_type TEXT NOT NULL,
			pattern_key  TEXT NOT NULL,
			count        INTEGER NOT NULL DEFAULT 0,
			last_seen    TEXT,
			metadata     TEXT,
			computed_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_patterns_type ON patterns(pattern_type)`,
		`INSERT OR REPLACE INTO schema_version (version) VALUES (1)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate v1: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) migrateV2() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS git_commits (
			hash          TEXT PRIMARY KEY,
			author        TEXT,
			timestamp     TEXT NOT NULL,
			message       TEXT,
			files_changed INTEGER NOT NULL DEFAULT 0,
			project_path  TEXT,
			session_id    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_git_commits_session ON git_commits(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_git_commits_timestamp ON git_commits(timestamp)`,
		`UPDATE schema_version SET version = 2`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate v2: %w", err)
		}
	}
	return nil
}

// AddEvents inserts events with insert-or-ignore semantics on uuid.
func (s *SQLiteStore) AddEvents(ctx context.Context, events []model.Event) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	added, err := insertEvents(ctx, tx, events)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return added, nil
}

// CommitFileEvents inserts events and advances the file's high-water
// mark in the same transaction.
func (s *SQLiteStore) CommitFileEvents(ctx context.Context, events []model.Event, state model.IngestionState) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	added, err := insertEvents(ctx, tx, events)
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO ingestion_state
		 (file_path, file_size, offset, last_modified, entries_processed, last_processed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		state.FilePath,
		state.FileSize,
		state.Offset,
		formatTime(state.LastModified),
		state.EntriesProcessed,
		formatTime(state.LastProcessed),
	)
	if err != nil {
		return 0, fmt.Errorf("update ingestion state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return added, nil
}

// insertEvents writes events inside an open transaction, counting only
// rows that were actually inserted.
func insertEvents(ctx context.Context, tx *sql.Tx, events []model.Event) (int, error) {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO events
		 (uuid, timestamp, session_id, project_path, entry_type, tool_name,
		  command, command_args, file_path, skill_name,
		  input_tokens, output_tokens, cache_read_tokens, cache_creation_tokens,
		  model, is_error, result_size_bytes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, e := range events {
		res, err := stmt.ExecContext(ctx,
			e.UUID,
			formatTime(e.Timestamp),
			e.SessionID,
			nullableString(e.ProjectPath),
			e.EntryType,
			nullableString(e.ToolName),
			nullableString(e.Command),
			nullableString(e.CommandArgs),
			nullableString(e.FilePath),
			nullableString(e.SkillName),
			nullableInt(e.InputTokens),
			nullableInt(e.OutputTokens),
			nullableInt(e.CacheReadTokens),
			nullableInt(e.CacheCreation),
			nullableString(e.Model),
			boolToInt(e.IsError),
			e.ResultSizeBytes,
		)
		if err != nil {
			return 0, fmt.Errorf("insert event %s: %w", e.UUID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		added += int(n)
	}
	return added, nil
}

const eventColumns = `uuid, timestamp, session_id, project_path, entry_type, tool_name,
	command, command_args, file_path, skill_name,
	input_tokens, output_tokens, cache_read_tokens, cache_creation_tokens,
	model, is_error, result_size_bytes`

// EventsInRange returns events matching the given filter options.
func (s *SQLiteStore) EventsInRange(ctx context.Context, opts EventOpts) ([]model.Event, error) {
	query := "SELECT " + eventColumns + " FROM events WHERE 1=1"
	var args []any

	if !opts.Start.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, formatTime(opts.Start))
	}
	if !opts.End.IsZero() {
		query += " AND timestamp < ?"
		args = append(args, formatTime(opts.End))
	}
	if opts.Tool != "" {
		query += " AND tool_name = ?"
		args = append(args, opts.Tool)
	}
	if opts.Project != "" {
		query += " AND project_path LIKE ?"
		args = append(args, "%"+opts.Project+"%")
	}
	if opts.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, opts.SessionID)
	}
	if opts.EntryType != "" {
		query += " AND entry_type = ?"
		args = append(args, opts.EntryType)
	}
	if opts.ErrorsOnly {
		query += " AND is_error = 1"
	}
	if opts.ToolsOnly {
		query += " AND tool_name IS NOT NULL"
	}
	if opts.MinResultSize > 0 {
		query += " AND result_size_bytes >= ?"
		args = append(args, opts.MinResultSize)
	}
	if opts.Ascending {
		query += " ORDER BY timestamp ASC"
	} else {
		query += " ORDER BY timestamp DESC"
	}
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("events in range: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// scanEvent reads one event row from a query over eventColumns.
func scanEvent(rows *sql.Rows) (model.Event, error) {
	var e model.Event
	var ts string
	var projectPath, toolName, command, commandArgs, filePath, skillName, mdl sql.NullString
	var inputTokens, outputTokens, cacheRead, cacheCreation sql.NullInt64
	var isError int

	err := rows.Scan(&e.UUID, &ts, &e.SessionID, &projectPath, &e.EntryType, &toolName,
		&command, &commandArgs, &filePath, &skillName,
		&inputTokens, &outputTokens, &cacheRead, &cacheCreation,
		&mdl, &isError, &e.ResultSizeBytes)
	if err != nil {
		return e, fmt.Errorf("scan event: %w", err)
	}

	e.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return e, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	e.ProjectPath = projectPath.String
	e.ToolName = toolName.String
	e.Command = command.String
	e.CommandArgs = commandArgs.String
	e.FilePath = filePath.String
	e.SkillName = skillName.String
	e.Model = mdl.String
	e.IsError = isError != 0
	e.InputTokens = intPtr(inputTokens)
	e.OutputTokens = intPtr(outputTokens)
	e.CacheReadTokens = intPtr(cacheRead)
	e.CacheCreation = intPtr(cacheCreation)
	return e, nil
}

// ToolCounts returns per-tool event counts ordered by count descending.
func (s *SQLiteStore) ToolCounts(ctx context.Context, opts CountOpts) ([]NameCount, error) {
	query := "SELECT tool_name, COUNT(*) as cnt FROM events WHERE tool_name IS NOT NULL"
	var args []any
	if !opts.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, formatTime(opts.Since))
	}
	if opts.Project != "" {
		query += " AND project_path LIKE ?"
		args = append(args, "%"+opts.Project+"%")
	}
	query += " GROUP BY tool_name ORDER BY cnt DESC"
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	return s.nameCounts(ctx, query, args...)
}

// CommandCounts returns per-command counts for shell-tool events.
func (s *SQLiteStore) CommandCounts(ctx context.Context, opts CommandOpts) ([]NameCount, error) {
	query := "SELECT command, COUNT(*) as cnt FROM events WHERE tool_name = 'Bash' AND command IS NOT NULL"
	var args []any
	if !opts.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, formatTime(opts.Since))
	}
	if opts.Project != "" {
		query += " AND project_path LIKE ?"
		args = append(args, "%"+opts.Project+"%")
	}
	if opts.Prefix != "" {
		query += " AND command LIKE ?"
		args = append(args, opts.Prefix+"%")
	}
	query += " GROUP BY command"
	if opts.Threshold > 0 {
		query += " HAVING COUNT(*) >= ?"
		args = append(args, opts.Threshold)
	}
	query += " ORDER BY cnt DESC"
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	return s.nameCounts(ctx, query, args...)
}

func (s *SQLiteStore) nameCounts(ctx context.Context, query string, args ...any) ([]NameCount, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count query: %w", err)
	}
	defer rows.Close()

	var counts []NameCount
	for rows.Next() {
		var nc NameCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts = append(counts, nc)
	}
	return counts, rows.Err()
}

// ToolStream returns tool-bearing events ordered by (session_id,
// timestamp). Sequence mining depends on this ordering: session
// boundaries must be contiguous so n-grams never span two sessions.
func (s *SQLiteStore) ToolStream(ctx context.Context, since time.Time) ([]ToolCall, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, tool_name, timestamp FROM events
		 WHERE timestamp >= ? AND tool_name IS NOT NULL
		 ORDER BY session_id, timestamp`,
		formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("tool stream: %w", err)
	}
	defer rows.Close()

	var calls []ToolCall
	for rows.Next() {
		var tc ToolCall
		var ts string
		if err := rows.Scan(&tc.SessionID, &tc.ToolName, &ts); err != nil {
			return nil, fmt.Errorf("scan tool call: %w", err)
		}
		tc.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		calls = append(calls, tc)
	}
	return calls, rows.Err()
}

// FileActivity returns per-file event counts broken down by access kind.
func (s *SQLiteStore) FileActivity(ctx context.Context, opts CountOpts) ([]FileCount, error) {
	query := `SELECT file_path,
		SUM(CASE WHEN tool_name = 'Read' THEN 1 ELSE 0 END) as reads,
		SUM(CASE WHEN tool_name IN (` + editTools + `) AND tool_name != 'Write' THEN 1 ELSE 0 END) as edits,
		SUM(CASE WHEN tool_name = 'Write' THEN 1 ELSE 0 END) as writes,
		COUNT(*) as total
		FROM events WHERE file_path IS NOT NULL`
	var args []any
	if !opts.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, formatTime(opts.Since))
	}
	if opts.Project != "" {
		query += " AND project_path LIKE ?"
		args = append(args, "%"+opts.Project+"%")
	}
	query += " GROUP BY file_path ORDER BY total DESC"
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("file activity: %w", err)
	}
	defer rows.Close()

	var files []FileCount
	for rows.Next() {
		var fc FileCount
		if err := rows.Scan(&fc.FilePath, &fc.Reads, &fc.Edits, &fc.Writes, &fc.Total); err != nil {
			return nil, fmt.Errorf("scan file activity: %w", err)
		}
		files = append(files, fc)
	}
	return files, rows.Err()
}

// TokenUsage returns token totals grouped by day, session, or model.
func (s *SQLiteStore) TokenUsage(ctx context.Context, opts TokenOpts) ([]TokenBucket, error) {
	var keyExpr, groupExpr, orderExpr, projectExpr string
	switch opts.By {
	case "day":
		keyExpr = "substr(timestamp, 1, 10)"
		groupExpr = keyExpr
		orderExpr = keyExpr + " DESC"
		projectExpr = "''"
	case "session":
		keyExpr = "session_id"
		groupExpr = "session_id"
		orderExpr = "input DESC"
		projectExpr = "COALESCE(MIN(project_path), '')"
	case "model":
		keyExpr = "COALESCE(model, 'unknown')"
		groupExpr = keyExpr
		orderExpr = "input DESC"
		projectExpr = "''"
	default:
		return nil, fmt.Errorf("invalid grouping %q: use day, session, or model", opts.By)
	}

	query := fmt.Sprintf(`SELECT %s as key, %s as project,
		SUM(COALESCE(input_tokens, 0)) as input,
		SUM(COALESCE(output_tokens, 0)) as output,
		SUM(COALESCE(cache_read_tokens, 0)) as cache_read,
		SUM(COALESCE(cache_creation_tokens, 0)) as cache_creation,
		COUNT(*) as cnt
		FROM events WHERE 1=1`, keyExpr, projectExpr)
	var args []any
	if !opts.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, formatTime(opts.Since))
	}
	if opts.Project != "" {
		query += " AND project_path LIKE ?"
		args = append(args, "%"+opts.Project+"%")
	}
	query += fmt.Sprintf(" GROUP BY %s ORDER BY %s", groupExpr, orderExpr)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("token usage: %w", err)
	}
	defer rows.Close()

	var buckets []TokenBucket
	for rows.Next() {
		var b TokenBucket
		if err := rows.Scan(&b.Key, &b.ProjectPath, &b.InputTokens, &b.OutputTokens,
			&b.CacheRead, &b.CacheCreation, &b.EventCount); err != nil {
			return nil, fmt.Errorf("scan token bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// LatestEventTimes returns the newest event timestamp per session.
func (s *SQLiteStore) LatestEventTimes(ctx context.Context, sessionIDs []string) (map[string]time.Time, error) {
	query := "SELECT session_id, MAX(timestamp) FROM events"
	var args []any
	if len(sessionIDs) > 0 {
		query += " WHERE session_id IN (?" + strings.Repeat(",?", len(sessionIDs)-1) + ")"
		for _, id := range sessionIDs {
			args = append(args, id)
		}
	}
	query += " GROUP BY session_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("latest event times: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]time.Time)
	for rows.Next() {
		var id, ts string
		if err := rows.Scan(&id, &ts); err != nil {
			return nil, fmt.Errorf("scan latest time: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		latest[id] = t
	}
	return latest, rows.Err()
}

// WindowMetrics aggregates the trend metric set over [start, end).
func (s *SQLiteStore) WindowMetrics(ctx context.Context, start, end time.Time) (Metrics, error) {
	var m Metrics
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			SUM(CASE WHEN entry_type = 'tool_use' THEN 1 ELSE 0 END),
			SUM(CASE WHEN is_error = 1 THEN 1 ELSE 0 END),
			COUNT(DISTINCT session_id),
			SUM(CASE WHEN entry_type = 'compaction' THEN 1 ELSE 0 END),
			SUM(COALESCE(input_tokens, 0)),
			SUM(COALESCE(output_tokens, 0))
		 FROM events WHERE timestamp >= ? AND timestamp < ?`,
		formatTime(start), formatTime(end),
	).Scan(&m.Events, nullSum(&m.ToolCalls), nullSum(&m.Errors), &m.Sessions,
		nullSum(&m.Compactions), nullSum64(&m.InputTokens), nullSum64(&m.OutputTokens))
	if err != nil {
		return m, fmt.Errorf("window metrics: %w", err)
	}
	return m, nil
}

// RecomputeSessions rebuilds session aggregates from the event table.
// Aggregates are recomputed whole rather than patched so out-of-order
// and backfilled ingestion cannot drift the counters. An existing
// primary_branch is preserved.
func (s *SQLiteStore) RecomputeSessions(ctx context.Context, ids []string) (int, error) {
	updated := 0
	for _, id := range ids {
		var entryCount, toolUseCount int
		var inputTokens, outputTokens int64
		var firstSeen, lastSeen, projectPath sql.NullString
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*),
				SUM(CASE WHEN entry_type = 'tool_use' THEN 1 ELSE 0 END),
				MIN(timestamp), MAX(timestamp),
				SUM(COALESCE(input_tokens, 0)), SUM(COALESCE(output_tokens, 0)),
				MIN(project_path)
			 FROM events WHERE session_id = ?`, id,
		).Scan(&entryCount, nullSum(&toolUseCount), &firstSeen, &lastSeen,
			nullSum64(&inputTokens), nullSum64(&outputTokens), &projectPath)
		if err != nil {
			return updated, fmt.Errorf("aggregate session %s: %w", id, err)
		}
		if entryCount == 0 {
			continue
		}

		var branch sql.NullString
		_ = s.db.QueryRowContext(ctx,
			"SELECT primary_branch FROM sessions WHERE id = ?", id).Scan(&branch)

		_, err = s.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO sessions
			 (id, project_path, first_seen, last_seen, entry_count, tool_use_count,
			  total_input_tokens, total_output_tokens, primary_branch)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id,
			nullableString(projectPath.String),
			firstSeen.String,
			lastSeen.String,
			entryCount,
			toolUseCount,
			inputTokens,
			outputTokens,
			nullableString(branch.String),
		)
		if err != nil {
			return updated, fmt.Errorf("upsert session %s: %w", id, err)
		}
		updated++
	}
	return updated, nil
}

// ListSessions returns session rollups matching the filter options.
func (s *SQLiteStore) ListSessions(ctx context.Context, opts SessionOpts) ([]model.Session, error) {
	query := `SELECT id, project_path, first_seen, last_seen, entry_count,
		tool_use_count, total_input_tokens, total_output_tokens, primary_branch
		FROM sessions WHERE 1=1`
	var args []any
	if !opts.Since.IsZero() {
		query += " AND last_seen >= ?"
		args = append(args, formatTime(opts.Since))
	}
	if opts.Project != "" {
		query += " AND project_path LIKE ?"
		args = append(args, "%"+opts.Project+"%")
	}
	query += " ORDER BY last_seen DESC"
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var sess model.Session
		var projectPath, branch sql.NullString
		var firstSeen, lastSeen string
		if err := rows.Scan(&sess.ID, &projectPath, &firstSeen, &lastSeen,
			&sess.EntryCount, &sess.ToolUseCount,
			&sess.TotalInputTokens, &sess.TotalOutputTokens, &branch); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.ProjectPath = projectPath.String
		sess.PrimaryBranch = branch.String
		sess.FirstSeen, _ = time.Parse(time.RFC3339Nano, firstSeen)
		sess.LastSeen, _ = time.Parse(time.RFC3339Nano, lastSeen)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SetSessionBranch records the primary git branch for a session.
func (s *SQLiteStore) SetSessionBranch(ctx context.Context, sessionID, branch string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET primary_branch = ? WHERE id = ?", branch, sessionID)
	if err != nil {
		return fmt.Errorf("set session branch: %w", err)
	}
	return nil
}

// SessionSignals returns per-session activity counts for classification.
func (s *SQLiteStore) SessionSignals(ctx context.Context, since time.Time, project string) ([]SessionSignal, error) {
	query := `SELECT session_id, COALESCE(MIN(project_path), ''),
		MIN(timestamp), MAX(timestamp),
		SUM(CASE WHEN entry_type = 'tool_use' THEN 1 ELSE 0 END),
		SUM(CASE WHEN is_error = 1 THEN 1 ELSE 0 END),
		SUM(CASE WHEN tool_name IN (` + editTools + `) THEN 1 ELSE 0 END),
		SUM(CASE WHEN tool_name = 'Read' THEN 1 ELSE 0 END),
		SUM(CASE WHEN tool_name IN (` + searchTools + `) THEN 1 ELSE 0 END),
		SUM(CASE WHEN tool_name = 'Bash' THEN 1 ELSE 0 END)
		FROM events WHERE timestamp >= ?`
	args := []any{formatTime(since)}
	if project != "" {
		query += " AND project_path LIKE ?"
		args = append(args, "%"+project+"%")
	}
	query += " GROUP BY session_id ORDER BY MAX(timestamp) DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("session signals: %w", err)
	}
	defer rows.Close()

	var signals []SessionSignal
	for rows.Next() {
		var sig SessionSignal
		var firstSeen, lastSeen string
		if err := rows.Scan(&sig.SessionID, &sig.ProjectPath, &firstSeen, &lastSeen,
			&sig.ToolCalls, &sig.Errors, &sig.Edits, &sig.Reads, &sig.Searches, &sig.Commands); err != nil {
			return nil, fmt.Errorf("scan session signal: %w", err)
		}
		sig.FirstSeen, _ = time.Parse(time.RFC3339Nano, firstSeen)
		sig.LastSeen, _ = time.Parse(time.RFC3339Nano, lastSeen)
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

// GetIngestionState returns the high-water mark for a source file, or
// nil if the file has never been seen.
func (s *SQLiteStore) GetIngestionState(ctx context.Context, filePath string) (*model.IngestionState, error) {
	var st model.IngestionState
	var lastModified, lastProcessed sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT file_path, file_size, offset, last_modified, entries_processed, last_processed
		 FROM ingestion_state WHERE file_path = ?`, filePath,
	).Scan(&st.FilePath, &st.FileSize, &st.Offset, &lastModified, &st.EntriesProcessed, &lastProcessed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ingestion state: %w", err)
	}
	if lastModified.Valid {
		st.LastModified, _ = time.Parse(time.RFC3339Nano, lastModified.String)
	}
	if lastProcessed.Valid {
		st.LastProcessed, _ = time.Parse(time.RFC3339Nano, lastProcessed.String)
	}
	return &st, nil
}

// LastIngestTime returns the most recent last_processed across all
// source files.
func (s *SQLiteStore) LastIngestTime(ctx context.Context) (time.Time, error) {
	var ts sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT MAX(last_processed) FROM ingestion_state").Scan(&ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("last ingest time: %w", err)
	}
	if !ts.Valid || ts.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, ts.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last ingest time %q: %w", ts.String, err)
	}
	return t, nil
}

// ClearPatterns empties the pattern cache.
func (s *SQLiteStore) ClearPatterns(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM patterns"); err != nil {
		return fmt.Errorf("clear patterns: %w", err)
	}
	return nil
}

// UpsertPattern stores one derived pattern row.
func (s *SQLiteStore) UpsertPattern(ctx context.Context, p model.Pattern) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO patterns (pattern_type, pattern_key, count, last_seen, metadata, computed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.Type,
		p.Key,
		p.Count,
		formatTime(p.LastSeen),
		nullableJSON(p.Metadata),
		formatTime(p.ComputedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert pattern: %w", err)
	}
	return nil
}

// GetPatterns returns cached patterns, optionally filtered by type.
// Order reproduces the recompute pass's insertion order so paginated
// callers see a stable ranking.
func (s *SQLiteStore) GetPatterns(ctx context.Context, patternType string) ([]model.Pattern, error) {
	query := "SELECT pattern_type, pattern_key, count, last_seen, metadata, computed_at FROM patterns"
	var args []any
	if patternType != "" {
		query += " WHERE pattern_type = ?"
		args = append(args, patternType)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get patterns: %w", err)
	}
	defer rows.Close()

	var patterns []model.Pattern
	for rows.Next() {
		var p model.Pattern
		var lastSeen, computedAt string
		var metadata sql.NullString
		if err := rows.Scan(&p.Type, &p.Key, &p.Count, &lastSeen, &metadata, &computedAt); err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		p.LastSeen, _ = time.Parse(time.RFC3339Nano, lastSeen)
		p.ComputedAt, _ = time.Parse(time.RFC3339Nano, computedAt)
		if metadata.Valid && metadata.String != "" {
			p.Metadata = json.RawMessage(metadata.String)
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// AddCommits inserts commits with insert-or-ignore semantics on hash.
func (s *SQLiteStore) AddCommits(ctx context.Context, commits []model.GitCommit) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	added := 0
	for _, c := range commits {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO git_commits
			 (hash, author, timestamp, message, files_changed, project_path, session_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.Hash,
			nullableString(c.Author),
			formatTime(c.Timestamp),
			nullableString(c.Message),
			c.FilesChanged,
			nullableString(c.ProjectPath),
			nullableString(c.SessionID),
		)
		if err != nil {
			return 0, fmt.Errorf("insert commit %s: %w", c.Hash, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		added += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return added, nil
}

// UncorrelatedCommits returns commits without a session assignment.
func (s *SQLiteStore) UncorrelatedCommits(ctx context.Context, since time.Time) ([]model.GitCommit, error) {
	query := `SELECT hash, author, timestamp, message, files_changed, project_path, session_id
		FROM git_commits WHERE session_id IS NULL`
	var args []any
	if !since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, formatTime(since))
	}
	query += " ORDER BY timestamp"
	return s.scanCommits(ctx, query, args...)
}

// SetCommitSession fills a commit's session assignment without
// overwriting an existing one.
func (s *SQLiteStore) SetCommitSession(ctx context.Context, hash, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE git_commits SET session_id = ? WHERE hash = ? AND session_id IS NULL",
		sessionID, hash)
	if err != nil {
		return fmt.Errorf("set commit session: %w", err)
	}
	return nil
}

// SessionCommits returns commits correlated to a session.
func (s *SQLiteStore) SessionCommits(ctx context.Context, sessionID string) ([]model.GitCommit, error) {
	return s.scanCommits(ctx,
		`SELECT hash, author, timestamp, message, files_changed, project_path, session_id
		 FROM git_commits WHERE session_id = ? ORDER BY timestamp`, sessionID)
}

func (s *SQLiteStore) scanCommits(ctx context.Context, query string, args ...any) ([]model.GitCommit, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("commits query: %w", err)
	}
	defer rows.Close()

	var commits []model.GitCommit
	for rows.Next() {
		var c model.GitCommit
		var author, message, projectPath, sessionID sql.NullString
		var ts string
		if err := rows.Scan(&c.Hash, &author, &ts, &message, &c.FilesChanged, &projectPath, &sessionID); err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		c.Author = author.String
		c.Message = message.String
		c.ProjectPath = projectPath.String
		c.SessionID = sessionID.String
		c.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		commits = append(commits, c)
	}
	return commits, rows.Err()
}

// Stats returns database summary statistics.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats

	counts := []struct {
		query string
		dst   *int
	}{
		{"SELECT COUNT(*) FROM events", &st.TotalEvents},
		{"SELECT COUNT(*) FROM sessions", &st.TotalSessions},
		{"SELECT COUNT(*) FROM git_commits", &st.TotalCommits},
		{"SELECT COUNT(*) FROM patterns", &st.TotalPatterns},
		{"SELECT COUNT(*) FROM ingestion_state", &st.SourceFiles},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return st, fmt.Errorf("stats count: %w", err)
		}
	}

	if st.TotalEvents > 0 {
		var earliest, latest string
		if err := s.db.QueryRowContext(ctx,
			"SELECT MIN(timestamp), MAX(timestamp) FROM events").Scan(&earliest, &latest); err != nil {
			return st, fmt.Errorf("date range: %w", err)
		}
		st.Earliest, _ = time.Parse(time.RFC3339Nano, earliest)
		st.Latest, _ = time.Parse(time.RFC3339Nano, latest)
	}

	now := time.Now().UTC()
	for _, w := range []struct {
		dur time.Duration
		dst *int
	}{
		{24 * time.Hour, &st.Last24h},
		{7 * 24 * time.Hour, &st.Last7d},
		{30 * 24 * time.Hour, &st.Last30d},
	} {
		since := now.Add(-w.dur).Format(time.RFC3339Nano)
		if err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM events WHERE timestamp >= ?", since).Scan(w.dst); err != nil {
			return st, fmt.Errorf("count since %v: %w", w.dur, err)
		}
	}

	return st, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// formatTime renders a timestamp for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// boolToInt converts a bool to an integer for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullableString returns nil for empty strings, otherwise the string value.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullableInt returns nil for nil pointers, otherwise the value. Token
// columns distinguish "absent" from zero so SUM() ignores absences.
func nullableInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

// nullableJSON returns nil for nil/empty JSON, otherwise the string form.
func nullableJSON(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}

// intPtr converts a scanned nullable integer to a pointer.
func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

// nullSum wraps an int destination so SUM() over zero rows scans as 0.
func nullSum(dst *int) *nullIntScanner { return &nullIntScanner{dst: dst} }

type nullIntScanner struct{ dst *int }

func (n *nullIntScanner) Scan(v any) error {
	var ni sql.NullInt64
	if err := ni.Scan(v); err != nil {
		return err
	}
	*n.dst = int(ni.Int64)
	return nil
}

// nullSum64 wraps an int64 destination so SUM() over zero rows scans as 0.
func nullSum64(dst *int64) *nullInt64Scanner { return &nullInt64Scanner{dst: dst} }

type nullInt64Scanner struct{ dst *int64 }

func (n *nullInt64Scanner) Scan(v any) error {
	var ni sql.NullInt64
	if err := ni.Scan(v); err != nil {
		return err
	}
	*n.dst = ni.Int64
	return nil
}
