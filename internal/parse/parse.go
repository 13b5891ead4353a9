// Package parse converts raw Claude Code JSONL session records into
// normalized events. Parsing is pure: no I/O, and a malformed record
// produces an error for the caller to count, never a panic or abort.
package parse

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/scbrown/session-lens/internal/cmdparse"
	"github.com/scbrown/session-lens/internal/model"
)

// eventNamespace scopes derived UUIDs for events split out of a single
// raw record (tool_use and tool_result blocks). Derivation is
// deterministic so re-parsing the same record reproduces the same
// UUIDs and dedup holds across re-ingestion.
var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("session-lens/event"))

// entry is the raw JSONL record shape. Fields are loosely typed; any
// of them may be absent.
type entry struct {
	UUID      string          `json:"uuid"`
	Type      string          `json:"type"`
	Subtype   string          `json:"subtype,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	GitBranch string          `json:"gitBranch,omitempty"`
	Message   json.RawMessage `json:"message,omitempty"`
}

// messageEnvelope is the shape of the message field on user/assistant
// records.
type messageEnvelope struct {
	Role    string          `json:"role"`
	Model   string          `json:"model,omitempty"`
	Content json.RawMessage `json:"content"`
	Usage   *usage          `json:"usage,omitempty"`
}

// usage holds token accounting from the API response.
type usage struct {
	InputTokens         *int64 `json:"input_tokens"`
	OutputTokens        *int64 `json:"output_tokens"`
	CacheReadTokens     *int64 `json:"cache_read_input_tokens"`
	CacheCreationTokens *int64 `json:"cache_creation_input_tokens"`
}

// contentBlock represents one block in an assistant message's content
// array.
type contentBlock struct {
	Type  string          `json:"type"`
	Name  string          `json:"name,omitempty"`
	ID    string          `json:"id,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// toolResultBlock represents one block in a user message's content
// array when it contains a tool_result.
type toolResultBlock struct {
	Type      string          `json:"type"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	IsError   bool            `json:"is_error"`
	Content   json.RawMessage `json:"content,omitempty"`
}

// fileTools maps tool names whose input carries a file_path.
var fileTools = map[string]bool{
	"Read":         true,
	"Edit":         true,
	"Write":        true,
	"MultiEdit":    true,
	"NotebookEdit": true,
}

// Entry parses one raw JSONL record into zero or more normalized
// events. An assistant record yields one event per tool_use block plus
// one for the message itself; irrelevant records (summaries, queued
// prompts) yield none. Records missing uuid or timestamp return an
// error for the caller to count as a parse error.
func Entry(raw []byte, projectPath string) ([]model.Event, error) {
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}

	switch e.Type {
	case "user", "assistant", "system":
	default:
		return nil, nil
	}

	if e.UUID == "" {
		return nil, fmt.Errorf("record missing uuid")
	}
	ts, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("record %s: bad timestamp %q", e.UUID, e.Timestamp)
	}

	base := model.Event{
		UUID:        e.UUID,
		Timestamp:   ts,
		SessionID:   e.SessionID,
		ProjectPath: projectPath,
	}

	switch e.Type {
	case "system":
		base.EntryType = model.EntrySystem
		if e.Subtype == "compact_boundary" {
			base.EntryType = model.EntryCompaction
		}
		return []model.Event{base}, nil

	case "user":
		return userEvents(base, e.Message), nil

	case "assistant":
		return assistantEvents(base, e.Message), nil
	}
	return nil, nil
}

// Branch extracts the git branch recorded on a raw record, if any.
func Branch(raw []byte) string {
	var e struct {
		GitBranch string `json:"gitBranch"`
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return ""
	}
	return e.GitBranch
}

// userEvents maps a user record to events. String content is a human
// message; array content carries tool_result blocks, one event each.
func userEvents(base model.Event, message json.RawMessage) []model.Event {
	base.EntryType = model.EntryUser
	if len(message) == 0 {
		return []model.Event{base}
	}
	var env messageEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		return []model.Event{base}
	}
	if len(env.Content) == 0 || env.Content[0] != '[' {
		return []model.Event{base}
	}

	var blocks []toolResultBlock
	if err := json.Unmarshal(env.Content, &blocks); err != nil {
		return []model.Event{base}
	}

	var events []model.Event
	for _, b := range blocks {
		if b.Type != "tool_result" {
			continue
		}
		ev := base
		ev.EntryType = model.EntryToolResult
		ev.UUID = derivedUUID(base.UUID, b.ToolUseID)
		ev.IsError = b.IsError
		ev.ResultSizeBytes = int64(len(b.Content))
		events = append(events, ev)
	}
	if len(events) == 0 {
		return []model.Event{base}
	}
	return events
}

// assistantEvents maps an assistant record to one message event with
// token accounting plus one event per tool_use block.
func assistantEvents(base model.Event, message json.RawMessage) []model.Event {
	msg := base
	msg.EntryType = model.EntryAssistant

	var env messageEnvelope
	if len(message) > 0 {
		if err := json.Unmarshal(message, &env); err == nil {
			msg.Model = env.Model
			if env.Usage != nil {
				msg.InputTokens = env.Usage.InputTokens
				msg.OutputTokens = env.Usage.OutputTokens
				msg.CacheReadTokens = env.Usage.CacheReadTokens
				msg.CacheCreation = env.Usage.CacheCreationTokens
			}
		}
	}

	events := []model.Event{msg}

	var blocks []contentBlock
	if len(env.Content) > 0 && env.Content[0] == '[' {
		if err := json.Unmarshal(env.Content, &blocks); err != nil {
			blocks = nil
		}
	}
	for i, b := range blocks {
		if b.Type != "tool_use" || b.Name == "" {
			continue
		}
		ev := base
		ev.EntryType = model.EntryToolUse
		ev.ToolName = b.Name
		ev.Model = env.Model
		blockKey := b.ID
		if blockKey == "" {
			blockKey = fmt.Sprintf("block-%d", i)
		}
		ev.UUID = derivedUUID(base.UUID, blockKey)
		extractToolInput(&ev, b.Input)
		events = append(events, ev)
	}
	return events
}

// extractToolInput pulls tool-specific attributes out of a tool_use
// input object. Absent or unreadable input leaves the attributes null.
func extractToolInput(ev *model.Event, input json.RawMessage) {
	if len(input) == 0 {
		return
	}
	var in struct {
		Command   string `json:"command"`
		FilePath  string `json:"file_path"`
		SkillName string `json:"skill_name"`
	}
	if err := json.Unmarshal(input, &in); err != nil {
		return
	}

	switch {
	case ev.ToolName == "Bash":
		ev.Command, ev.CommandArgs = cmdparse.Split(in.Command)
	case fileTools[ev.ToolName]:
		ev.FilePath = in.FilePath
	case ev.ToolName == "Skill":
		if in.SkillName != "" {
			ev.SkillName = in.SkillName
		} else {
			ev.SkillName = in.Command
		}
	}
}

// derivedUUID builds a stable UUID for an event split out of a raw
// record, keyed on the parent record's uuid and the block identifier.
func derivedUUID(parentUUID, blockKey string) string {
	return uuid.NewSHA1(eventNamespace, []byte(parentUUID+"#"+blockKey)).String()
}
