//go:build integration

package integration

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// TestIngestAndQueryPipeline runs the full transcript → ingest → query
// path through the compiled binary.
func TestIngestAndQueryPipeline(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	now := time.Now()
	e.writeTranscript("-home-me-proj", "session-aaa", []map[string]any{
		userRecord("session-aaa", "u1", now.Add(-10*time.Minute)),
		toolUseRecord("session-aaa", "a1", "Bash", map[string]any{"command": "go test ./..."}, now.Add(-9*time.Minute)),
		toolUseRecord("session-aaa", "a2", "Read", map[string]any{"file_path": "/home/me/proj/main.go"}, now.Add(-8*time.Minute)),
		toolUseRecord("session-aaa", "a3", "Bash", map[string]any{"command": "go test ./..."}, now.Add(-7*time.Minute)),
	})

	out := e.mustRun("ingest", "--json")
	var res struct {
		EventsAdded     int `json:"events_added"`
		SessionsUpdated int `json:"sessions_updated"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("unmarshal ingest result: %v\n%s", err, out)
	}
	// 1 user + 3 assistant messages + 3 tool_use events.
	if res.EventsAdded != 7 {
		t.Errorf("EventsAdded = %d, want 7", res.EventsAdded)
	}
	if res.SessionsUpdated != 1 {
		t.Errorf("SessionsUpdated = %d, want 1", res.SessionsUpdated)
	}

	// Re-running ingests nothing new.
	out = e.mustRun("ingest", "--json")
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("unmarshal second ingest result: %v", err)
	}
	if res.EventsAdded != 0 {
		t.Errorf("second run EventsAdded = %d, want 0", res.EventsAdded)
	}

	// Tool frequency sees Bash twice, Read once.
	out = e.mustRun("tools", "--json", "--no-refresh")
	var tools []struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	if err := json.Unmarshal([]byte(out), &tools); err != nil {
		t.Fatalf("unmarshal tools: %v\n%s", err, out)
	}
	if len(tools) != 2 || tools[0].Name != "Bash" || tools[0].Count != 2 {
		t.Errorf("tools = %+v, want Bash x2 first", tools)
	}

	// Commands are split at the head.
	out = e.mustRun("commands", "--json", "--no-refresh")
	if !strings.Contains(out, `"go"`) {
		t.Errorf("commands output missing head \"go\":\n%s", out)
	}

	// The session rollup carries the decoded project path.
	out = e.mustRun("sessions", "--json", "--no-refresh")
	if !strings.Contains(out, "/home/me/proj") {
		t.Errorf("sessions output missing project path:\n%s", out)
	}
}

// TestInsightsComputeAndCache verifies the pattern cache round-trip
// through the binary.
func TestInsightsComputeAndCache(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	now := time.Now()
	records := []map[string]any{userRecord("session-bbb", "u1", now.Add(-time.Hour))}
	for i := 0; i < 6; i++ {
		records = append(records, toolUseRecord("session-bbb",
			string(rune('a'+i))+"-use", "Bash",
			map[string]any{"command": "cargo build"},
			now.Add(-time.Duration(50-i)*time.Minute)))
	}
	e.writeTranscript("-home-me-rust", "session-bbb", records)
	e.mustRun("ingest")

	out := e.mustRun("insights", "--compute", "--json", "--no-refresh")
	if !strings.Contains(out, "tool_frequency") && !strings.Contains(out, "Bash") {
		t.Errorf("computed insights missing tool data:\n%s", out)
	}

	// Without --compute the cache serves the same data.
	out = e.mustRun("insights", "--json", "--no-refresh")
	if !strings.Contains(out, "Bash") {
		t.Errorf("cached insights missing tool data:\n%s", out)
	}
	// A command used 6 times with no allow-list shows up as a gap.
	if !strings.Contains(out, "Bash(cargo:*)") {
		t.Errorf("cached insights missing permission gap:\n%s", out)
	}
}
