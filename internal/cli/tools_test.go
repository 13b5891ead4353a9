package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/scbrown/session-lens/internal/model"
	"github.com/scbrown/session-lens/internal/store"
)

// seedEvents writes tool_use events straight into the test database.
func seedEvents(t *testing.T, counts map[string]int) {
	t.Helper()
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	var events []model.Event
	i := 0
	for tool, n := range counts {
		for j := 0; j < n; j++ {
			i++
			events = append(events, model.Event{
				UUID:      fmt.Sprintf("%s-%d", tool, j),
				Timestamp: time.Now().Add(-time.Duration(i) * time.Minute),
				SessionID: "session-1",
				EntryType: model.EntryToolUse,
				ToolName:  tool,
			})
		}
	}
	if _, err := s.AddEvents(context.Background(), events); err != nil {
		t.Fatalf("seed events: %v", err)
	}
}

func TestToolsCmdEmpty(t *testing.T) {
	setupCLITest(t)

	out := runCommand(t, "tools")
	if !strings.Contains(out, "No tool usage found.") {
		t.Errorf("output = %q, want empty message", out)
	}
}

func TestToolsCmdJSON(t *testing.T) {
	setupCLITest(t)
	seedEvents(t, map[string]int{"Bash": 3, "Read": 1})

	jsonOutput = true
	out := runCommand(t, "tools", "--json")

	var counts []store.NameCount
	if err := json.Unmarshal([]byte(out), &counts); err != nil {
		t.Fatalf("unmarshal: %v\noutput: %s", err, out)
	}
	if len(counts) != 2 {
		t.Fatalf("got %d tools, want 2: %+v", len(counts), counts)
	}
	if counts[0].Name != "Bash" || counts[0].Count != 3 {
		t.Errorf("top tool = %+v, want Bash x3", counts[0])
	}
}

func TestToolsCmdTable(t *testing.T) {
	setupCLITest(t)
	seedEvents(t, map[string]int{"Edit": 2})

	out := runCommand(t, "tools")
	if !strings.Contains(out, "TOOL") || !strings.Contains(out, "Edit") {
		t.Errorf("table output missing expected rows:\n%s", out)
	}
}
