package mine

import (
	"context"
	"testing"

	"github.com/scbrown/session-lens/internal/model"
	"github.com/scbrown/session-lens/internal/store"
)

func TestComputeInsightsCachesPatterns(t *testing.T) {
	fs := &fakeStore{
		toolCounts:    []store.NameCount{{Name: "Bash", Count: 40}, {Name: "Read", Count: 25}},
		commandCounts: []store.NameCount{{Name: "go", Count: 30}},
		stream:        calls("s1", "Read", "Edit", "Read", "Edit"),
	}
	m := New(fs)

	ins, err := m.ComputeInsights(context.Background(), InsightOptions{SettingsPath: "/no/such/file"})
	if err != nil {
		t.Fatal(err)
	}
	if fs.clearedCount != 1 {
		t.Errorf("cleared %d times, want 1", fs.clearedCount)
	}
	if len(ins.Tools) != 2 || len(ins.Commands) != 1 {
		t.Errorf("insights = %+v", ins)
	}
	if len(ins.Sequences) != 1 || ins.Sequences[0].Key != "Read → Edit" {
		t.Errorf("sequences = %+v", ins.Sequences)
	}
	if len(ins.Gaps) != 1 || ins.Gaps[0].Suggestion != "Bash(go:*)" {
		t.Errorf("gaps = %+v", ins.Gaps)
	}

	types := map[string]int{}
	for _, p := range fs.patterns {
		types[p.Type]++
		if p.ComputedAt.IsZero() {
			t.Errorf("pattern %s/%s has no computed_at", p.Type, p.Key)
		}
	}
	if types[model.PatternToolFrequency] != 2 {
		t.Errorf("tool frequency rows = %d", types[model.PatternToolFrequency])
	}
	if types[model.PatternCommandFrequency] != 1 {
		t.Errorf("command frequency rows = %d", types[model.PatternCommandFrequency])
	}
	if types[model.PatternToolSequence] != 1 {
		t.Errorf("sequence rows = %d", types[model.PatternToolSequence])
	}
	if types[model.PatternPermissionGap] != 1 {
		t.Errorf("gap rows = %d", types[model.PatternPermissionGap])
	}
}

func TestComputeInsightsReplacesPreviousCache(t *testing.T) {
	fs := &fakeStore{toolCounts: []store.NameCount{{Name: "Bash", Count: 10}}}
	m := New(fs)

	if _, err := m.ComputeInsights(context.Background(), InsightOptions{SettingsPath: "/no/such/file"}); err != nil {
		t.Fatal(err)
	}
	first := len(fs.patterns)

	if _, err := m.ComputeInsights(context.Background(), InsightOptions{SettingsPath: "/no/such/file"}); err != nil {
		t.Fatal(err)
	}
	if len(fs.patterns) != first {
		t.Errorf("cache grew from %d to %d rows across recomputes", first, len(fs.patterns))
	}
}

func TestCachedInsightsRoundTrip(t *testing.T) {
	fs := &fakeStore{
		toolCounts:    []store.NameCount{{Name: "Read", Count: 7}},
		commandCounts: []store.NameCount{{Name: "make", Count: 9}},
		stream:        calls("s1", "Grep", "Read", "Grep", "Read"),
	}
	m := New(fs)

	computed, err := m.ComputeInsights(context.Background(), InsightOptions{SettingsPath: "/no/such/file"})
	if err != nil {
		t.Fatal(err)
	}

	cached, err := m.CachedInsights(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(cached.Tools) != len(computed.Tools) || cached.Tools[0] != computed.Tools[0] {
		t.Errorf("tools: cached %+v, computed %+v", cached.Tools, computed.Tools)
	}
	if len(cached.Sequences) != 1 {
		t.Fatalf("cached sequences = %+v", cached.Sequences)
	}
	seq := cached.Sequences[0]
	if seq.Key != "Grep → Read" || seq.Count != 2 {
		t.Errorf("sequence = %+v", seq)
	}
	if len(seq.Tools) != 2 || seq.Tools[0] != "Grep" {
		t.Errorf("sequence tools lost in metadata: %v", seq.Tools)
	}
	if len(cached.Gaps) != 1 || cached.Gaps[0].Suggestion != "Bash(make:*)" {
		t.Errorf("cached gaps = %+v", cached.Gaps)
	}
}

func TestCachedInsightsEmptyCache(t *testing.T) {
	m := New(&fakeStore{})
	ins, err := m.CachedInsights(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(ins.Tools) != 0 || len(ins.Sequences) != 0 || len(ins.Gaps) != 0 {
		t.Errorf("insights = %+v, want empty", ins)
	}
}
