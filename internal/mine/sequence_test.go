package mine

import (
	"context"
	"testing"
	"time"

	"github.com/scbrown/session-lens/internal/store"
)

func calls(sessionID string, tools ...string) []store.ToolCall {
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	out := make([]store.ToolCall, len(tools))
	for i, tool := range tools {
		out[i] = store.ToolCall{
			SessionID: sessionID,
			ToolName:  tool,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func TestSequencesCountsOverlappingGrams(t *testing.T) {
	fs := &fakeStore{stream: calls("s1", "Read", "Edit", "Read", "Edit", "Bash")}
	m := New(fs)

	got, err := m.Sequences(context.Background(), SequenceOptions{MinLen: 2, MaxLen: 2, MinCount: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d sequences, want 1: %+v", len(got), got)
	}
	seq := got[0]
	if seq.Key != "Read → Edit" {
		t.Errorf("key = %q", seq.Key)
	}
	if seq.Count != 2 {
		t.Errorf("count = %d, want 2", seq.Count)
	}
	if len(seq.Tools) != 2 || seq.Tools[0] != "Read" || seq.Tools[1] != "Edit" {
		t.Errorf("tools = %v", seq.Tools)
	}
}

func TestSequencesDoNotCrossSessions(t *testing.T) {
	stream := append(calls("s1", "Read", "Edit"), calls("s2", "Edit", "Bash")...)
	fs := &fakeStore{stream: stream}
	m := New(fs)

	got, err := m.Sequences(context.Background(), SequenceOptions{MinLen: 2, MaxLen: 2, MinCount: 1})
	if err != nil {
		t.Fatal(err)
	}
	for _, seq := range got {
		if seq.Key == "Edit → Edit" {
			t.Error("sequence crossed a session boundary")
		}
	}
	if len(got) != 2 {
		t.Errorf("got %d sequences, want 2: %+v", len(got), got)
	}
}

func TestSequencesStableTieBreak(t *testing.T) {
	// Both pairs occur twice; the one seen first must rank first.
	stream := calls("s1", "Grep", "Read", "Edit", "Bash", "Grep", "Read", "Edit", "Bash")
	fs := &fakeStore{stream: stream}
	m := New(fs)

	first, err := m.Sequences(context.Background(), SequenceOptions{MinLen: 2, MaxLen: 2, MinCount: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(first) == 0 || first[0].Key != "Grep → Read" {
		t.Fatalf("first sequence = %+v", first)
	}
	second, err := m.Sequences(context.Background(), SequenceOptions{MinLen: 2, MaxLen: 2, MinCount: 2})
	if err != nil {
		t.Fatal(err)
	}
	for i := range first {
		if first[i].Key != second[i].Key {
			t.Errorf("ranking not stable at %d: %q vs %q", i, first[i].Key, second[i].Key)
		}
	}
}

func TestSequencesRespectsMinCountAndLimit(t *testing.T) {
	stream := calls("s1", "Read", "Edit", "Read", "Edit", "Read", "Edit")
	fs := &fakeStore{stream: stream}
	m := New(fs)

	got, err := m.Sequences(context.Background(), SequenceOptions{MinLen: 2, MaxLen: 3, MinCount: 3, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d sequences, want 1", len(got))
	}
	if got[0].Key != "Read → Edit" || got[0].Count != 3 {
		t.Errorf("sequence = %+v", got[0])
	}
}

func TestSequencesEmptyStream(t *testing.T) {
	m := New(&fakeStore{})
	got, err := m.Sequences(context.Background(), SequenceOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d sequences from empty stream", len(got))
	}
}
