package mine

import (
	"context"
	"testing"

	"github.com/scbrown/session-lens/internal/store"
)

func TestTrendsComparesWindows(t *testing.T) {
	fs := &fakeStore{
		currentWin:  store.Metrics{Events: 200, ToolCalls: 80, Errors: 4, Sessions: 6, InputTokens: 5000, OutputTokens: 1500},
		previousWin: store.Metrics{Events: 100, ToolCalls: 100, Errors: 0, Sessions: 6, InputTokens: 2500, OutputTokens: 1500},
	}
	m := New(fs)

	report, err := m.Trends(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if report.WindowDays != 7 {
		t.Errorf("window days = %d", report.WindowDays)
	}

	byMetric := map[string]Trend{}
	for _, tr := range report.Trends {
		byMetric[tr.Metric] = tr
	}

	events := byMetric["events"]
	if events.Current != 200 || events.Previous != 100 {
		t.Errorf("events = %+v", events)
	}
	if events.ChangePct == nil || *events.ChangePct != 100 {
		t.Errorf("events change = %v, want 100", events.ChangePct)
	}

	tools := byMetric["tool_calls"]
	if tools.ChangePct == nil || *tools.ChangePct != -20 {
		t.Errorf("tool_calls change = %v, want -20", tools.ChangePct)
	}

	// Errors went from zero: percentage change is undefined, not infinite.
	errors := byMetric["errors"]
	if errors.Current != 4 || errors.Previous != 0 {
		t.Errorf("errors = %+v", errors)
	}
	if errors.ChangePct != nil {
		t.Errorf("errors change = %v, want nil", *errors.ChangePct)
	}

	sessions := byMetric["sessions"]
	if sessions.ChangePct == nil || *sessions.ChangePct != 0 {
		t.Errorf("sessions change = %v, want 0", sessions.ChangePct)
	}
}

func TestTrendsDefaultWindow(t *testing.T) {
	fs := &fakeStore{}
	report, err := New(fs).Trends(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if report.WindowDays != 7 {
		t.Errorf("default window = %d, want 7", report.WindowDays)
	}
	if len(report.Trends) == 0 {
		t.Error("no trend rows")
	}
	for _, tr := range report.Trends {
		if tr.ChangePct != nil {
			t.Errorf("%s: change = %v, want nil for empty windows", tr.Metric, *tr.ChangePct)
		}
	}
}
