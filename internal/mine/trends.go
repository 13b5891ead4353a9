package mine

import (
	"context"
	"time"

	"github.com/scbrown/session-lens/internal/store"
)

// Trend compares one metric across the current and previous windows.
// ChangePct is nil when the previous window had no activity for the
// metric, since a percentage change from zero is undefined.
type Trend struct {
	Metric    string   `json:"metric"`
	Current   int64    `json:"current"`
	Previous  int64    `json:"previous"`
	ChangePct *float64 `json:"change_pct"`
}

// TrendReport holds the window boundaries alongside the comparisons.
type TrendReport struct {
	WindowDays    int       `json:"window_days"`
	CurrentStart  time.Time `json:"current_start"`
	PreviousStart time.Time `json:"previous_start"`
	Trends        []Trend   `json:"trends"`
}

// Trends compares activity in the last windowDays against the
// windowDays before that.
func (m *Miner) Trends(ctx context.Context, windowDays int) (TrendReport, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	now := time.Now().UTC()
	currentStart := now.AddDate(0, 0, -windowDays)
	previousStart := currentStart.AddDate(0, 0, -windowDays)

	report := TrendReport{
		WindowDays:    windowDays,
		CurrentStart:  currentStart,
		PreviousStart: previousStart,
	}

	current, err := m.store.WindowMetrics(ctx, currentStart, now)
	if err != nil {
		return report, err
	}
	previous, err := m.store.WindowMetrics(ctx, previousStart, currentStart)
	if err != nil {
		return report, err
	}

	report.Trends = compareMetrics(current, previous)
	return report, nil
}

func compareMetrics(current, previous store.Metrics) []Trend {
	rows := []struct {
		name     string
		cur, prv int64
	}{
		{"events", int64(current.Events), int64(previous.Events)},
		{"tool_calls", int64(current.ToolCalls), int64(previous.ToolCalls)},
		{"errors", int64(current.Errors), int64(previous.Errors)},
		{"sessions", int64(current.Sessions), int64(previous.Sessions)},
		{"compactions", int64(current.Compactions), int64(previous.Compactions)},
		{"input_tokens", current.InputTokens, previous.InputTokens},
		{"output_tokens", current.OutputTokens, previous.OutputTokens},
	}

	trends := make([]Trend, 0, len(rows))
	for _, r := range rows {
		t := Trend{Metric: r.name, Current: r.cur, Previous: r.prv}
		if r.prv != 0 {
			pct := 100 * float64(r.cur-r.prv) / float64(r.prv)
			t.ChangePct = &pct
		}
		trends = append(trends, t)
	}
	return trends
}
