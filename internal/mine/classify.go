package mine

import (
	"context"
	"time"

	"github.com/scbrown/session-lens/internal/store"
)

// Classification labels for session work styles.
const (
	ClassDebugging   = "debugging"
	ClassDevelopment = "development"
	ClassResearch    = "research"
	ClassMaintenance = "maintenance"
	ClassMixed       = "mixed"
)

// SessionClass is one classified session with the signals behind the
// label.
type SessionClass struct {
	SessionID      string    `json:"session_id"`
	ProjectPath    string    `json:"project_path"`
	FirstSeen      time.Time `json:"first_seen"`
	LastSeen       time.Time `json:"last_seen"`
	Classification string    `json:"classification"`
	ToolCalls      int       `json:"tool_calls"`
	Errors         int       `json:"errors"`
	Edits          int       `json:"edits"`
	Reads          int       `json:"reads"`
	Searches       int       `json:"searches"`
	Commands       int       `json:"commands"`
}

// Classify labels each session since the cutoff by its dominant
// activity mix. The rules are deterministic, so re-running over the
// same events always yields the same labels.
func (m *Miner) Classify(ctx context.Context, since time.Time, project string) ([]SessionClass, error) {
	signals, err := m.store.SessionSignals(ctx, since, project)
	if err != nil {
		return nil, err
	}

	classes := make([]SessionClass, 0, len(signals))
	for _, s := range signals {
		classes = append(classes, SessionClass{
			SessionID:      s.SessionID,
			ProjectPath:    s.ProjectPath,
			FirstSeen:      s.FirstSeen,
			LastSeen:       s.LastSeen,
			Classification: classify(s),
			ToolCalls:      s.ToolCalls,
			Errors:         s.Errors,
			Edits:          s.Edits,
			Reads:          s.Reads,
			Searches:       s.Searches,
			Commands:       s.Commands,
		})
	}
	return classes, nil
}

// classify applies the labeling rules in priority order. Error-heavy
// editing reads as debugging before plain development; sessions with
// no tool calls carry no signal and stay mixed.
func classify(s store.SessionSignal) string {
	if s.ToolCalls == 0 {
		return ClassMixed
	}
	total := float64(s.ToolCalls)
	errorRate := float64(s.Errors) / total
	editRatio := float64(s.Edits) / total
	readRatio := float64(s.Reads) / total
	searchRatio := float64(s.Searches) / total
	bashRatio := float64(s.Commands) / total

	switch {
	case errorRate >= 0.25 && editRatio >= 0.2:
		return ClassDebugging
	case editRatio >= 0.4:
		return ClassDevelopment
	case readRatio+searchRatio >= 0.6 && editRatio < 0.1:
		return ClassResearch
	case bashRatio >= 0.5 && editRatio < 0.2:
		return ClassMaintenance
	default:
		return ClassMixed
	}
}
