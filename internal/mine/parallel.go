package mine

import (
	"context"
	"sort"
	"time"

	"github.com/scbrown/session-lens/internal/store"
)

// SessionOverlap is one pair of sessions that were active at the same
// time. Start and End bound the shared window.
type SessionOverlap struct {
	SessionA       string    `json:"session_a"`
	SessionB       string    `json:"session_b"`
	ProjectA       string    `json:"project_a,omitempty"`
	ProjectB       string    `json:"project_b,omitempty"`
	Start          time.Time `json:"overlap_start"`
	End            time.Time `json:"overlap_end"`
	OverlapMinutes float64   `json:"overlap_minutes"`
	SameProject    bool      `json:"same_project"`
}

// ParallelOptions controls parallel-session detection.
type ParallelOptions struct {
	Since      time.Time
	Project    string
	MinOverlap time.Duration // Shortest overlap to report; 0 means 5m.
	Limit      int
}

// ParallelSessions finds pairs of sessions whose activity windows
// [first_seen, last_seen] overlap by at least MinOverlap. Pairs sort
// by overlap length descending so the heaviest multitasking surfaces
// first.
func (m *Miner) ParallelSessions(ctx context.Context, opts ParallelOptions) ([]SessionOverlap, error) {
	minOverlap := opts.MinOverlap
	if minOverlap <= 0 {
		minOverlap = 5 * time.Minute
	}

	sessions, err := m.store.ListSessions(ctx, store.SessionOpts{
		Since:   opts.Since,
		Project: opts.Project,
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].FirstSeen.Before(sessions[j].FirstSeen)
	})

	var overlaps []SessionOverlap
	for i, a := range sessions {
		for _, b := range sessions[i+1:] {
			// Sessions are ordered by start; once b starts after a
			// ends, no later session overlaps a either.
			if !b.FirstSeen.Before(a.LastSeen) {
				break
			}
			start := a.FirstSeen
			if b.FirstSeen.After(start) {
				start = b.FirstSeen
			}
			end := a.LastSeen
			if b.LastSeen.Before(end) {
				end = b.LastSeen
			}
			d := end.Sub(start)
			if d < minOverlap {
				continue
			}
			overlaps = append(overlaps, SessionOverlap{
				SessionA:       a.ID,
				SessionB:       b.ID,
				ProjectA:       a.ProjectPath,
				ProjectB:       b.ProjectPath,
				Start:          start,
				End:            end,
				OverlapMinutes: d.Minutes(),
				SameProject:    a.ProjectPath == b.ProjectPath,
			})
		}
	}

	sort.SliceStable(overlaps, func(i, j int) bool {
		return overlaps[i].OverlapMinutes > overlaps[j].OverlapMinutes
	})
	if opts.Limit > 0 && len(overlaps) > opts.Limit {
		overlaps = overlaps[:opts.Limit]
	}
	return overlaps, nil
}
