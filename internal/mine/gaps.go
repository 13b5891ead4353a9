package mine

import (
	"context"
	"fmt"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/scbrown/session-lens/internal/store"
)

// Gap is a frequently used Bash command with no matching allow rule.
type Gap struct {
	Command        string `json:"command"`
	Count          int    `json:"count"`
	Suggestion     string `json:"suggestion"`
	ClosestAllowed string `json:"closest_allowed,omitempty"`
}

// GapOptions controls permission gap detection.
type GapOptions struct {
	Since        time.Time
	Project      string
	Threshold    int    // Minimum uses before a command is flagged; 0 means 5.
	SettingsPath string // Claude settings file; empty means the default location.
	Limit        int
}

// Proposed rules only annotate a near-miss when an existing rule is
// this close or closer in edit distance.
const maxAnnotationDistance = 4

// Gaps flags Bash commands used at least Threshold times that no
// permission rule covers, each with a ready-to-paste allow rule. When
// an existing rule is nearly the same text, it is attached so a typo
// in the rule is visible at a glance.
func (m *Miner) Gaps(ctx context.Context, opts GapOptions) ([]Gap, error) {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = 5
	}

	counts, err := m.store.CommandCounts(ctx, store.CommandOpts{
		Since:     opts.Since,
		Project:   opts.Project,
		Threshold: threshold,
	})
	if err != nil {
		return nil, err
	}

	allow := LoadAllowList(opts.SettingsPath)

	var gaps []Gap
	for _, c := range counts {
		if allow.CoversHead(c.Name) {
			continue
		}
		g := Gap{
			Command:    c.Name,
			Count:      c.Count,
			Suggestion: fmt.Sprintf("Bash(%s:*)", c.Name),
		}
		g.ClosestAllowed = closestSpec(c.Name, allow.Specs())
		gaps = append(gaps, g)
		if opts.Limit > 0 && len(gaps) >= opts.Limit {
			break
		}
	}
	return gaps, nil
}

// closestSpec returns the allow rule nearest to the command by edit
// distance, or empty when nothing is close enough to be a plausible
// near-miss.
func closestSpec(command string, specs []string) string {
	best := ""
	bestDist := maxAnnotationDistance + 1
	for _, spec := range specs {
		if d := levenshtein.ComputeDistance(command, spec); d < bestDist {
			best, bestDist = spec, d
		}
	}
	return best
}
