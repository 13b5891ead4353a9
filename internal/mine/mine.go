// Package mine derives usage patterns from stored events: tool and
// command frequencies, repeated tool sequences, permission gaps,
// failure hotspots, session classification, and trend comparisons.
package mine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/scbrown/session-lens/internal/model"
	"github.com/scbrown/session-lens/internal/store"
)

// Miner computes patterns against a store.
type Miner struct {
	store store.Store
}

// New returns a Miner reading from s.
func New(s store.Store) *Miner {
	return &Miner{store: s}
}

// ToolFrequency returns tool_use counts by tool name, most used first.
func (m *Miner) ToolFrequency(ctx context.Context, opts store.CountOpts) ([]store.NameCount, error) {
	return m.store.ToolCounts(ctx, opts)
}

// CommandFrequency returns Bash command counts by command head.
func (m *Miner) CommandFrequency(ctx context.Context, opts store.CommandOpts) ([]store.NameCount, error) {
	return m.store.CommandCounts(ctx, opts)
}

// Insights is the combined analysis bundle cached in the pattern
// table and served as a single overview.
type Insights struct {
	ComputedAt time.Time        `json:"computed_at"`
	Tools      []store.NameCount `json:"tools"`
	Commands   []store.NameCount `json:"commands"`
	Sequences  []Sequence        `json:"sequences"`
	Gaps       []Gap             `json:"gaps"`
}

// InsightOptions bounds the combined computation.
type InsightOptions struct {
	Since        time.Time
	Limit        int // Per-section result cap; 0 means defaultInsightLimit.
	MinCount     int // Sequence support floor.
	GapThreshold int // Command uses before a missing allow rule is flagged.
	SettingsPath string
}

const defaultInsightLimit = 20

// ComputeInsights runs every pattern computation over one window and
// replaces the cached pattern rows with the fresh results. The cache
// is cleared first so stale rows from earlier windows never linger.
func (m *Miner) ComputeInsights(ctx context.Context, opts InsightOptions) (Insights, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultInsightLimit
	}

	ins := Insights{ComputedAt: time.Now().UTC()}

	var err error
	ins.Tools, err = m.ToolFrequency(ctx, store.CountOpts{Since: opts.Since, Limit: limit})
	if err != nil {
		return ins, err
	}
	ins.Commands, err = m.CommandFrequency(ctx, store.CommandOpts{Since: opts.Since, Limit: limit})
	if err != nil {
		return ins, err
	}
	ins.Sequences, err = m.Sequences(ctx, SequenceOptions{
		Since:    opts.Since,
		MinCount: opts.MinCount,
		Limit:    limit,
	})
	if err != nil {
		return ins, err
	}
	ins.Gaps, err = m.Gaps(ctx, GapOptions{
		Since:        opts.Since,
		Threshold:    opts.GapThreshold,
		SettingsPath: opts.SettingsPath,
		Limit:        limit,
	})
	if err != nil {
		return ins, err
	}

	if err := m.cacheInsights(ctx, ins); err != nil {
		return ins, err
	}
	return ins, nil
}

// CachedInsights reads the last computed bundle back out of the
// pattern table. Sections missing from the cache come back empty.
func (m *Miner) CachedInsights(ctx context.Context) (Insights, error) {
	var ins Insights

	tools, err := m.store.GetPatterns(ctx, model.PatternToolFrequency)
	if err != nil {
		return ins, err
	}
	for _, p := range tools {
		ins.Tools = append(ins.Tools, store.NameCount{Name: p.Key, Count: p.Count})
		ins.ComputedAt = p.ComputedAt
	}

	commands, err := m.store.GetPatterns(ctx, model.PatternCommandFrequency)
	if err != nil {
		return ins, err
	}
	for _, p := range commands {
		ins.Commands = append(ins.Commands, store.NameCount{Name: p.Key, Count: p.Count})
	}

	sequences, err := m.store.GetPatterns(ctx, model.PatternToolSequence)
	if err != nil {
		return ins, err
	}
	for _, p := range sequences {
		seq := Sequence{Key: p.Key, Count: p.Count}
		if len(p.Metadata) > 0 {
			var meta struct {
				Tools []string `json:"tools"`
			}
			if json.Unmarshal(p.Metadata, &meta) == nil {
				seq.Tools = meta.Tools
			}
		}
		ins.Sequences = append(ins.Sequences, seq)
	}

	gaps, err := m.store.GetPatterns(ctx, model.PatternPermissionGap)
	if err != nil {
		return ins, err
	}
	for _, p := range gaps {
		g := Gap{Command: p.Key, Count: p.Count}
		if len(p.Metadata) > 0 {
			var meta struct {
				Suggestion     string `json:"suggestion"`
				ClosestAllowed string `json:"closest_allowed,omitempty"`
			}
			if json.Unmarshal(p.Metadata, &meta) == nil {
				g.Suggestion = meta.Suggestion
				g.ClosestAllowed = meta.ClosestAllowed
			}
		}
		ins.Gaps = append(ins.Gaps, g)
	}

	return ins, nil
}

// cacheInsights replaces the pattern table contents with the bundle.
func (m *Miner) cacheInsights(ctx context.Context, ins Insights) error {
	if err := m.store.ClearPatterns(ctx); err != nil {
		return err
	}
	now := ins.ComputedAt

	for _, t := range ins.Tools {
		p := model.Pattern{Type: model.PatternToolFrequency, Key: t.Name, Count: t.Count, ComputedAt: now}
		if err := m.store.UpsertPattern(ctx, p); err != nil {
			return err
		}
	}
	for _, c := range ins.Commands {
		p := model.Pattern{Type: model.PatternCommandFrequency, Key: c.Name, Count: c.Count, ComputedAt: now}
		if err := m.store.UpsertPattern(ctx, p); err != nil {
			return err
		}
	}
	for _, s := range ins.Sequences {
		meta, err := json.Marshal(map[string]any{"tools": s.Tools})
		if err != nil {
			return err
		}
		p := model.Pattern{Type: model.PatternToolSequence, Key: s.Key, Count: s.Count, Metadata: meta, ComputedAt: now}
		if err := m.store.UpsertPattern(ctx, p); err != nil {
			return err
		}
	}
	for _, g := range ins.Gaps {
		meta, err := json.Marshal(map[string]any{
			"suggestion":      g.Suggestion,
			"closest_allowed": g.ClosestAllowed,
		})
		if err != nil {
			return err
		}
		p := model.Pattern{Type: model.PatternPermissionGap, Key: g.Command, Count: g.Count, Metadata: meta, ComputedAt: now}
		if err := m.store.UpsertPattern(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
