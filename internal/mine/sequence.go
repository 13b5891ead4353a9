package mine

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Sequence is a recurring run of consecutive tool calls. Key joins
// the tool names for display and pattern caching.
type Sequence struct {
	Tools []string `json:"tools"`
	Key   string   `json:"key"`
	Count int      `json:"count"`
}

// SequenceOptions controls sequence mining.
type SequenceOptions struct {
	Since    time.Time
	MinLen   int // Shortest n-gram; 0 means 2.
	MaxLen   int // Longest n-gram; 0 means 4.
	MinCount int // Minimum occurrences to report; 0 means 2.
	Limit    int // Maximum sequences returned; 0 means no limit.
}

const sequenceSeparator = " → "

// Sequences mines n-grams of consecutive tool calls. Windows never
// cross a session boundary. Results sort by count descending; ties
// keep the order the sequence first occurred in the stream, so
// repeated runs over the same data return the same ranking.
func (m *Miner) Sequences(ctx context.Context, opts SequenceOptions) ([]Sequence, error) {
	minLen := opts.MinLen
	if minLen <= 0 {
		minLen = 2
	}
	maxLen := opts.MaxLen
	if maxLen < minLen {
		maxLen = minLen + 2
	}
	minCount := opts.MinCount
	if minCount <= 0 {
		minCount = 2
	}

	stream, err := m.store.ToolStream(ctx, opts.Since)
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	var order []string
	tools := map[string][]string{}

	flush := func(session []string) {
		for n := minLen; n <= maxLen; n++ {
			for i := 0; i+n <= len(session); i++ {
				gram := session[i : i+n]
				key := strings.Join(gram, sequenceSeparator)
				if _, seen := counts[key]; !seen {
					order = append(order, key)
					tools[key] = append([]string(nil), gram...)
				}
				counts[key]++
			}
		}
	}

	var current []string
	currentSession := ""
	for _, call := range stream {
		if call.SessionID != currentSession {
			flush(current)
			current = current[:0]
			currentSession = call.SessionID
		}
		current = append(current, call.ToolName)
	}
	flush(current)

	var results []Sequence
	for _, key := range order {
		if counts[key] < minCount {
			continue
		}
		results = append(results, Sequence{Tools: tools[key], Key: key, Count: counts[key]})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Count > results[j].Count
	})
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}
