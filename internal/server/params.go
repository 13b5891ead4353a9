package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/scbrown/session-lens/internal/mine"
	"github.com/scbrown/session-lens/internal/store"
)

// parseSince extracts a "since" query parameter as a time.Time.
// Accepts RFC3339 timestamps or duration shorthand (e.g., "24h", "7d").
func parseSince(r *http.Request) (time.Time, error) {
	s := r.URL.Query().Get("since")
	if s == "" {
		return time.Time{}, nil
	}
	// Try RFC3339 first.
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	// Try duration shorthand: "7d", "24h", etc.
	if len(s) > 1 {
		numStr := s[:len(s)-1]
		unit := s[len(s)-1]
		if n, err := strconv.Atoi(numStr); err == nil {
			switch unit {
			case 'h':
				return time.Now().UTC().Add(-time.Duration(n) * time.Hour), nil
			case 'd':
				return time.Now().UTC().Add(-time.Duration(n) * 24 * time.Hour), nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("invalid since value %q: expected RFC3339 timestamp or duration (e.g., 24h, 7d)", s)
}

func parseInt(r *http.Request, key string) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, s, err)
	}
	return n, nil
}

func parseBool(r *http.Request, key string) bool {
	s := r.URL.Query().Get(key)
	return s == "true" || s == "1"
}

func parseCountOpts(r *http.Request) (store.CountOpts, error) {
	since, err := parseSince(r)
	if err != nil {
		return store.CountOpts{}, err
	}
	limit, err := parseInt(r, "limit")
	if err != nil {
		return store.CountOpts{}, err
	}
	return store.CountOpts{
		Since:   since,
		Project: r.URL.Query().Get("project"),
		Limit:   limit,
	}, nil
}

func parseCommandOpts(r *http.Request) (store.CommandOpts, error) {
	since, err := parseSince(r)
	if err != nil {
		return store.CommandOpts{}, err
	}
	threshold, err := parseInt(r, "threshold")
	if err != nil {
		return store.CommandOpts{}, err
	}
	limit, err := parseInt(r, "limit")
	if err != nil {
		return store.CommandOpts{}, err
	}
	return store.CommandOpts{
		Since:     since,
		Project:   r.URL.Query().Get("project"),
		Prefix:    r.URL.Query().Get("prefix"),
		Threshold: threshold,
		Limit:     limit,
	}, nil
}

func parseParallelOpts(r *http.Request) (mine.ParallelOptions, error) {
	since, err := parseSince(r)
	if err != nil {
		return mine.ParallelOptions{}, err
	}
	minOverlap, err := parseInt(r, "min_overlap")
	if err != nil {
		return mine.ParallelOptions{}, err
	}
	limit, err := parseInt(r, "limit")
	if err != nil {
		return mine.ParallelOptions{}, err
	}
	return mine.ParallelOptions{
		Since:      since,
		Project:    r.URL.Query().Get("project"),
		MinOverlap: time.Duration(minOverlap) * time.Minute,
		Limit:      limit,
	}, nil
}

func parseSequenceOpts(r *http.Request) (mine.SequenceOptions, error) {
	since, err := parseSince(r)
	if err != nil {
		return mine.SequenceOptions{}, err
	}
	minLen, err := parseInt(r, "min_len")
	if err != nil {
		return mine.SequenceOptions{}, err
	}
	maxLen, err := parseInt(r, "max_len")
	if err != nil {
		return mine.SequenceOptions{}, err
	}
	minCount, err := parseInt(r, "min_count")
	if err != nil {
		return mine.SequenceOptions{}, err
	}
	limit, err := parseInt(r, "limit")
	if err != nil {
		return mine.SequenceOptions{}, err
	}
	return mine.SequenceOptions{
		Since:    since,
		MinLen:   minLen,
		MaxLen:   maxLen,
		MinCount: minCount,
		Limit:    limit,
	}, nil
}

func parseGapOpts(r *http.Request) (mine.GapOptions, error) {
	since, err := parseSince(r)
	if err != nil {
		return mine.GapOptions{}, err
	}
	threshold, err := parseInt(r, "threshold")
	if err != nil {
		return mine.GapOptions{}, err
	}
	limit, err := parseInt(r, "limit")
	if err != nil {
		return mine.GapOptions{}, err
	}
	return mine.GapOptions{
		Since:     since,
		Project:   r.URL.Query().Get("project"),
		Threshold: threshold,
		Limit:     limit,
	}, nil
}

func parseFailureOpts(r *http.Request) (mine.FailureOptions, error) {
	since, err := parseSince(r)
	if err != nil {
		return mine.FailureOptions{}, err
	}
	limit, err := parseInt(r, "limit")
	if err != nil {
		return mine.FailureOptions{}, err
	}
	return mine.FailureOptions{
		Since:   since,
		Project: r.URL.Query().Get("project"),
		Limit:   limit,
	}, nil
}

func parseSessionOpts(r *http.Request) (store.SessionOpts, error) {
	since, err := parseSince(r)
	if err != nil {
		return store.SessionOpts{}, err
	}
	limit, err := parseInt(r, "limit")
	if err != nil {
		return store.SessionOpts{}, err
	}
	return store.SessionOpts{
		Since:   since,
		Project: r.URL.Query().Get("project"),
		Limit:   limit,
	}, nil
}

func parseTokenOpts(r *http.Request) (store.TokenOpts, error) {
	since, err := parseSince(r)
	if err != nil {
		return store.TokenOpts{}, err
	}
	by := r.URL.Query().Get("by")
	if by == "" {
		by = "day"
	}
	switch by {
	case "day", "session", "model":
	default:
		return store.TokenOpts{}, fmt.Errorf("invalid by value %q: use day, session, or model", by)
	}
	return store.TokenOpts{
		Since:   since,
		Project: r.URL.Query().Get("project"),
		By:      by,
	}, nil
}

func parseEventOpts(r *http.Request) (store.EventOpts, error) {
	start, err := parseSince(r)
	if err != nil {
		return store.EventOpts{}, err
	}
	limit, err := parseInt(r, "limit")
	if err != nil {
		return store.EventOpts{}, err
	}
	minSize, err := parseInt(r, "min_size")
	if err != nil {
		return store.EventOpts{}, err
	}
	return store.EventOpts{
		Start:         start,
		Tool:          r.URL.Query().Get("tool"),
		Project:       r.URL.Query().Get("project"),
		SessionID:     r.URL.Query().Get("session"),
		EntryType:     r.URL.Query().Get("entry_type"),
		ErrorsOnly:    parseBool(r, "errors_only"),
		ToolsOnly:     parseBool(r, "tools_only"),
		MinResultSize: int64(minSize),
		Ascending:     parseBool(r, "ascending"),
		Limit:         limit,
	}, nil
}
