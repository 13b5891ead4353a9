package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/scbrown/session-lens/internal/gitlog"
	"github.com/scbrown/session-lens/internal/ingest"
	"github.com/scbrown/session-lens/internal/mine"
	"github.com/scbrown/session-lens/internal/model"
	"github.com/scbrown/session-lens/internal/store"
)

// Client talks to a running sl serve instance. Its method set mirrors
// the HTTP API one-to-one so CLI commands work identically against a
// local database or a remote server.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client pointing at the given base URL (e.g.,
// "http://localhost:7160").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *Client) Ingest(ctx context.Context, opts ingest.Options) (ingest.Result, error) {
	body := map[string]any{
		"roots":   opts.Roots,
		"days":    opts.Days,
		"project": opts.Project,
		"force":   opts.Force,
	}
	var res ingest.Result
	if err := c.postJSON(ctx, "/api/v1/ingest", body, &res); err != nil {
		return res, err
	}
	return res, nil
}

func (c *Client) UploadEntries(ctx context.Context, entries []json.RawMessage, projectPath string) (ingest.Result, error) {
	body := map[string]any{
		"project_path": projectPath,
		"entries":      entries,
	}
	var res ingest.Result
	if err := c.postJSON(ctx, "/api/v1/entries", body, &res); err != nil {
		return res, err
	}
	return res, nil
}

func (c *Client) GitIngest(ctx context.Context, repoPath, projectPath string, since time.Time) (gitlog.Result, error) {
	body := map[string]any{
		"repo_path":    repoPath,
		"project_path": projectPath,
	}
	if !since.IsZero() {
		body["since"] = since.UTC().Format(time.RFC3339)
	}
	var res gitlog.Result
	if err := c.postJSON(ctx, "/api/v1/git/ingest", body, &res); err != nil {
		return res, err
	}
	return res, nil
}

func (c *Client) Stats(ctx context.Context) (store.Stats, error) {
	var stats store.Stats
	if err := c.getJSON(ctx, "/api/v1/stats", nil, &stats); err != nil {
		return stats, err
	}
	return stats, nil
}

func (c *Client) Status(ctx context.Context) (Status, error) {
	var status Status
	if err := c.getJSON(ctx, "/api/v1/status", nil, &status); err != nil {
		return status, err
	}
	return status, nil
}

// Sync returns the newest event timestamp per session the server has
// stored, optionally filtered to the given session IDs. An uploader
// compares these against local transcripts to pick which entries to
// push.
func (c *Client) Sync(ctx context.Context, sessionIDs []string) (map[string]time.Time, error) {
	q := url.Values{}
	if len(sessionIDs) > 0 {
		q.Set("sessions", strings.Join(sessionIDs, ","))
	}
	var latest map[string]time.Time
	if err := c.getJSON(ctx, "/api/v1/sync", q, &latest); err != nil {
		return nil, err
	}
	return latest, nil
}

func (c *Client) Tools(ctx context.Context, opts store.CountOpts) ([]store.NameCount, error) {
	var counts []store.NameCount
	if err := c.getJSON(ctx, "/api/v1/tools", countQuery(opts), &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (c *Client) Commands(ctx context.Context, opts store.CommandOpts) ([]store.NameCount, error) {
	q := url.Values{}
	setSince(q, opts.Since)
	setStr(q, "project", opts.Project)
	setStr(q, "prefix", opts.Prefix)
	setInt(q, "threshold", opts.Threshold)
	setInt(q, "limit", opts.Limit)
	var counts []store.NameCount
	if err := c.getJSON(ctx, "/api/v1/commands", q, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (c *Client) Sequences(ctx context.Context, opts mine.SequenceOptions) ([]mine.Sequence, error) {
	q := url.Values{}
	setSince(q, opts.Since)
	setInt(q, "min_len", opts.MinLen)
	setInt(q, "max_len", opts.MaxLen)
	setInt(q, "min_count", opts.MinCount)
	setInt(q, "limit", opts.Limit)
	var seqs []mine.Sequence
	if err := c.getJSON(ctx, "/api/v1/sequences", q, &seqs); err != nil {
		return nil, err
	}
	return seqs, nil
}

func (c *Client) Gaps(ctx context.Context, opts mine.GapOptions) ([]mine.Gap, error) {
	q := url.Values{}
	setSince(q, opts.Since)
	setStr(q, "project", opts.Project)
	setInt(q, "threshold", opts.Threshold)
	setInt(q, "limit", opts.Limit)
	var gaps []mine.Gap
	if err := c.getJSON(ctx, "/api/v1/gaps", q, &gaps); err != nil {
		return nil, err
	}
	return gaps, nil
}

func (c *Client) Failures(ctx context.Context, opts mine.FailureOptions) ([]mine.FailureStat, error) {
	q := url.Values{}
	setSince(q, opts.Since)
	setStr(q, "project", opts.Project)
	setInt(q, "limit", opts.Limit)
	var stats []mine.FailureStat
	if err := c.getJSON(ctx, "/api/v1/failures", q, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *Client) Classify(ctx context.Context, since time.Time, project string) ([]mine.SessionClass, error) {
	q := url.Values{}
	setSince(q, since)
	setStr(q, "project", project)
	var classes []mine.SessionClass
	if err := c.getJSON(ctx, "/api/v1/classify", q, &classes); err != nil {
		return nil, err
	}
	return classes, nil
}

func (c *Client) Trends(ctx context.Context, windowDays int) (mine.TrendReport, error) {
	q := url.Values{}
	setInt(q, "days", windowDays)
	var report mine.TrendReport
	if err := c.getJSON(ctx, "/api/v1/trends", q, &report); err != nil {
		return report, err
	}
	return report, nil
}

func (c *Client) Sessions(ctx context.Context, opts store.SessionOpts) ([]model.Session, error) {
	q := url.Values{}
	setSince(q, opts.Since)
	setStr(q, "project", opts.Project)
	setInt(q, "limit", opts.Limit)
	var sessions []model.Session
	if err := c.getJSON(ctx, "/api/v1/sessions", q, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *Client) SessionCommits(ctx context.Context, sessionID string) ([]model.GitCommit, error) {
	var commits []model.GitCommit
	path := "/api/v1/sessions/" + url.PathEscape(sessionID) + "/commits"
	if err := c.getJSON(ctx, path, nil, &commits); err != nil {
		return nil, err
	}
	return commits, nil
}

func (c *Client) Parallel(ctx context.Context, opts mine.ParallelOptions) ([]mine.SessionOverlap, error) {
	q := url.Values{}
	setSince(q, opts.Since)
	setStr(q, "project", opts.Project)
	setInt(q, "min_overlap", int(opts.MinOverlap/time.Minute))
	setInt(q, "limit", opts.Limit)
	var overlaps []mine.SessionOverlap
	if err := c.getJSON(ctx, "/api/v1/parallel", q, &overlaps); err != nil {
		return nil, err
	}
	return overlaps, nil
}

func (c *Client) Tokens(ctx context.Context, opts store.TokenOpts) ([]store.TokenBucket, error) {
	q := url.Values{}
	setSince(q, opts.Since)
	setStr(q, "project", opts.Project)
	setStr(q, "by", opts.By)
	var buckets []store.TokenBucket
	if err := c.getJSON(ctx, "/api/v1/tokens", q, &buckets); err != nil {
		return nil, err
	}
	return buckets, nil
}

func (c *Client) Events(ctx context.Context, opts store.EventOpts) ([]model.Event, error) {
	q := url.Values{}
	setSince(q, opts.Start)
	setStr(q, "tool", opts.Tool)
	setStr(q, "project", opts.Project)
	setStr(q, "session", opts.SessionID)
	setStr(q, "entry_type", opts.EntryType)
	if opts.ErrorsOnly {
		q.Set("errors_only", "true")
	}
	if opts.ToolsOnly {
		q.Set("tools_only", "true")
	}
	if opts.Ascending {
		q.Set("ascending", "true")
	}
	setInt(q, "min_size", int(opts.MinResultSize))
	setInt(q, "limit", opts.Limit)
	var events []model.Event
	if err := c.getJSON(ctx, "/api/v1/events", q, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) Files(ctx context.Context, opts store.CountOpts) ([]store.FileCount, error) {
	var files []store.FileCount
	if err := c.getJSON(ctx, "/api/v1/files", countQuery(opts), &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (c *Client) Insights(ctx context.Context, compute bool, since time.Time) (mine.Insights, error) {
	q := url.Values{}
	if compute {
		q.Set("compute", "true")
	}
	setSince(q, since)
	var ins mine.Insights
	if err := c.getJSON(ctx, "/api/v1/insights", q, &ins); err != nil {
		return ins, err
	}
	return ins, nil
}

// Close is a no-op; the Client holds no persistent connection.
func (c *Client) Close() error { return nil }

func countQuery(opts store.CountOpts) url.Values {
	q := url.Values{}
	setSince(q, opts.Since)
	setStr(q, "project", opts.Project)
	setInt(q, "limit", opts.Limit)
	return q
}

func setSince(q url.Values, t time.Time) {
	if !t.IsZero() {
		q.Set("since", t.UTC().Format(time.RFC3339))
	}
}

func setStr(q url.Values, key, val string) {
	if val != "" {
		q.Set(key, val)
	}
}

func setInt(q url.Values, key string, val int) {
	if val > 0 {
		q.Set(key, strconv.Itoa(val))
	}
}

// getJSON performs a GET request and decodes the JSON response into dst.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dst any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("remote request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return remoteError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// postJSON performs a POST request with a JSON body and optionally decodes the response.
func (c *Client) postJSON(ctx context.Context, path string, body any, dst any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("remote request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return remoteError(resp)
	}
	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// remoteError reads an error response from the server and returns it as an error.
func remoteError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return fmt.Errorf("remote server (%d): %s", resp.StatusCode, errResp.Error)
	}
	return fmt.Errorf("remote server (%d): %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}
