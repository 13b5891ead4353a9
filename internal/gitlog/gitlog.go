// Package gitlog reads commit history from local repositories and
// correlates commits with the sessions that were active when they
// were made.
package gitlog

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/scbrown/session-lens/internal/model"
	"github.com/scbrown/session-lens/internal/store"
)

// CommitReader yields commit history for a repository. The exec-based
// implementation shells out to git; tests substitute a fake.
type CommitReader interface {
	Commits(ctx context.Context, repoPath string, since time.Time) ([]model.GitCommit, error)
}

// Field and record separators for the git log pretty format. Unit
// separator keeps commit subjects with embedded newlines impossible
// and record separator delimits commits.
const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

// GitReader reads history by running the git binary.
type GitReader struct{}

// Commits runs git log in repoPath and parses one commit per record,
// counting changed files from the --name-only listing.
func (GitReader) Commits(ctx context.Context, repoPath string, since time.Time) ([]model.GitCommit, error) {
	args := []string{
		"-C", repoPath, "log",
		"--pretty=format:" + recordSep + "%H" + fieldSep + "%an" + fieldSep + "%aI" + fieldSep + "%s",
		"--name-only",
	}
	if !since.IsZero() {
		args = append(args, "--since="+since.Format(time.RFC3339))
	}

	out, err := exec.CommandContext(ctx, "git", args...).Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("git log in %s: %s", repoPath, strings.TrimSpace(string(ee.Stderr)))
		}
		return nil, fmt.Errorf("git log in %s: %w", repoPath, err)
	}
	return parseLog(string(out))
}

func parseLog(out string) ([]model.GitCommit, error) {
	var commits []model.GitCommit
	for _, rec := range strings.Split(out, recordSep) {
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		head, rest, _ := strings.Cut(rec, "\n")
		parts := strings.SplitN(head, fieldSep, 4)
		if len(parts) != 4 {
			return nil, fmt.Errorf("malformed log record %q", head)
		}
		ts, err := time.Parse(time.RFC3339, parts[2])
		if err != nil {
			return nil, fmt.Errorf("commit %s: bad author date %q", parts[0], parts[2])
		}
		files := 0
		for _, line := range strings.Split(rest, "\n") {
			if strings.TrimSpace(line) != "" {
				files++
			}
		}
		commits = append(commits, model.GitCommit{
			Hash:         parts[0],
			Author:       parts[1],
			Timestamp:    ts,
			Message:      parts[3],
			FilesChanged: files,
		})
	}
	return commits, nil
}

// Result summarizes a history ingestion run.
type Result struct {
	CommitsFound int `json:"commits_found"`
	CommitsAdded int `json:"commits_added"`
	Correlated   int `json:"correlated"`
	Uncorrelated int `json:"uncorrelated"`
}

// Ingest reads history from repoPath, stores the commits under
// projectPath, and correlates new commits with sessions. Commits
// deduplicate on hash, so re-running over the same history only adds
// what is new.
func Ingest(ctx context.Context, s store.Store, r CommitReader, repoPath, projectPath string, since time.Time) (Result, error) {
	var res Result
	commits, err := r.Commits(ctx, repoPath, since)
	if err != nil {
		return res, err
	}
	res.CommitsFound = len(commits)

	for i := range commits {
		commits[i].ProjectPath = projectPath
	}
	added, err := s.AddCommits(ctx, commits)
	if err != nil {
		return res, fmt.Errorf("store commits: %w", err)
	}
	res.CommitsAdded = added

	matched, remaining, err := Correlate(ctx, s, since)
	if err != nil {
		return res, err
	}
	res.Correlated = matched
	res.Uncorrelated = remaining
	return res, nil
}

// Correlate assigns sessions to commits that have none. A commit
// matches a session in the same project whose active interval contains
// the commit time; among several the session whose last activity is
// nearest the commit wins. Already-correlated commits are never
// reassigned. Returns how many commits were matched and how many
// remain unmatched.
func Correlate(ctx context.Context, s store.Store, since time.Time) (int, int, error) {
	commits, err := s.UncorrelatedCommits(ctx, since)
	if err != nil {
		return 0, 0, err
	}
	if len(commits) == 0 {
		return 0, 0, nil
	}

	sessions, err := s.ListSessions(ctx, store.SessionOpts{})
	if err != nil {
		return 0, 0, err
	}

	matched := 0
	for _, c := range commits {
		best := matchSession(c, sessions)
		if best == "" {
			continue
		}
		if err := s.SetCommitSession(ctx, c.Hash, best); err != nil {
			return matched, 0, fmt.Errorf("correlate %s: %w", c.Hash, err)
		}
		matched++
	}
	return matched, len(commits) - matched, nil
}

func matchSession(c model.GitCommit, sessions []model.Session) string {
	var bestID string
	var bestGap time.Duration
	for _, sess := range sessions {
		if sess.ProjectPath != c.ProjectPath {
			continue
		}
		if c.Timestamp.Before(sess.FirstSeen) || c.Timestamp.After(sess.LastSeen) {
			continue
		}
		gap := sess.LastSeen.Sub(c.Timestamp)
		if bestID == "" || gap < bestGap {
			bestID, bestGap = sess.ID, gap
		}
	}
	return bestID
}
