// Package server provides an HTTP server that exposes ingestion and
// pattern queries over JSON, enabling remote access to session-lens
// data.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/scbrown/session-lens/internal/gitlog"
	"github.com/scbrown/session-lens/internal/ingest"
	"github.com/scbrown/session-lens/internal/mine"
	"github.com/scbrown/session-lens/internal/model"
	"github.com/scbrown/session-lens/internal/store"
)

// Options configures server-side ingestion defaults.
type Options struct {
	Roots        []string // Log roots scanned by POST /api/v1/ingest.
	SettingsPath string   // Claude settings file for gap analysis.
	GitReader    gitlog.CommitReader
}

// Server wraps a store.Store and exposes it over HTTP.
type Server struct {
	store store.Store
	coord *ingest.Coordinator
	miner *mine.Miner
	opts  Options
	mux   *http.ServeMux
	srv   *http.Server
}

// New creates a Server that delegates to the given store.
func New(s store.Store, opts Options) *Server {
	if opts.GitReader == nil {
		opts.GitReader = gitlog.GitReader{}
	}
	srv := &Server{
		store: s,
		coord: ingest.New(s),
		miner: mine.New(s),
		opts:  opts,
		mux:   http.NewServeMux(),
	}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/v1/ingest", s.handleIngest)
	s.mux.HandleFunc("POST /api/v1/entries", s.handleEntries)
	s.mux.HandleFunc("POST /api/v1/git/ingest", s.handleGitIngest)
	s.mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/v1/sync", s.handleSync)
	s.mux.HandleFunc("GET /api/v1/stats", s.handleStats)
	s.mux.HandleFunc("GET /api/v1/tools", s.handleTools)
	s.mux.HandleFunc("GET /api/v1/commands", s.handleCommands)
	s.mux.HandleFunc("GET /api/v1/sequences", s.handleSequences)
	s.mux.HandleFunc("GET /api/v1/gaps", s.handleGaps)
	s.mux.HandleFunc("GET /api/v1/failures", s.handleFailures)
	s.mux.HandleFunc("GET /api/v1/classify", s.handleClassify)
	s.mux.HandleFunc("GET /api/v1/trends", s.handleTrends)
	s.mux.HandleFunc("GET /api/v1/sessions", s.handleSessions)
	s.mux.HandleFunc("GET /api/v1/parallel", s.handleParallel)
	s.mux.HandleFunc("GET /api/v1/sessions/{id}/commits", s.handleSessionCommits)
	s.mux.HandleFunc("GET /api/v1/tokens", s.handleTokens)
	s.mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/v1/files", s.handleFiles)
	s.mux.HandleFunc("GET /api/v1/insights", s.handleInsights)
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s.srv.ListenAndServe()
}

// Serve accepts connections on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	s.srv = &http.Server{
		Handler:      s.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s.srv.Serve(ln)
}

// Handler returns the HTTP handler for use with httptest.Server or custom listeners.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Roots   []string `json:"roots,omitempty"`
		Days    int      `json:"days,omitempty"`
		Project string   `json:"project,omitempty"`
		Force   bool     `json:"force,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeErr(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
	}
	roots := body.Roots
	if len(roots) == 0 {
		roots = s.opts.Roots
	}
	res, err := s.coord.Run(r.Context(), ingest.Options{
		Roots:   roots,
		Days:    body.Days,
		Project: body.Project,
		Force:   body.Force,
	})
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "ingest: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProjectPath string            `json:"project_path"`
		Entries     []json.RawMessage `json:"entries"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if len(body.Entries) == 0 {
		writeErr(w, http.StatusBadRequest, "entries field is required")
		return
	}
	res, err := s.coord.Entries(r.Context(), body.Entries, body.ProjectPath)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "ingest entries: %v", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleGitIngest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RepoPath    string `json:"repo_path"`
		ProjectPath string `json:"project_path,omitempty"`
		Since       string `json:"since,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if body.RepoPath == "" {
		writeErr(w, http.StatusBadRequest, "repo_path field is required")
		return
	}
	projectPath := body.ProjectPath
	if projectPath == "" {
		projectPath = body.RepoPath
	}
	var since time.Time
	if body.Since != "" {
		var err error
		since, err = time.Parse(time.RFC3339, body.Since)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "invalid since value %q: %v", body.Since, err)
			return
		}
	}
	res, err := gitlog.Ingest(r.Context(), s.store, s.opts.GitReader, body.RepoPath, projectPath, since)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "git ingest: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Status reports ingestion freshness alongside summary statistics.
type Status struct {
	LastIngest *time.Time  `json:"last_ingest"`
	Stats      store.Stats `json:"stats"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	last, err := s.store.LastIngestTime(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "getting status: %v", err)
		return
	}
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "getting status: %v", err)
		return
	}
	status := Status{Stats: stats}
	if !last.IsZero() {
		status.LastIngest = &last
	}
	writeJSON(w, http.StatusOK, status)
}

// handleSync reports the newest event timestamp per session so an
// uploader can tell which sessions have entries the server has not
// seen yet. An optional "sessions" parameter restricts the result to a
// comma-separated list of session IDs.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if raw := r.URL.Query().Get("sessions"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	latest, err := s.store.LatestEventTimes(r.Context(), ids)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "sync status: %v", err)
		return
	}
	if latest == nil {
		latest = map[string]time.Time{}
	}
	writeJSON(w, http.StatusOK, latest)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "getting stats: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	opts, err := parseCountOpts(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "%v", err)
		return
	}
	counts, err := s.miner.ToolFrequency(r.Context(), opts)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "counting tools: %v", err)
		return
	}
	if counts == nil {
		counts = []store.NameCount{}
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	opts, err := parseCommandOpts(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "%v", err)
		return
	}
	counts, err := s.miner.CommandFrequency(r.Context(), opts)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "counting commands: %v", err)
		return
	}
	if counts == nil {
		counts = []store.NameCount{}
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleSequences(w http.ResponseWriter, r *http.Request) {
	opts, err := parseSequenceOpts(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "%v", err)
		return
	}
	seqs, err := s.miner.Sequences(r.Context(), opts)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "mining sequences: %v", err)
		return
	}
	if seqs == nil {
		seqs = []mine.Sequence{}
	}
	writeJSON(w, http.StatusOK, seqs)
}

func (s *Server) handleGaps(w http.ResponseWriter, r *http.Request) {
	opts, err := parseGapOpts(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "%v", err)
		return
	}
	if opts.SettingsPath == "" {
		opts.SettingsPath = s.opts.SettingsPath
	}
	gaps, err := s.miner.Gaps(r.Context(), opts)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "finding gaps: %v", err)
		return
	}
	if gaps == nil {
		gaps = []mine.Gap{}
	}
	writeJSON(w, http.StatusOK, gaps)
}

func (s *Server) handleFailures(w http.ResponseWriter, r *http.Request) {
	opts, err := parseFailureOpts(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "%v", err)
		return
	}
	stats, err := s.miner.Failures(r.Context(), opts)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "analyzing failures: %v", err)
		return
	}
	if stats == nil {
		stats = []mine.FailureStat{}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "%v", err)
		return
	}
	classes, err := s.miner.Classify(r.Context(), since, r.URL.Query().Get("project"))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "classifying sessions: %v", err)
		return
	}
	if classes == nil {
		classes = []mine.SessionClass{}
	}
	writeJSON(w, http.StatusOK, classes)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	days, err := parseInt(r, "days")
	if err != nil {
		writeErr(w, http.StatusBadRequest, "%v", err)
		return
	}
	report, err := s.miner.Trends(r.Context(), days)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "computing trends: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleParallel(w http.ResponseWriter, r *http.Request) {
	opts, err := parseParallelOpts(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "%v", err)
		return
	}
	overlaps, err := s.miner.ParallelSessions(r.Context(), opts)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "parallel sessions: %v", err)
		return
	}
	if overlaps == nil {
		overlaps = []mine.SessionOverlap{}
	}
	writeJSON(w, http.StatusOK, overlaps)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	opts, err := parseSessionOpts(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "%v", err)
		return
	}
	sessions, err := s.store.ListSessions(r.Context(), opts)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "listing sessions: %v", err)
		return
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleSessionCommits(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeErr(w, http.StatusBadRequest, "session id is required")
		return
	}
	commits, err := s.store.SessionCommits(r.Context(), id)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "listing session commits: %v", err)
		return
	}
	if commits == nil {
		commits = []model.GitCommit{}
	}
	writeJSON(w, http.StatusOK, commits)
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	opts, err := parseTokenOpts(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "%v", err)
		return
	}
	buckets, err := s.store.TokenUsage(r.Context(), opts)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "token usage: %v", err)
		return
	}
	if buckets == nil {
		buckets = []store.TokenBucket{}
	}
	writeJSON(w, http.StatusOK, buckets)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	opts, err := parseEventOpts(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "%v", err)
		return
	}
	events, err := s.store.EventsInRange(r.Context(), opts)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "listing events: %v", err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	opts, err := parseCountOpts(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "%v", err)
		return
	}
	files, err := s.store.FileActivity(r.Context(), opts)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "file activity: %v", err)
		return
	}
	if files == nil {
		files = []store.FileCount{}
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if parseBool(r, "compute") {
		since, err := parseSince(r)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "%v", err)
			return
		}
		ins, err := s.miner.ComputeInsights(r.Context(), mine.InsightOptions{
			Since:        since,
			SettingsPath: s.opts.SettingsPath,
		})
		if err != nil {
			writeErr(w, http.StatusInternalServerError, "computing insights: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, ins)
		return
	}
	ins, err := s.miner.CachedInsights(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "reading insights: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, ins)
}

// writeJSON encodes v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// writeErr writes a JSON error response.
func writeErr(w http.ResponseWriter, status int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	writeJSON(w, status, map[string]string{"error": msg})
}
