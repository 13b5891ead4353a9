// Package cli defines the cobra command tree for the sl CLI.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/scbrown/session-lens/internal/config"
	"github.com/scbrown/session-lens/internal/ingest"
	"github.com/scbrown/session-lens/internal/mine"
	"github.com/scbrown/session-lens/internal/server"
	"github.com/scbrown/session-lens/internal/store"
	"github.com/spf13/cobra"
)

var (
	dbPath       string
	jsonOutput   bool
	noRefresh    bool
	storeMode    string
	remoteURL    string
	logRoots     []string
	settingsPath string
	defaultDays  int
)

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "sessions.db"
	}
	return filepath.Join(home, ".session-lens", "sessions.db")
}

// rootCmd is the top-level sl command.
var rootCmd = &cobra.Command{
	Use:   "sl",
	Short: "Session Lens - analytics for AI coding assistant sessions",
	Long: `sl ingests Claude Code session transcripts and git history into a
local SQLite database, then mines them for usage patterns: tool and
command frequency, tool-call sequences, permission gaps, failure and
rework hotspots, token spend, and session classification.

Data is stored at ~/.session-lens/sessions.db (configurable via --db or
sl config db_path). All output commands support --json for
machine-readable output. Read commands re-ingest automatically when the
database is more than a few minutes stale; use --no-refresh to skip.`,
	Example: `  # Ingest transcripts from ~/.claude/projects
  sl ingest --days 30

  # Most used tools and shell commands this week
  sl tools --since 7d
  sl commands --since 7d --limit 20

  # Commands worth allow-listing, and common tool sequences
  sl gaps --threshold 5
  sl sequences --min-count 3

  # Correlate git commits with sessions
  sl git ingest ~/src/myproject`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadFrom(configPath)
		if err != nil {
			return
		}
		if cfg.DBPath != "" && !cmd.Flags().Changed("db") {
			dbPath = cfg.DBPath
		}
		if cfg.DefaultFormat == "json" && !cmd.Flags().Changed("json") {
			jsonOutput = true
		}
		if len(cfg.LogRoots) > 0 && len(logRoots) == 0 {
			logRoots = cfg.LogRoots
		}
		if cfg.SettingsPath != "" && settingsPath == "" {
			settingsPath = cfg.SettingsPath
		}
		if cfg.DefaultDays > 0 && defaultDays == 0 {
			defaultDays = cfg.DefaultDays
		}
		if cfg.StoreMode != "" && storeMode == "" {
			storeMode = cfg.StoreMode
		}
		if cfg.RemoteURL != "" && remoteURL == "" {
			remoteURL = cfg.RemoteURL
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath(), "path to SQLite database")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noRefresh, "no-refresh", false, "skip automatic re-ingestion before read commands")
}

// openBackend returns a backend based on the current configuration.
// When store_mode is "remote", it returns an HTTP client pointing at
// remote_url. Otherwise it opens the local SQLite database.
func openBackend() (backend, error) {
	if storeMode == "remote" {
		if remoteURL == "" {
			return nil, fmt.Errorf("store_mode is \"remote\" but remote_url is not set; use: sl config remote_url <url>")
		}
		return server.NewClient(remoteURL), nil
	}
	s, err := store.New(dbPath)
	if err != nil {
		return nil, err
	}
	roots := logRoots
	if len(roots) == 0 {
		roots = ingest.DefaultRoots()
	}
	sp := settingsPath
	if sp == "" {
		sp = mine.DefaultSettingsPath()
	}
	b := newLocalBackend(s, ingest.Options{Roots: roots, Days: ingestWindowDays()}, sp)
	if noRefresh {
		b.maxAge = 0
	}
	return b, nil
}

// ingestWindowDays is the lookback window for automatic and explicit
// ingestion when --days is not given.
func ingestWindowDays() int {
	if defaultDays > 0 {
		return defaultDays
	}
	return 30
}

// parseDuration parses a duration string that supports d (days) on top
// of the standard h/m/s units.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if strings.HasSuffix(s, "d") {
		numStr := s[:len(s)-1]
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", numStr)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// sinceTime converts a --since flag value to an absolute time. An
// empty value falls back to default_days when configured, otherwise
// the zero time (no lower bound).
func sinceTime(flag string) (time.Time, error) {
	if flag == "" {
		if defaultDays > 0 {
			return time.Now().AddDate(0, 0, -defaultDays), nil
		}
		return time.Time{}, nil
	}
	d, err := parseDuration(flag)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since value %q: %w", flag, err)
	}
	return time.Now().Add(-d), nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
