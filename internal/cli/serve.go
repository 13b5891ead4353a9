package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/scbrown/session-lens/internal/ingest"
	"github.com/scbrown/session-lens/internal/mine"
	"github.com/scbrown/session-lens/internal/server"
	"github.com/scbrown/session-lens/internal/store"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an HTTP server exposing session analytics",
	Long: `Start an HTTP server that wraps the local SQLite store and exposes
ingestion and analytics over HTTP. This enables remote clients to upload
transcript entries and run queries without direct database access.

The server provides a RESTful JSON API at /api/v1/ with endpoints for
ingestion, git history, tools, commands, sequences, gaps, failures,
classification, trends, sessions, tokens, events, and insights. A health
check is available at /api/v1/health.

Use sl config to set store_mode=remote and remote_url to point other sl
instances at this server instead of a local database.`,
	Example: `  # Start server on default port
  sl serve

  # Start on a custom address
  sl serve --addr :9090

  # Start with a specific database
  sl serve --db /path/to/sessions.db --addr localhost:7160`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.New(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		roots := logRoots
		if len(roots) == 0 {
			roots = ingest.DefaultRoots()
		}
		sp := settingsPath
		if sp == "" {
			sp = mine.DefaultSettingsPath()
		}
		srv := server.New(s, server.Options{Roots: roots, SettingsPath: sp})

		// Listen first so we can report the actual address.
		ln, err := net.Listen("tcp", serveAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", serveAddr, err)
		}

		fmt.Fprintf(os.Stderr, "sl serve listening on %s\n", ln.Addr())

		// Graceful shutdown on SIGINT/SIGTERM.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Serve(ln)
		}()

		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "shutting down...")
			return srv.Shutdown(context.Background())
		case err := <-errCh:
			return err
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":7160", "address to listen on (host:port)")
	rootCmd.AddCommand(serveCmd)
}
