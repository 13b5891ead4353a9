package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	gitSince   string
	gitProject string
)

var gitCmd = &cobra.Command{
	Use:   "git",
	Short: "Ingest and inspect git history alongside sessions",
}

var gitIngestCmd = &cobra.Command{
	Use:   "ingest <repo-path>",
	Short: "Ingest a repository's commit log and correlate it with sessions",
	Long: `Read the commit log of a git repository and store the commits,
deduplicated by hash. Each commit is then correlated with the session
whose activity interval contains the commit time; when several sessions
overlap, the one that ended soonest after the commit wins. Correlation
never reassigns a commit that already has a session.`,
	Example: `  sl git ingest ~/src/myproject
  sl git ingest ~/src/myproject --since 30d
  sl git ingest . --project /home/me/src/myproject`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoPath := args[0]

		var since time.Time
		if gitSince != "" {
			d, err := parseDuration(gitSince)
			if err != nil {
				return fmt.Errorf("invalid --since value %q: %w", gitSince, err)
			}
			since = time.Now().Add(-d)
		}

		projectPath := gitProject
		if projectPath == "" {
			projectPath = repoPath
		}

		b, err := openBackend()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer b.Close()

		res, err := b.GitIngest(context.Background(), repoPath, projectPath, since)
		if err != nil {
			return fmt.Errorf("git ingest: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		fmt.Printf("Commits found:   %d\n", res.CommitsFound)
		fmt.Printf("Commits added:   %d\n", res.CommitsAdded)
		fmt.Printf("Correlated:      %d\n", res.Correlated)
		fmt.Printf("Uncorrelated:    %d\n", res.Uncorrelated)
		return nil
	},
}

var gitCommitsCmd = &cobra.Command{
	Use:   "commits <session-id>",
	Short: "List commits correlated with a session",
	Example: `  sl git commits 3f2b1c4d
  sl git commits 3f2b1c4d --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer b.Close()

		commits, err := b.SessionCommits(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("session commits: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(commits)
		}

		if len(commits) == 0 {
			fmt.Println("No commits correlated with this session.")
			return nil
		}

		t := NewTable(os.Stdout, "HASH", "TIMESTAMP", "FILES", "MESSAGE")
		for _, c := range commits {
			t.Row(
				shortCommit(c.Hash),
				c.Timestamp.Format(time.DateTime),
				fmt.Sprintf("%d", c.FilesChanged),
				truncate(c.Message, 60),
			)
		}
		return t.Flush()
	},
}

func init() {
	gitIngestCmd.Flags().StringVar(&gitSince, "since", "", "only read commits within this duration (e.g., 30d)")
	gitIngestCmd.Flags().StringVar(&gitProject, "project", "", "project path to record on commits (defaults to repo path)")
	gitCmd.AddCommand(gitIngestCmd)
	gitCmd.AddCommand(gitCommitsCmd)
	rootCmd.AddCommand(gitCmd)
}
