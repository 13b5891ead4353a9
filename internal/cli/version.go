package cli

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version and Commit are injected at release build time via -ldflags
// (-X github.com/scbrown/session-lens/internal/cli.Version=...).
// Plain builds fall back to the VCS stamp the toolchain embeds.
var (
	Version = ""
	Commit  = ""
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and commit hash",
	Long: `Print the sl version string, e.g. "sl v0.1.0 (1f3a9b2)".

Tagged release builds show the release version; everything else
shows "dev". Locally modified builds carry a -dirty suffix.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("sl " + versionString())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// versionString assembles the version line. An ldflags-injected Commit
// is trusted as-is; otherwise the commit and dirty state come from
// debug.ReadBuildInfo.
func versionString() string {
	version, commit := Version, Commit
	dirty := ""
	if commit == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					commit = s.Value
				case "vcs.modified":
					if s.Value == "true" {
						dirty = "-dirty"
					}
				}
			}
		}
	}
	if version == "" {
		version = "dev"
	}
	if commit == "" {
		return version
	}
	return fmt.Sprintf("%s (%s%s)", version, shortCommit(commit), dirty)
}

// shortCommit returns the first 7 characters of a commit hash.
func shortCommit(c string) string {
	if len(c) > 7 {
		return c[:7]
	}
	return c
}
