package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// setupCLITest points every package-level knob at temp locations so
// commands never touch the real home directory during tests.
func setupCLITest(t *testing.T) {
	t.Helper()
	dir := t.TempDir()

	origDB, origConfig, origRoots := dbPath, configPath, logRoots
	origJSON, origRefresh := jsonOutput, noRefresh
	origMode, origURL := storeMode, remoteURL
	origSettings, origDays := settingsPath, defaultDays
	t.Cleanup(func() {
		dbPath, configPath, logRoots = origDB, origConfig, origRoots
		jsonOutput, noRefresh = origJSON, origRefresh
		storeMode, remoteURL = origMode, origURL
		settingsPath, defaultDays = origSettings, origDays
	})

	dbPath = filepath.Join(dir, "test.db")
	configPath = filepath.Join(dir, "config.toml")
	logRoots = []string{filepath.Join(dir, "roots")}
	settingsPath = filepath.Join(dir, "settings.json")
	jsonOutput = false
	noRefresh = true
	storeMode = ""
	remoteURL = ""
	defaultDays = 0
}

// runCommand executes the root command with args and returns captured stdout.
func runCommand(t *testing.T, args ...string) string {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	rootCmd.SetArgs(args)
	execErr := rootCmd.Execute()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	buf.ReadFrom(r)

	if execErr != nil {
		t.Fatalf("Execute %v: %v", args, execErr)
	}
	return buf.String()
}
