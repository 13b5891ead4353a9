package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/scbrown/session-lens/internal/config"
	"github.com/spf13/cobra"
)

// configPath is the path to the config file, settable for testing.
var configPath = config.Path()

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Show or modify configuration",
	Long: `View or change sl configuration stored in ~/.session-lens/config.toml.

With no arguments, shows all configuration settings.
With one argument, shows the value of that key.
With two arguments, sets the key to the given value.

Settings:
  db_path         Path to the SQLite database
  log_roots       Comma-separated transcript root directories
  settings_path   Path to the assistant settings.json (allow-list source)
  default_format  Default output format: "table" or "json"
  default_days    Default lookback window in days
  store_mode      "local" (SQLite) or "remote" (HTTP server)
  remote_url      Base URL of a running sl serve instance`,
	Example: `  sl config
  sl config db_path
  sl config db_path /custom/path/sessions.db
  sl config default_days 14
  sl config store_mode remote
  sl config remote_url http://analytics-host:7160`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFrom(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		switch len(args) {
		case 2:
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := cfg.SaveTo(configPath); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Printf("%s = %s\n", args[0], args[1])
		case 1:
			val, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			if val != "" {
				fmt.Println(val)
			}
		default:
			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}
			tbl := NewTable(os.Stdout, "KEY", "VALUE")
			for _, key := range config.ValidKeys() {
				val, _ := cfg.Get(key)
				if val == "" {
					val = "(not set)"
				}
				tbl.Row(key, val)
			}
			return tbl.Flush()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
