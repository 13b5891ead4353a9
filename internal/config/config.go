// Package config handles reading and writing the sl configuration file (~/.session-lens/config.toml).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds sl configuration settings.
type Config struct {
	DBPath        string   `toml:"db_path,omitempty" json:"db_path,omitempty"`
	LogRoots      []string `toml:"log_roots,omitempty" json:"log_roots,omitempty"`
	SettingsPath  string   `toml:"settings_path,omitempty" json:"settings_path,omitempty"`
	DefaultFormat string   `toml:"default_format,omitempty" json:"default_format,omitempty"`
	DefaultDays   int      `toml:"default_days,omitempty" json:"default_days,omitempty"`
	StoreMode     string   `toml:"store_mode,omitempty" json:"store_mode,omitempty"`
	RemoteURL     string   `toml:"remote_url,omitempty" json:"remote_url,omitempty"`
}

// validKeys lists the allowed configuration keys.
var validKeys = map[string]bool{
	"db_path":        true,
	"log_roots":      true,
	"settings_path":  true,
	"default_format": true,
	"default_days":   true,
	"store_mode":     true,
	"remote_url":     true,
}

// ValidKeys returns the sorted list of valid configuration keys.
func ValidKeys() []string {
	return []string{"db_path", "default_days", "default_format", "log_roots", "remote_url", "settings_path", "store_mode"}
}

// Path returns the default config file path (~/.session-lens/config.toml).
func Path() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".session-lens", "config.toml")
	}
	return filepath.Join(home, ".session-lens", "config.toml")
}

// Load reads the config from the default path.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads the config from a specific path. Returns an empty
// Config if the file does not exist.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to the default path.
func (c *Config) Save() error {
	return c.SaveTo(Path())
}

// SaveTo writes the config to a specific path, creating parent directories as needed.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Get returns the string value of a configuration key.
func (c *Config) Get(key string) (string, error) {
	if !validKeys[key] {
		return "", fmt.Errorf("unknown config key %q (valid keys: %s)", key, strings.Join(ValidKeys(), ", "))
	}
	switch key {
	case "db_path":
		return c.DBPath, nil
	case "log_roots":
		return strings.Join(c.LogRoots, ","), nil
	case "settings_path":
		return c.SettingsPath, nil
	case "default_format":
		return c.DefaultFormat, nil
	case "default_days":
		if c.DefaultDays == 0 {
			return "", nil
		}
		return strconv.Itoa(c.DefaultDays), nil
	case "store_mode":
		return c.StoreMode, nil
	case "remote_url":
		return c.RemoteURL, nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}

// Set assigns a value to a configuration key.
func (c *Config) Set(key, value string) error {
	if !validKeys[key] {
		return fmt.Errorf("unknown config key %q (valid keys: %s)", key, strings.Join(ValidKeys(), ", "))
	}
	switch key {
	case "db_path":
		c.DBPath = value
	case "log_roots":
		if value == "" {
			c.LogRoots = nil
		} else {
			c.LogRoots = strings.Split(value, ",")
		}
	case "settings_path":
		c.SettingsPath = value
	case "default_format":
		if value != "" && value != "table" && value != "json" {
			return fmt.Errorf("default_format must be \"table\" or \"json\", got %q", value)
		}
		c.DefaultFormat = value
	case "default_days":
		if value == "" {
			c.DefaultDays = 0
			return nil
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("default_days must be a non-negative integer, got %q", value)
		}
		c.DefaultDays = n
	case "store_mode":
		if value != "" && value != "local" && value != "remote" {
			return fmt.Errorf("store_mode must be \"local\" or \"remote\", got %q", value)
		}
		c.StoreMode = value
	case "remote_url":
		c.RemoteURL = value
	}
	return nil
}
