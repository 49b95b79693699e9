package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up when no path is given.
const DefaultFileName = ".stlcheck.yaml"

// Load loads configuration with priority: defaults < file. An empty path
// looks for DefaultFileName in dir; a missing default file is not an error.
// Command line overrides are applied by the caller afterwards.
func Load(path, dir string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile(dir)
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}

	return cfg, nil
}

// findConfigFile looks for the default config file in dir.
func findConfigFile(dir string) string {
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, DefaultFileName)
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
