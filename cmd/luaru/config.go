package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// fileConfig is the on-disk config. Flags take precedence over it; it
// supplies defaults for values the command line leaves unset.
type fileConfig struct {
	Timeout     string   `toml:"timeout"`
	Libs        []string `toml:"libs"`
	AllowHosts  []string `toml:"allow_hosts"`
	Mounts      []string `toml:"mounts"`
	KV          bool     `toml:"kv"`
	HistoryFile string   `toml:"history_file"`
}

func defaultConfigPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "luaru", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "luaru", "config.toml")
}

// loadConfig reads path, or the default location when path is empty. A
// missing default file is not an error; a missing explicit file is.
func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig

	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
		if path == "" {
			return cfg, nil
		}
		if _, err := os.Stat(path); err != nil {
			return cfg, nil
		}
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// timeoutOrDefault parses the config's timeout string, falling back to
// def on absence or parse failure.
func (c fileConfig) timeoutOrDefault(def time.Duration) time.Duration {
	if c.Timeout == "" {
		return def
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return def
	}
	return d
}
