// Package paths provides XDG-compliant path resolution for hive.
//
// Resolution order:
// 1. HIVE_HOME (portable root) → $HIVE_HOME/{config,data,state}
// 2. XDG env vars → $XDG_*_HOME/hive
// 3. Platform defaults → ~/.config/hive, ~/.local/state/hive, etc.
package paths

import (
	"os"
	"path/filepath"
)

// getConfigHome returns the base config home directory.
func getConfigHome() string {
	if hiveHome := os.Getenv("HIVE_HOME"); hiveHome != "" {
		return filepath.Join(hiveHome, "config")
	}
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

// getDataHome returns the base data home directory.
func getDataHome() string {
	if hiveHome := os.Getenv("HIVE_HOME"); hiveHome != "" {
		return filepath.Join(hiveHome, "data")
	}
	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		return xdgDataHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "share")
	}
	return ""
}

// getStateHome returns the base state home directory.
func getStateHome() string {
	if hiveHome := os.Getenv("HIVE_HOME"); hiveHome != "" {
		return filepath.Join(hiveHome, "state")
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

// ConfigDir returns the hive configuration directory.
// Used for config files like config.toml.
func ConfigDir() string {
	base := getConfigHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "hive")
}

// DataDir returns the hive data directory.
// Used for task documents by default.
func DataDir() string {
	base := getDataHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "hive")
}

// StateDir returns the hive state directory.
// Used for session metadata and output logs.
func StateDir() string {
	base := getStateHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "hive")
}

// SessionsDir returns the directory holding per-session metadata.
func SessionsDir() string {
	return filepath.Join(StateDir(), "sessions")
}

// LogsDir returns the directory holding per-session output logs.
func LogsDir() string {
	return filepath.Join(StateDir(), "logs")
}

// TasksDir returns the default task document directory.
func TasksDir() string {
	return filepath.Join(DataDir(), "tasks")
}

// EnsureDirs creates all hive directories if they don't exist.
func EnsureDirs() error {
	dirs := []string{
		ConfigDir(),
		DataDir(),
		StateDir(),
		SessionsDir(),
		LogsDir(),
		TasksDir(),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
