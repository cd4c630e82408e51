package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pelletier/go-toml/v2"

	"github.com/hivetools/hive/errors"
	"github.com/hivetools/hive/pkg/paths"
	"github.com/hivetools/hive/util/pathutil"
)

//go:embed default.toml
var defaultTOML []byte

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads and parses a hive configuration file. Values not present
// in the file keep their built-in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration from raw TOML, expanding ${VAR}
// references from the environment first.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := Default()
	expanded := expandEnvVars(string(data))
	if err := toml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse config file")
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrInit loads the user config, writing the embedded default to
// disk first if no config file exists yet.
func LoadOrInit() (*Config, error) {
	path := DefaultPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to create config directory").
				WithDetail("path", filepath.Dir(path))
		}
		if err := os.WriteFile(path, defaultTOML, 0644); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to write default config").
				WithDetail("path", path)
		}
	}
	return Load(path)
}

// DefaultPath returns the location of the user config file.
func DefaultPath() string {
	return filepath.Join(paths.ConfigDir(), "config.toml")
}

// normalize expands user paths and rejects values the engine cannot
// run with.
func (c *Config) normalize() error {
	if c.General.PollIntervalMs <= 0 {
		return errors.ConfigInvalid("general.poll_interval_ms must be positive")
	}
	if c.General.CaptureLines <= 0 {
		return errors.ConfigInvalid("general.capture_lines must be positive")
	}
	if c.General.MaxConcurrentCaptures <= 0 {
		return errors.ConfigInvalid("general.max_concurrent_captures must be positive")
	}
	if c.Detection.RunningThresholdSecs <= 0 || c.Detection.IdleThresholdSecs <= 0 {
		return errors.ConfigInvalid("detection thresholds must be positive")
	}
	if c.Detection.IdleThresholdSecs < c.Detection.RunningThresholdSecs {
		return errors.ConfigInvalid("detection.idle_threshold_secs must be >= running_threshold_secs")
	}
	if c.General.DefaultAgent == "" {
		return errors.ConfigInvalid("general.default_agent must not be empty")
	}

	for _, dir := range []*string{&c.General.TasksDir, &c.General.WorktreeDir, &c.General.LogsDir} {
		if *dir == "" {
			continue
		}
		expanded, err := pathutil.Expand(*dir)
		if err != nil {
			return errors.ConfigInvalid("invalid directory path: " + *dir)
		}
		*dir = expanded
	}
	return nil
}

// TasksDirOrDefault returns the configured tasks directory, falling
// back to the platform default.
func (c *Config) TasksDirOrDefault() string {
	if c.General.TasksDir != "" {
		return c.General.TasksDir
	}
	return paths.TasksDir()
}

// LogsDirOrDefault returns the configured pane log directory, falling
// back to the platform default.
func (c *Config) LogsDirOrDefault() string {
	if c.General.LogsDir != "" {
		return c.General.LogsDir
	}
	return paths.LogsDir()
}

func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		name := envVarRegex.FindStringSubmatch(match)[1]
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return match
	})
}
