package config

import (
	"time"

	"github.com/mitchellh/mapstructure"
)

// Config is the parsed hive configuration. All sections have working
// defaults; a missing config file is not an error.
type Config struct {
	General       GeneralConfig       `toml:"general"`
	Notifications NotificationsConfig `toml:"notifications"`
	Detection     DetectionConfig     `toml:"detection"`
	Tasks         TasksConfig         `toml:"tasks"`
	AllowedTools  []string            `toml:"allowed_tools"`
}

// GeneralConfig covers session creation and the reconciliation loop.
type GeneralConfig struct {
	// DefaultAgent is the agent command launched when `hive new` is not
	// given an explicit one.
	DefaultAgent string `toml:"default_agent"`

	// PollIntervalMs is the reconciliation loop period.
	PollIntervalMs int `toml:"poll_interval_ms"`

	// TasksDir overrides the default task document directory.
	TasksDir string `toml:"tasks_dir"`

	// WorktreeDir is where per-session git worktrees are provisioned.
	WorktreeDir string `toml:"worktree_dir"`

	// LogsDir overrides where pane logs are piped.
	LogsDir string `toml:"logs_dir"`

	// BranchPrefix is prepended to worktree branch names.
	BranchPrefix string `toml:"branch_prefix"`

	// CaptureLines is how many trailing pane lines each refresh captures.
	CaptureLines int `toml:"capture_lines"`

	// MaxConcurrentCaptures bounds parallel capture-pane calls per refresh.
	MaxConcurrentCaptures int `toml:"max_concurrent_captures"`
}

// NotificationsConfig controls edge-triggered status notifications.
type NotificationsConfig struct {
	Enabled bool `toml:"enabled"`

	// Command, if set, is run with HIVE_SESSION and HIVE_STATUS in its
	// environment whenever a session needs input or finishes.
	Command string `toml:"command"`
}

// DetectionConfig holds the status classifier thresholds. Per-agent
// overrides are kept as raw maps so unknown keys from hand-edited
// configs degrade to defaults instead of failing the load.
type DetectionConfig struct {
	RunningThresholdSecs int `toml:"running_threshold_secs"`
	IdleThresholdSecs    int `toml:"idle_threshold_secs"`

	Agents map[string]map[string]interface{} `toml:"agents"`
}

// AgentDetection is a per-agent override of the detection thresholds
// and marker patterns, decoded from DetectionConfig.Agents.
type AgentDetection struct {
	RunningThresholdSecs int      `mapstructure:"running_threshold_secs"`
	IdleThresholdSecs    int      `mapstructure:"idle_threshold_secs"`
	NeedsInputPatterns   []string `mapstructure:"needs_input_patterns"`
	DonePatterns         []string `mapstructure:"done_patterns"`
}

// TasksConfig controls task document discovery.
type TasksConfig struct {
	// Ignore is a list of .gitignore-style globs excluded from the scan,
	// in addition to the built-in archive and README exclusions.
	Ignore []string `toml:"ignore"`
}

// PollInterval returns the reconciliation loop period as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.General.PollIntervalMs) * time.Millisecond
}

// RunningThreshold returns the global "recent output means running" window.
func (c *Config) RunningThreshold() time.Duration {
	return time.Duration(c.Detection.RunningThresholdSecs) * time.Second
}

// IdleThreshold returns the global "stale output means idle" window.
func (c *Config) IdleThreshold() time.Duration {
	return time.Duration(c.Detection.IdleThresholdSecs) * time.Second
}

// DetectionFor resolves the effective detection settings for an agent,
// applying any [detection.agents.<name>] override on top of the globals.
// Unknown agents and malformed overrides fall back to the globals.
func (c *Config) DetectionFor(agent string) AgentDetection {
	resolved := AgentDetection{
		RunningThresholdSecs: c.Detection.RunningThresholdSecs,
		IdleThresholdSecs:    c.Detection.IdleThresholdSecs,
	}

	raw, ok := c.Detection.Agents[agent]
	if !ok {
		return resolved
	}

	var override AgentDetection
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &override,
		WeaklyTypedInput: true,
	})
	if err != nil || decoder.Decode(raw) != nil {
		return resolved
	}

	if override.RunningThresholdSecs > 0 {
		resolved.RunningThresholdSecs = override.RunningThresholdSecs
	}
	if override.IdleThresholdSecs > 0 {
		resolved.IdleThresholdSecs = override.IdleThresholdSecs
	}
	resolved.NeedsInputPatterns = override.NeedsInputPatterns
	resolved.DonePatterns = override.DonePatterns
	return resolved
}

// Default returns the built-in configuration used when no config file
// exists and as the base layer under a loaded one.
func Default() *Config {
	return &Config{
		General: GeneralConfig{
			DefaultAgent:          "claude",
			PollIntervalMs:        2000,
			BranchPrefix:          "hive/",
			CaptureLines:          200,
			MaxConcurrentCaptures: 8,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
		},
		Detection: DetectionConfig{
			RunningThresholdSecs: 5,
			IdleThresholdSecs:    30,
		},
	}
}
