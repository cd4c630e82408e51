package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hivetools/hive/config"
	"github.com/hivetools/hive/pkg/paths"
)

// PathsOutput represents the XDG-compliant paths used by hive.
type PathsOutput struct {
	ConfigFile  string `json:"config_file"`
	ConfigDir   string `json:"config_dir"`
	DataDir     string `json:"data_dir"`
	StateDir    string `json:"state_dir"`
	SessionsDir string `json:"sessions_dir"`
	LogsDir     string `json:"logs_dir"`
	TasksDir    string `json:"tasks_dir"`
}

func NewPathsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Print the XDG-compliant paths used by hive",
		Long: `Print the XDG-compliant paths used by hive.

This command outputs the paths in JSON format, making it easy to parse
from scripts and other tools.

The paths follow the XDG Base Directory Specification:
- config_dir: Configuration (config.toml)
- data_dir: Persistent data (task documents, worktrees)
- state_dir: Runtime state (session metadata, pane logs)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := PathsOutput{
				ConfigFile:  config.DefaultPath(),
				ConfigDir:   paths.ConfigDir(),
				DataDir:     paths.DataDir(),
				StateDir:    paths.StateDir(),
				SessionsDir: paths.SessionsDir(),
				LogsDir:     paths.LogsDir(),
				TasksDir:    paths.TasksDir(),
			}

			jsonData, err := json.MarshalIndent(output, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal paths to JSON: %w", err)
			}
			fmt.Println(string(jsonData))
			return nil
		},
	}

	return cmd
}
