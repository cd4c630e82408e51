package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hivetools/hive/cli"
	"github.com/hivetools/hive/pkg/logs"
	"github.com/hivetools/hive/pkg/tmux"
)

// NewLogsCmd creates the `logs` command.
func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs <session>",
		Short: "Show a session's pane log",
		Long: `Prints the trailing lines of the session's pane log, everything the
agent has written to its terminal.

Examples:
  # Last 50 lines
  hive logs hive-fix-auth

  # Stream new output as it arrives
  hive logs hive-fix-auth -f

  # Last 200 lines
  hive logs hive-fix-auth -n 200
`,
		Args: cobra.ExactArgs(1),
		RunE: runLogsE,
	}

	cmd.Flags().BoolP("follow", "f", false, "Follow log output")
	cmd.Flags().IntP("lines", "n", 50, "Number of trailing lines to show")

	return cmd
}

func runLogsE(cmd *cobra.Command, args []string) error {
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return err
	}

	session := args[0]
	if !strings.HasPrefix(session, tmux.SessionPrefix) {
		session = tmux.SessionPrefix + session
	}
	logPath := filepath.Join(cfg.LogsDirOrDefault(), session+".log")

	lines, _ := cmd.Flags().GetInt("lines")
	tail, err := logs.TailLines(logPath, lines)
	if err != nil {
		return err
	}
	if len(tail) == 0 {
		fmt.Fprintf(os.Stderr, "No log output yet for %s\n", session)
	}
	for _, line := range tail {
		fmt.Println(line)
	}

	follow, _ := cmd.Flags().GetBool("follow")
	if !follow {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return logs.Follow(ctx, logPath, os.Stdout)
}
