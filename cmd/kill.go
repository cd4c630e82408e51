package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewKillCmd creates the `kill` command.
func NewKillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kill <session>...",
		Short: "End agent sessions and clean up their state",
		Long: `Kills the tmux session, removes its git worktree if one was provisioned,
and deletes the session's metadata and pane log.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			for _, session := range args {
				if err := app.lifecycle.End(cmd.Context(), session); err != nil {
					return err
				}
				fmt.Printf("Ended %s\n", session)
			}
			return nil
		},
	}
}
