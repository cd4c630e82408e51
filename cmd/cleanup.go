package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCleanupCmd creates the `cleanup` command.
func NewCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove state left behind by dead sessions",
		Long: `Deletes metadata, worktrees and pane logs for sessions whose tmux
session no longer exists. The run command does this on startup; use
this to clean up manually.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}

			removed, err := app.lifecycle.CleanupOrphans(cmd.Context())
			if err != nil {
				return err
			}

			if len(removed) == 0 {
				fmt.Println("Nothing to clean up.")
				return nil
			}
			for _, session := range removed {
				fmt.Printf("Removed %s\n", session)
			}
			return nil
		},
	}
}
