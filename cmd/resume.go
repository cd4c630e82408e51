package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewResumeCmd creates the `resume` command.
func NewResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <session>",
		Short: "Restart a dead session from its saved metadata",
		Long: `Recreates the tmux session for an agent whose pane died, using the
metadata recorded when it was first started. The agent is pointed back
at its task document so it can pick up where it left off. Resuming a
session that is still alive is a no-op.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			if err := app.lifecycle.Resume(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Resumed %s\n", args[0])
			return nil
		},
	}
}
