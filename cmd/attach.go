package cmd

import (
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// NewAttachCmd creates the `attach` command.
func NewAttachCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attach <session>",
		Short: "Attach the terminal to an agent session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}

			argv := app.lifecycle.AttachCommand(args[0])
			attach := exec.CommandContext(cmd.Context(), argv[0], argv[1:]...)
			attach.Stdin = os.Stdin
			attach.Stdout = os.Stdout
			attach.Stderr = os.Stderr
			return attach.Run()
		},
	}
}
