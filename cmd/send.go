package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

// NewSendCmd creates the `send` command.
func NewSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <session> <text>...",
		Short: "Send a reply to a waiting agent",
		Long: `Types the given text into the session's pane and presses Enter. Use it
to answer an agent stuck on a prompt without attaching.

Example:
  hive send hive-fix-auth "yes, go ahead"
`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			return app.lifecycle.QuickReply(cmd.Context(), args[0], strings.Join(args[1:], " "))
		},
	}
}

// NewCycleCmd creates the `cycle` command.
func NewCycleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cycle <session>",
		Short: "Cycle the agent's permission mode",
		Long: `Sends Shift+Tab to the session's pane, which toggles the agent between
its permission modes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			return app.lifecycle.CycleMode(cmd.Context(), args[0])
		},
	}
}
