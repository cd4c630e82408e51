package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hivetools/hive/pkg/lifecycle"
)

// NewNewCmd creates the `new` command.
func NewNewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Start a new agent session",
		Long: `Creates a detached tmux session running the configured agent, records
its metadata and seeds the first prompt.

Examples:
  # Start the default agent in the current repository
  hive new fix-auth

  # Start from a task document in an isolated git worktree
  hive new fix-auth --task ~/tasks/fix-auth.md --worktree

  # Skip the agent's permission prompts
  hive new refactor --privileged --prompt "Refactor the session store"
`,
		Args: cobra.ExactArgs(1),
		RunE: runNewE,
	}

	cmd.Flags().String("agent", "", "Agent command to run (defaults to the configured agent)")
	cmd.Flags().String("repo", "", "Repository to work in (defaults to the current directory)")
	cmd.Flags().String("task", "", "Task document to link and seed the prompt from")
	cmd.Flags().String("prompt", "", "First instruction typed into the agent")
	cmd.Flags().Bool("privileged", false, "Skip the agent's permission prompts")
	cmd.Flags().Bool("worktree", false, "Run in an isolated git worktree")

	return cmd
}

func runNewE(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}

	agent, _ := cmd.Flags().GetString("agent")
	repo, _ := cmd.Flags().GetString("repo")
	taskPath, _ := cmd.Flags().GetString("task")
	prompt, _ := cmd.Flags().GetString("prompt")
	privileged, _ := cmd.Flags().GetBool("privileged")
	isolate, _ := cmd.Flags().GetBool("worktree")

	session, err := app.lifecycle.Create(cmd.Context(), lifecycle.CreateOptions{
		Name:       args[0],
		Agent:      agent,
		RepoPath:   repo,
		TaskPath:   taskPath,
		Prompt:     prompt,
		Privileged: privileged,
		Isolate:    isolate,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Started %s\n", accentStyle.Render(session))
	fmt.Printf("Attach with: %s\n", mutedStyle.Render(strings.Join(app.lifecycle.AttachCommand(session), " ")))
	return nil
}
