package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hivetools/hive/cli"
	"github.com/hivetools/hive/errors"
	"github.com/hivetools/hive/pkg/lifecycle"
	"github.com/hivetools/hive/pkg/tasks"
)

// NewTaskCmd creates the `task` command and its subcommands.
func NewTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage task documents",
	}

	cmd.AddCommand(newTaskNewCmd(), newTaskListCmd(), newTaskStartCmd(), newTaskDoneCmd(), newTaskRmCmd())
	return cmd
}

func newTaskNewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new <description>...",
		Short: "Create a task document from the built-in template",
		Long: `Writes a new markdown task document to the tasks directory. The file
name is derived from the description.

Examples:
  hive task new Fix the auth bug
  hive task new Ship the release --due 12-25 --notify alice
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			due, _ := cmd.Flags().GetString("due")
			notifyWho, _ := cmd.Flags().GetString("notify")

			path, err := lifecycle.CreateTask(cfg.TasksDirOrDefault(), strings.Join(args, " "), notifyWho, due)
			if err != nil {
				return err
			}
			fmt.Printf("Created %s\n", path)
			return nil
		},
	}

	cmd.Flags().String("due", "", "Due date as MM-DD (defaults to tomorrow)")
	cmd.Flags().String("notify", "", "Who to notify when the task is done")

	return cmd
}

func newTaskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending task documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			registry, err := tasks.NewRegistry(cfg.TasksDirOrDefault(), cfg.Tasks.Ignore)
			if err != nil {
				return err
			}
			pending, err := registry.Load()
			if err != nil {
				return err
			}

			if len(pending) == 0 {
				fmt.Println("No pending tasks.")
				return nil
			}

			rows := [][]string{{"TASK", "DUE", "TAGS", "PATH"}}
			for _, task := range pending {
				due := ""
				if task.Due != nil {
					due = task.Due.Format("2006-01-02")
				}
				rows = append(rows, []string{task.Title, due, strings.Join(task.Tags, ","), task.Path})
			}
			fmt.Print(renderColumns(rows))
			return nil
		},
	}
}

func newTaskStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <path>",
		Short: "Start an agent session working on a task document",
		Long: `Starts an agent session linked to the task. If a live session is
already working on it, that session is reused; pass --force to start a
second, parallel session.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}

			task, err := findTask(app.registry, args[0])
			if err != nil {
				return err
			}

			privileged, _ := cmd.Flags().GetBool("privileged")
			force, _ := cmd.Flags().GetBool("force")
			session, created, err := app.lifecycle.ResumeTask(cmd.Context(), task, privileged, force)
			if err != nil {
				return err
			}

			if created {
				fmt.Printf("Started %s on %s\n", accentStyle.Render(session), task.Title)
			} else {
				fmt.Printf("%s is already working on %s\n", accentStyle.Render(session), task.Title)
			}
			return nil
		},
	}

	cmd.Flags().Bool("privileged", false, "Skip the agent's permission prompts")
	cmd.Flags().Bool("force", false, "Start a new session even if one is already working the task")

	return cmd
}

func newTaskDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <path>",
		Short: "Mark a task done and archive its document",
		Long: `Sets the document's frontmatter status to done and moves it into the
archive directory under the tasks directory, removing it from the
pending list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			registry, err := tasks.NewRegistry(cfg.TasksDirOrDefault(), cfg.Tasks.Ignore)
			if err != nil {
				return err
			}
			task, err := findTask(registry, args[0])
			if err != nil {
				return err
			}

			dest, err := lifecycle.MarkTaskDone(cfg.TasksDirOrDefault(), task)
			if err != nil {
				return err
			}
			fmt.Printf("Done: %s (archived to %s)\n", task.Title, dest)
			return nil
		},
	}
}

func newTaskRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a task document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			registry, err := tasks.NewRegistry(cfg.TasksDirOrDefault(), cfg.Tasks.Ignore)
			if err != nil {
				return err
			}
			task, err := findTask(registry, args[0])
			if err != nil {
				return err
			}

			if err := lifecycle.DeleteTask(task); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", task.Path)
			return nil
		},
	}
}

// findTask resolves a path argument against the pending task list.
func findTask(registry *tasks.Registry, path string) (tasks.Task, error) {
	pending, err := registry.Load()
	if err != nil {
		return tasks.Task{}, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	for _, task := range pending {
		if task.Path == path || task.Path == abs || filepath.Base(task.Path) == path {
			return task, nil
		}
	}
	return tasks.Task{}, errors.New(errors.ErrCodeInvalidInput,
		fmt.Sprintf("no pending task matches '%s'", path))
}
