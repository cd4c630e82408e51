package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hivetools/hive/cli"
)

// NewStatusCmd creates the `status` command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of all agent sessions",
		Long: `Captures every hive tmux session, classifies what each agent is doing
and prints a session table together with the pending task list.

Examples:
  # One-shot status table
  hive status

  # Machine-readable snapshot
  hive status --json

  # Live view, refreshed on every reconciliation pass
  hive status --watch
`,
		RunE: runStatusE,
	}

	cmd.Flags().BoolP("watch", "w", false, "Keep refreshing until interrupted")

	return cmd
}

func runStatusE(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	opts := cli.GetOptions(cmd)
	watch, _ := cmd.Flags().GetBool("watch")

	if !watch {
		snap, err := app.engine.Refresh(cmd.Context())
		if err != nil {
			return err
		}
		if opts.JSONOutput {
			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}
		fmt.Print(renderSnapshot(snap))
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.engine.Run(ctx)
	}()

	ticker := time.NewTicker(app.cfg.PollInterval())
	defer ticker.Stop()

	var lastSeq uint64
	render := func() {
		snap := app.engine.Snapshot()
		if snap.Seq == lastSeq {
			return
		}
		lastSeq = snap.Seq
		fmt.Print("\033[H\033[2J")
		fmt.Printf("hive status, refreshed %s\n\n", snap.TakenAt.Format("15:04:05"))
		fmt.Print(renderSnapshot(snap))
	}

	for {
		select {
		case <-ticker.C:
			render()
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		}
	}
}
