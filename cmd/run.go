package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hivetools/hive/cli"
	"github.com/hivetools/hive/pkg/engine"
	"github.com/hivetools/hive/pkg/paths"
	"github.com/hivetools/hive/pkg/process"
	"github.com/hivetools/hive/pkg/tasks"
)

// NewRunCmd creates the `run` command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the session reconciliation loop",
		Long: `Polls every hive tmux session on the configured interval, classifies
agent status from pane output and fires notifications when a session
needs input or finishes. Task documents are watched for changes so the
pending list stays current between polls.

Runs until interrupted. Most commands refresh on demand; run this when
you want continuous supervision and notifications.
`,
		RunE: runRunE,
	}

	cmd.Flags().Bool("skip-cleanup", false, "Do not remove orphaned session state on startup")

	return cmd
}

func runRunE(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}

	lock, err := process.Acquire(filepath.Join(paths.StateDir(), "hive.pid"))
	if err != nil {
		return err
	}
	defer lock.Release()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if skip, _ := cmd.Flags().GetBool("skip-cleanup"); !skip {
		removed, err := app.lifecycle.CleanupOrphans(ctx)
		if err != nil {
			app.log.WithError(err).Warn("Orphan cleanup failed")
		} else if len(removed) > 0 {
			app.log.WithField("sessions", removed).Info("Removed orphaned session state")
		}
	}

	watcher, err := tasks.NewWatcher(app.cfg.TasksDirOrDefault(), app.engine.Poke)
	if err != nil {
		app.log.WithError(err).Warn("Task watcher unavailable, falling back to polling")
	} else {
		go watcher.Run(ctx)
	}

	if opts := cli.GetOptions(cmd); opts.JSONOutput {
		go streamSnapshots(ctx, app.engine, app.cfg.PollInterval())
	}

	app.log.WithField("interval", app.cfg.PollInterval()).Info("Reconciliation loop started")

	if err := app.engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// streamSnapshots writes each new snapshot to stdout as one JSON line so a
// frontend can follow the loop without linking against it.
func streamSnapshots(ctx context.Context, eng *engine.Engine, interval time.Duration) {
	enc := json.NewEncoder(os.Stdout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := eng.Snapshot()
			if snap == nil || snap.Seq == lastSeq {
				continue
			}
			lastSeq = snap.Seq
			_ = enc.Encode(snap)
		}
	}
}
