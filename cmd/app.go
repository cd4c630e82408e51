package cmd

import (
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hivetools/hive/cli"
	"github.com/hivetools/hive/config"
	"github.com/hivetools/hive/pkg/engine"
	"github.com/hivetools/hive/pkg/lifecycle"
	"github.com/hivetools/hive/pkg/notify"
	"github.com/hivetools/hive/pkg/paths"
	"github.com/hivetools/hive/pkg/store"
	"github.com/hivetools/hive/pkg/tasks"
	"github.com/hivetools/hive/pkg/tmux"
	"github.com/hivetools/hive/pkg/workspace"
)

// app bundles the wired-up components most commands need. Commands that
// only touch configuration or the filesystem should not pay the tmux
// detection cost and load the config directly instead.
type app struct {
	cfg       *config.Config
	log       *logrus.Logger
	manager   *tmux.Client
	store     *store.Store
	registry  *tasks.Registry
	engine    *engine.Engine
	lifecycle *lifecycle.Manager
}

func newApp(cmd *cobra.Command) (*app, error) {
	log := cli.GetLogger(cmd)

	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if err := paths.EnsureDirs(); err != nil {
		return nil, err
	}

	manager, err := tmux.NewClient()
	if err != nil {
		return nil, err
	}

	st, err := store.NewStore()
	if err != nil {
		return nil, err
	}

	registry, err := tasks.NewRegistry(cfg.TasksDirOrDefault(), cfg.Tasks.Ignore)
	if err != nil {
		return nil, err
	}

	eng := engine.New(manager, st, registry, cfg, buildNotifier(cfg))

	worktreeDir := cfg.General.WorktreeDir
	if worktreeDir == "" {
		worktreeDir = filepath.Join(paths.DataDir(), "worktrees")
	}
	provisioner := workspace.NewGitWorktree(worktreeDir, cfg.General.BranchPrefix)

	return &app{
		cfg:       cfg,
		log:       log,
		manager:   manager,
		store:     st,
		registry:  registry,
		engine:    eng,
		lifecycle: lifecycle.NewManager(manager, st, provisioner, eng, cfg),
	}, nil
}

func buildNotifier(cfg *config.Config) notify.Notifier {
	if !cfg.Notifications.Enabled {
		return nil
	}
	notifiers := notify.Multi{notify.NewLogNotifier()}
	if cfg.Notifications.Command != "" {
		notifiers = append(notifiers, notify.NewCommandNotifier(cfg.Notifications.Command))
	}
	return notifiers
}
