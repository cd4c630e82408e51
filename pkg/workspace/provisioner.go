package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hivetools/hive/command"
)

// Provisioner prepares an isolated working directory for a session and
// tears it down when the session ends.
type Provisioner interface {
	// Provision returns the directory the session should run in.
	Provision(ctx context.Context, repoPath, name string) (string, error)

	// Cleanup removes the directory created by Provision. Cleaning up a
	// directory that is already gone is not an error.
	Cleanup(ctx context.Context, repoPath, path string) error
}

// GitWorktree provisions one git worktree per session under a shared
// base directory, branched off the latest origin/main.
type GitWorktree struct {
	builder *command.SafeBuilder

	// baseDir is where worktrees are created, one subdirectory per
	// session name.
	baseDir string

	// branchPrefix is prepended to the session name to form the branch,
	// e.g. "hive/" gives "hive/fix-auth".
	branchPrefix string
}

var _ Provisioner = (*GitWorktree)(nil)

func NewGitWorktree(baseDir, branchPrefix string) *GitWorktree {
	return &GitWorktree{
		builder:      command.NewSafeBuilder(),
		baseDir:      baseDir,
		branchPrefix: branchPrefix,
	}
}

func (g *GitWorktree) git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd, err := g.builder.Build(ctx, "git", args...)
	if err != nil {
		return "", fmt.Errorf("failed to build command: %w", err)
	}

	execCmd := cmd.Exec()
	execCmd.Dir = dir

	output, err := execCmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

// Provision creates <baseDir>/<name> as a worktree of repoPath on a
// fresh branch <branchPrefix><name> off origin/main. The fetch is best
// effort so offline use still works against the local ref.
func (g *GitWorktree) Provision(ctx context.Context, repoPath, name string) (string, error) {
	branch := g.branchPrefix + name
	if err := g.builder.Validate("gitRef", branch); err != nil {
		return "", fmt.Errorf("invalid branch name: %w", err)
	}

	if err := os.MkdirAll(g.baseDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create worktree base directory: %w", err)
	}
	path := filepath.Join(g.baseDir, name)

	_, _ = g.git(ctx, repoPath, "fetch", "origin", "main")

	startPoint := "origin/main"
	if _, err := g.git(ctx, repoPath, "rev-parse", "--verify", "origin/main"); err != nil {
		startPoint = "HEAD"
	}

	if _, err := g.git(ctx, repoPath, "worktree", "add", path, "-b", branch, startPoint); err != nil {
		return "", fmt.Errorf("failed to add worktree: %w", err)
	}
	return path, nil
}

// Cleanup removes the worktree registration and its directory.
func (g *GitWorktree) Cleanup(ctx context.Context, repoPath, path string) error {
	if path == "" {
		return nil
	}

	_, err := g.git(ctx, repoPath, "worktree", "remove", "--force", path)
	if err != nil {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			// Already gone; drop the stale registration if any.
			_, _ = g.git(ctx, repoPath, "worktree", "prune")
			return nil
		}
		return err
	}
	return nil
}

// None is a Provisioner that runs sessions directly in the repository.
type None struct{}

var _ Provisioner = None{}

func (None) Provision(_ context.Context, repoPath, _ string) (string, error) {
	return repoPath, nil
}

func (None) Cleanup(context.Context, string, string) error {
	return nil
}
