package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivetools/hive/testutil"
)

func TestGitWorktreeProvision(t *testing.T) {
	testutil.RequireGit(t)

	repo := t.TempDir()
	testutil.InitGitRepo(t, repo)
	base := t.TempDir()

	g := NewGitWorktree(base, "hive/")
	ctx := context.Background()

	path, err := g.Provision(ctx, repo, "fix-auth")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "fix-auth"), path)

	// The worktree is a checkout with the repo's files.
	_, err = os.Stat(filepath.Join(path, "README.md"))
	require.NoError(t, err)

	// And it sits on the prefixed branch.
	out, err := g.git(ctx, path, "rev-parse", "--abbrev-ref", "HEAD")
	require.NoError(t, err)
	assert.Equal(t, "hive/fix-auth", strings.TrimSpace(out))
}

func TestGitWorktreeProvisionRejectsBadName(t *testing.T) {
	testutil.RequireGit(t)

	g := NewGitWorktree(t.TempDir(), "hive/")
	_, err := g.Provision(context.Background(), t.TempDir(), "bad name; rm")
	require.Error(t, err)
}

func TestGitWorktreeCleanup(t *testing.T) {
	testutil.RequireGit(t)

	repo := t.TempDir()
	testutil.InitGitRepo(t, repo)
	g := NewGitWorktree(t.TempDir(), "hive/")
	ctx := context.Background()

	path, err := g.Provision(ctx, repo, "short-lived")
	require.NoError(t, err)

	require.NoError(t, g.Cleanup(ctx, repo, path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Cleaning an already-removed worktree is fine.
	require.NoError(t, g.Cleanup(ctx, repo, path))

	// Empty path is a no-op.
	require.NoError(t, g.Cleanup(ctx, repo, ""))
}

func TestNoneProvisionerRunsInRepo(t *testing.T) {
	repo := t.TempDir()
	p := None{}

	path, err := p.Provision(context.Background(), repo, "anything")
	require.NoError(t, err)
	assert.Equal(t, repo, path)

	require.NoError(t, p.Cleanup(context.Background(), repo, path))
}
