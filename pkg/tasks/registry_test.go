package tasks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTask(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func mustRegistry(t *testing.T, dir string, ignore []string) *Registry {
	t.Helper()
	r, err := NewRegistry(dir, ignore)
	require.NoError(t, err)
	return r
}

func TestLoadFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()

	writeTask(t, dir, "beta.md", "---\nstatus: todo\n---\n# Beta task\n")
	writeTask(t, dir, "alpha.md", "---\nstatus: todo\n---\n# Alpha task\n")
	writeTask(t, dir, "dated.md", "---\nstatus: todo\ndue: 2026-09-01\nsummary: Ship the release\n---\n")
	writeTask(t, dir, "urgent.md", "---\ndue: 2026-08-28\n---\n# Urgent fix\n")
	writeTask(t, dir, "finished.md", "---\nstatus: done\n---\n# Finished\n")
	writeTask(t, dir, "completed.md", "---\nstatus: Completed\n---\n# Also finished\n")
	writeTask(t, dir, "README.md", "# Not a task\n")
	writeTask(t, dir, "notes.txt", "not markdown")
	writeTask(t, dir, "archive/old.md", "---\nstatus: todo\n---\n# Archived\n")

	tasks, err := mustRegistry(t, dir, nil).Load()
	require.NoError(t, err)

	titles := make([]string, len(tasks))
	for i, task := range tasks {
		titles[i] = task.Title
	}
	// Dated tasks first in due order, then undated by title.
	assert.Equal(t, []string{"Urgent fix", "Ship the release", "Alpha task", "Beta task"}, titles)
}

func TestLoadRecursesSubdirectories(t *testing.T) {
	dir := t.TempDir()
	writeTask(t, dir, "projects/api/migrate.md", "---\nstatus: todo\n---\n# Migrate API\n")

	tasks, err := mustRegistry(t, dir, nil).Load()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Migrate API", tasks[0].Title)
}

func TestLoadIgnoreGlobs(t *testing.T) {
	dir := t.TempDir()
	writeTask(t, dir, "keep.md", "# Keep\n")
	writeTask(t, dir, "drafts/skip.md", "# Skip\n")
	writeTask(t, dir, "skip-me.md", "# Skip too\n")

	tasks, err := mustRegistry(t, dir, []string{"drafts/**", "skip-*.md"}).Load()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Keep", tasks[0].Title)
}

func TestLoadMissingDirectory(t *testing.T) {
	tasks, err := mustRegistry(t, filepath.Join(t.TempDir(), "nope"), nil).Load()
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestLoadTitleFallsBackToFileStem(t *testing.T) {
	dir := t.TempDir()
	writeTask(t, dir, "fix-login.md", "just a body with no heading\n")

	tasks, err := mustRegistry(t, dir, nil).Load()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "fix-login", tasks[0].Title)
}

func TestLoadCarriesDueAndNotifySection(t *testing.T) {
	dir := t.TempDir()
	writeTask(t, dir, "notify.md", `---
status: todo
due: 2026-09-15
---
# Notify task

## When done
Run the smoke tests.

## Other
Ignored.
`)

	tasks, err := mustRegistry(t, dir, nil).Load()
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	require.NotNil(t, tasks[0].Due)
	assert.Equal(t, time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), tasks[0].Due.UTC())
	assert.Contains(t, tasks[0].NotifySection, "Run the smoke tests.")
	assert.NotContains(t, tasks[0].NotifySection, "Ignored.")
}

func TestWatcherFiresOnMarkdownChange(t *testing.T) {
	dir := t.TempDir()
	changed := make(chan struct{}, 1)

	w, err := NewWatcher(dir, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	writeTask(t, dir, "new.md", "# New task\n")

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the change")
	}
}
