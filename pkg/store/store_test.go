package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivetools/hive/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStoreAt(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestSaveAndLoad(t *testing.T) {
	s := newTestStore(t)

	created := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	meta := Metadata{
		Session:      "hive-fix-auth",
		TaskPath:     "/tasks/fix-auth.md",
		Agent:        "claude",
		Privileged:   true,
		RepoPath:     "/repos/api",
		WorktreePath: "/worktrees/fix-auth",
		CreatedAt:    created,
	}
	require.NoError(t, s.Save(meta))

	loaded, err := s.Load("hive-fix-auth")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, meta, *loaded)
}

func TestSaveRequiresSessionName(t *testing.T) {
	s := newTestStore(t)
	err := s.Save(Metadata{Agent: "claude"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
}

func TestSaveFillsCreatedAt(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(Metadata{Session: "hive-a", Agent: "claude"}))

	loaded, err := s.Load("hive-a")
	require.NoError(t, err)
	assert.False(t, loaded.CreatedAt.IsZero())
}

func TestLoadMissingSession(t *testing.T) {
	s := newTestStore(t)
	loaded, err := s.Load("hive-never-created")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLoadCorruptMetadata(t *testing.T) {
	s := newTestStore(t)
	dir := s.Dir("hive-broken")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.json"), []byte("{not json"), 0644))

	loaded, err := s.Load("hive-broken")
	assert.Nil(t, loaded)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeMetadataCorrupt, errors.GetCode(err))
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(Metadata{Session: "hive-a", Agent: "claude"}))

	require.NoError(t, s.Delete("hive-a"))
	loaded, err := s.Load("hive-a")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Deleting again is fine.
	require.NoError(t, s.Delete("hive-a"))
}

func TestList(t *testing.T) {
	s := newTestStore(t)

	names, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, s.Save(Metadata{Session: "hive-b", Agent: "claude"}))
	require.NoError(t, s.Save(Metadata{Session: "hive-a", Agent: "codex"}))

	names, err = s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"hive-a", "hive-b"}, names)
}
