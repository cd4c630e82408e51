package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hivetools/hive/errors"
	"github.com/hivetools/hive/pkg/paths"
)

// Metadata is the per-session record kept on disk. It survives tmux
// server restarts, which is what lets a later refresh re-associate a
// live session with its task document and worktree.
type Metadata struct {
	Session      string    `json:"session"`
	TaskPath     string    `json:"task_path,omitempty"`
	Agent        string    `json:"agent"`
	Privileged   bool      `json:"privileged,omitempty"`
	RepoPath     string    `json:"repo_path,omitempty"`
	WorktreePath string    `json:"worktree_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store is a filesystem registry of session metadata, one directory
// per session under the state dir.
type Store struct {
	baseDir string
}

// NewStore opens the registry at the platform default location.
func NewStore() (*Store, error) {
	baseDir := paths.SessionsDir()
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// NewStoreAt opens the registry rooted at an explicit directory.
func NewStoreAt(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Dir returns the on-disk directory for a session.
func (s *Store) Dir(session string) string {
	return filepath.Join(s.baseDir, session)
}

func (s *Store) metadataPath(session string) string {
	return filepath.Join(s.Dir(session), "metadata.json")
}

// Save writes the session record, creating its directory if needed.
func (s *Store) Save(meta Metadata) error {
	if meta.Session == "" {
		return errors.New(errors.ErrCodeInvalidInput, "metadata requires a session name")
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}

	dir := s.Dir(meta.Session)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(s.metadataPath(meta.Session), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata.json: %w", err)
	}
	return nil
}

// Load reads a session record. A session with no record returns
// (nil, nil); an unreadable record returns a MetadataCorrupt error and
// callers treat the record as absent.
func (s *Store) Load(session string) (*Metadata, error) {
	data, err := os.ReadFile(s.metadataPath(session))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.MetadataCorrupt(s.metadataPath(session), err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.MetadataCorrupt(s.metadataPath(session), err)
	}
	return &meta, nil
}

// Delete removes the session's directory and everything in it.
// Deleting a session with no record is not an error.
func (s *Store) Delete(session string) error {
	if err := os.RemoveAll(s.Dir(session)); err != nil {
		return fmt.Errorf("failed to remove session directory: %w", err)
	}
	return nil
}

// List returns the names of all sessions with a directory in the
// registry, sorted. Some may have corrupt or missing metadata; Load
// decides that per session.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
