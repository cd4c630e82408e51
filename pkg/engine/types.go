package engine

import (
	"time"

	"github.com/hivetools/hive/pkg/classify"
	"github.com/hivetools/hive/pkg/tasks"
)

// SessionRecord is everything the engine knows about one live agent
// session, merged from the process manager, the metadata store, and
// the task registry.
type SessionRecord struct {
	// Session is the full tmux session name, prefix included.
	Session string `json:"session"`
	// Name is the session name with the prefix stripped, for display.
	Name string `json:"name"`

	Status classify.Status `json:"status"`

	// Stale marks a record whose capture failed this cycle; all other
	// fields carry over from the previous cycle.
	Stale bool `json:"stale"`

	// Tail is the recent output used for classification.
	Tail []string `json:"tail"`
	// LastActivity is when the pane last produced output. Zero means
	// unknown.
	LastActivity time.Time `json:"last_activity"`

	Agent      string `json:"agent"`
	Privileged bool `json:"privileged"`

	TaskPath  string `json:"task_path,omitempty"`
	TaskTitle string `json:"task_title,omitempty"`

	WorktreePath string `json:"worktree_path,omitempty"`
	// Dir is the session's working directory as reported by the
	// process manager, or "" if unavailable.
	Dir string `json:"dir,omitempty"`

	LogPath   string `json:"log_path"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot is one immutable, consistent view of every supervised
// session plus the pending task list. Readers share it without
// locking; the engine publishes a fresh one and never mutates a
// published snapshot.
type Snapshot struct {
	// Seq increases by one per publish. Readers can detect missed
	// updates; writers use it to keep publishes ordered.
	Seq uint64 `json:"seq"`

	TakenAt time.Time `json:"taken_at"`

	// Sessions keeps a stable order across cycles: survivors stay in
	// place, new sessions append in name order, removed ones splice out.
	Sessions []SessionRecord `json:"sessions"`

	PendingTasks []tasks.Task `json:"pending_tasks"`

	// ManagerDown is set when the process manager could not be reached
	// this cycle. Sessions then carry over unchanged rather than being
	// treated as all gone.
	ManagerDown bool `json:"manager_down"`
}

// Session returns the record for a session name, or nil.
func (s *Snapshot) Session(name string) *SessionRecord {
	for i := range s.Sessions {
		if s.Sessions[i].Session == name {
			return &s.Sessions[i]
		}
	}
	return nil
}
