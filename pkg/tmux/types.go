package tmux

import (
	"context"
	"time"
)

// SessionPrefix marks the tmux sessions this tool owns. Everything
// else on the server is left alone.
const SessionPrefix = "hive-"

// CreateOptions describes a new detached session.
type CreateOptions struct {
	Name string
	// Dir is the initial working directory of the pane.
	Dir string
	// Command, if set, replaces the default shell as the pane command.
	Command string
}

// Manager abstracts the tmux operations the reconciliation engine and
// the session lifecycle depend on. The engine only ever talks to this
// interface, so tests substitute a fake server.
type Manager interface {
	// ListSessions returns the names of live sessions carrying
	// SessionPrefix. A tmux server with no sessions is an empty
	// list, not an error.
	ListSessions(ctx context.Context) ([]string, error)

	// CaptureTail returns the last n lines of the session's first pane,
	// with wrapped lines rejoined.
	CaptureTail(ctx context.Context, session string, lines int) (string, error)

	// LastActivity reports when the session's panes last produced
	// output. The zero time means unknown.
	LastActivity(ctx context.Context, session string) (time.Time, error)

	// SendText types text into the session literally, pressing Enter when submit is set.
	SendText(ctx context.Context, session, text string, submit bool) error

	// SendKey sends a single named key, e.g. "BTab" or "C-c".
	SendKey(ctx context.Context, session, key string) error

	CreateSession(ctx context.Context, opts CreateOptions) error

	// KillSession terminates a session. Killing a session that is
	// already gone is not an error.
	KillSession(ctx context.Context, session string) error

	// SessionPath returns the current working directory of the
	// session's active pane, or "" if it cannot be determined.
	SessionPath(ctx context.Context, session string) (string, error)

	// PipeToFile appends all future pane output to the given file.
	PipeToFile(ctx context.Context, session, path string) error

	// AttachCommand returns the argv a caller should exec to attach.
	AttachCommand(session string) []string
}
