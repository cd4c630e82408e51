package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hivetools/hive/config"
	"github.com/hivetools/hive/errors"
	"github.com/hivetools/hive/logging"
	"github.com/hivetools/hive/pkg/store"
	"github.com/hivetools/hive/pkg/tmux"
	"github.com/hivetools/hive/pkg/workspace"
	"github.com/hivetools/hive/util/sanitize"
)

// SnapshotEditor is the slice of the engine the lifecycle needs: it
// patches the published view immediately instead of waiting for the
// next poll cycle.
type SnapshotEditor interface {
	InsertStarting(meta store.Metadata)
	Remove(session string)
	Poke()
}

// Manager executes user-initiated session operations: create, reply,
// cycle mode, end, resume. Every mutation goes through the process
// manager and the metadata store, then nudges the engine.
type Manager struct {
	mgr         tmux.Manager
	store       *store.Store
	provisioner workspace.Provisioner
	engine      SnapshotEditor
	cfg         *config.Config
	log         *logrus.Entry
	logsDir     string
}

func NewManager(mgr tmux.Manager, st *store.Store, provisioner workspace.Provisioner, editor SnapshotEditor, cfg *config.Config) *Manager {
	return &Manager{
		mgr:         mgr,
		store:       st,
		provisioner: provisioner,
		engine:      editor,
		cfg:         cfg,
		log:         logging.NewLogger("lifecycle"),
		logsDir:     cfg.LogsDirOrDefault(),
	}
}

// CreateOptions describes a new agent session.
type CreateOptions struct {
	// Name is the desired session name, prefix excluded. Sanitized and
	// de-duplicated; the final name is returned by Create.
	Name string

	// Agent is the agent command, defaulting to the configured one.
	Agent string

	// RepoPath is the repository the agent works in. Defaults to the
	// current directory.
	RepoPath string

	// TaskPath links a task document, and seeds the initial prompt if
	// Prompt is empty.
	TaskPath string

	// Prompt is typed into the agent as its first instruction.
	Prompt string

	// Privileged skips the agent's permission prompts entirely.
	Privileged bool

	// Isolate runs the session in its own git worktree.
	Isolate bool
}

// Create starts a new supervised session and returns its full session
// name.
func (m *Manager) Create(ctx context.Context, opts CreateOptions) (string, error) {
	name := sanitize.ForSessionName(opts.Name)
	if name == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "session name is empty after sanitizing")
	}
	agent := opts.Agent
	if agent == "" {
		agent = m.cfg.General.DefaultAgent
	}

	// The registry stores absolute paths, so the linked-task join in
	// the engine only works if the metadata path is absolute too.
	taskPath := opts.TaskPath
	if taskPath != "" {
		if abs, err := filepath.Abs(taskPath); err == nil {
			taskPath = abs
		}
	}

	repoPath := opts.RepoPath
	if repoPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", errors.Wrap(err, errors.ErrCodeInternal, "cannot determine working directory")
		}
		repoPath = cwd
	}
	if _, err := os.Stat(repoPath); err != nil {
		return "", errors.New(errors.ErrCodeInvalidInput, "repo path does not exist: "+repoPath)
	}

	name, err := m.uniqueName(ctx, name)
	if err != nil {
		return "", err
	}
	session := tmux.SessionPrefix + name

	dir := repoPath
	worktreePath := ""
	if opts.Isolate {
		dir, err = m.provisioner.Provision(ctx, repoPath, name)
		if err != nil {
			return "", err
		}
		worktreePath = dir
	}

	prompt := opts.Prompt
	if prompt == "" && taskPath != "" {
		prompt = fmt.Sprintf(
			"Starting task. Read %s for context (include any Process Log). Summarize the task file before acting.",
			taskPath)
	}

	command := m.agentCommand(agent, prompt, opts.Privileged)
	if err := m.mgr.CreateSession(ctx, tmux.CreateOptions{
		Name:    session,
		Dir:     dir,
		Command: command,
	}); err != nil {
		if worktreePath != "" {
			_ = m.provisioner.Cleanup(ctx, repoPath, worktreePath)
		}
		return "", err
	}

	meta := store.Metadata{
		Session:      session,
		TaskPath:     taskPath,
		Agent:        agent,
		Privileged:   opts.Privileged,
		RepoPath:     repoPath,
		WorktreePath: worktreePath,
		CreatedAt:    time.Now(),
	}
	if err := m.store.Save(meta); err != nil {
		m.log.WithError(err).WithField("session", session).Warn("Failed to persist session metadata")
	}

	// Pipe setup is best effort; the session is already running.
	logPath := filepath.Join(m.logsDir, session+".log")
	if err := m.mgr.PipeToFile(ctx, session, logPath); err != nil {
		m.log.WithError(err).WithField("session", session).Warn("Pane log pipe failed")
	}

	if m.engine != nil {
		m.engine.InsertStarting(meta)
		m.engine.Poke()
	}
	return session, nil
}

// uniqueName suffixes -2, -3, ... until the name is free.
func (m *Manager) uniqueName(ctx context.Context, base string) (string, error) {
	existing, err := m.mgr.ListSessions(ctx)
	if err != nil {
		return "", err
	}
	taken := make(map[string]bool, len(existing))
	for _, s := range existing {
		taken[strings.TrimPrefix(s, tmux.SessionPrefix)] = true
	}

	name := base
	for counter := 2; taken[name]; counter++ {
		name = fmt.Sprintf("%s-%d", base, counter)
	}
	return name, nil
}

// agentCommand assembles the pane command for an agent. Claude gets
// permission flags; other agents run bare. The PATH prefix covers the
// common agent install locations tmux's non-login shell misses.
func (m *Manager) agentCommand(agent, prompt string, privileged bool) string {
	cmd := agent
	if agent == "claude" {
		if privileged {
			cmd += " --dangerously-skip-permissions"
		} else {
			cmd += " --permission-mode acceptEdits"
			for _, tool := range m.cfg.AllowedTools {
				cmd += fmt.Sprintf(" --allowedTools %q", tool)
			}
		}
	}
	if prompt != "" {
		cmd += fmt.Sprintf(" %q", prompt)
	}
	return fmt.Sprintf(`sh -c 'export PATH="$HOME/.claude/local:$HOME/.local/bin:$PATH"; exec %s'`, cmd)
}

// QuickReply types a line into the session without attaching.
func (m *Manager) QuickReply(ctx context.Context, session, text string) error {
	if err := m.mgr.SendText(ctx, session, text, true); err != nil {
		return err
	}
	if m.engine != nil {
		m.engine.Poke()
	}
	return nil
}

// CycleMode sends Shift+Tab, which cycles the agent's permission mode.
func (m *Manager) CycleMode(ctx context.Context, session string) error {
	return m.mgr.SendKey(ctx, session, "BTab")
}

// End kills a session and removes everything it left behind: the
// worktree, the metadata record, and the pane log.
func (m *Manager) End(ctx context.Context, session string) error {
	if err := m.mgr.KillSession(ctx, session); err != nil {
		return err
	}

	meta, err := m.store.Load(session)
	if err != nil {
		m.log.WithError(err).WithField("session", session).Warn("Unreadable metadata during cleanup")
	}
	if meta != nil && meta.WorktreePath != "" {
		if err := m.provisioner.Cleanup(ctx, meta.RepoPath, meta.WorktreePath); err != nil {
			m.log.WithError(err).WithField("session", session).Warn("Worktree cleanup failed")
		}
	}

	if err := m.store.Delete(session); err != nil {
		m.log.WithError(err).WithField("session", session).Warn("Metadata cleanup failed")
	}
	if err := os.Remove(filepath.Join(m.logsDir, session+".log")); err != nil && !os.IsNotExist(err) {
		m.log.WithError(err).WithField("session", session).Warn("Log cleanup failed")
	}

	if m.engine != nil {
		m.engine.Remove(session)
	}
	return nil
}

// Resume restarts a dead session from its stored metadata. A session
// that is still alive is left alone.
func (m *Manager) Resume(ctx context.Context, session string) error {
	live, err := m.mgr.ListSessions(ctx)
	if err != nil {
		return err
	}
	for _, s := range live {
		if s == session {
			return nil
		}
	}

	meta, err := m.store.Load(session)
	if err != nil {
		return err
	}
	if meta == nil {
		return errors.New(errors.ErrCodeInvalidInput, "no stored metadata for session "+session)
	}

	dir := meta.WorktreePath
	if dir == "" {
		dir = meta.RepoPath
	}
	if dir == "" || !dirExists(dir) {
		return errors.New(errors.ErrCodeInvalidInput, "stored working directory no longer exists for "+session)
	}

	prompt := ""
	if meta.TaskPath != "" {
		prompt = fmt.Sprintf(
			"Resuming task. Read %s for context (include any Process Log). Continue where the log leaves off.",
			meta.TaskPath)
	}

	if err := m.mgr.CreateSession(ctx, tmux.CreateOptions{
		Name:    session,
		Dir:     dir,
		Command: m.agentCommand(meta.Agent, prompt, meta.Privileged),
	}); err != nil {
		return err
	}

	if err := m.mgr.PipeToFile(ctx, session, filepath.Join(m.logsDir, session+".log")); err != nil {
		m.log.WithError(err).WithField("session", session).Warn("Pane log pipe failed")
	}
	if m.engine != nil {
		m.engine.InsertStarting(*meta)
		m.engine.Poke()
	}
	return nil
}

// AttachCommand returns the argv to exec for attaching a terminal to
// the session.
func (m *Manager) AttachCommand(session string) []string {
	return m.mgr.AttachCommand(session)
}

// CleanupOrphans removes metadata records and pane logs whose sessions
// are no longer alive. Returns the sessions cleaned up.
func (m *Manager) CleanupOrphans(ctx context.Context) ([]string, error) {
	live, err := m.mgr.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	alive := make(map[string]bool, len(live))
	for _, s := range live {
		alive[s] = true
	}

	stored, err := m.store.List()
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, session := range stored {
		if alive[session] {
			continue
		}
		meta, loadErr := m.store.Load(session)
		if loadErr == nil && meta != nil && meta.WorktreePath != "" {
			if err := m.provisioner.Cleanup(ctx, meta.RepoPath, meta.WorktreePath); err != nil {
				m.log.WithError(err).WithField("session", session).Warn("Orphan worktree cleanup failed")
			}
		}
		if err := m.store.Delete(session); err != nil {
			m.log.WithError(err).WithField("session", session).Warn("Orphan metadata cleanup failed")
			continue
		}
		removed = append(removed, session)
	}

	// Logs whose session is gone, whether or not metadata existed.
	entries, err := os.ReadDir(m.logsDir)
	if err != nil && !os.IsNotExist(err) {
		return removed, nil
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, tmux.SessionPrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		session := strings.TrimSuffix(name, ".log")
		if !alive[session] {
			_ = os.Remove(filepath.Join(m.logsDir, name))
		}
	}

	if m.engine != nil && len(removed) > 0 {
		m.engine.Poke()
	}
	return removed, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
