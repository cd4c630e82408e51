package tmux

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hivetools/hive/command"
	"github.com/hivetools/hive/errors"
)

// Client drives a real tmux server through the tmux binary.
type Client struct {
	builder *command.SafeBuilder
	socket  string // Socket name for a dedicated tmux server (uses -L flag)
}

// NewClient builds a client for the default tmux server. Tests set
// HIVE_TMUX_SOCKET so spawned processes share an isolated server.
func NewClient() (*Client, error) {
	if _, err := exec.LookPath("tmux"); err != nil {
		return nil, errors.ManagerUnavailable(fmt.Errorf("tmux not found in PATH: %w", err))
	}

	socket := ""
	if testSocket := os.Getenv("HIVE_TMUX_SOCKET"); testSocket != "" {
		socket = testSocket
	}

	return &Client{
		builder: command.NewSafeBuilder(),
		socket:  socket,
	}, nil
}

// NewClientWithSocket builds a client that uses a dedicated server
// socket, isolated from the default tmux server.
func NewClientWithSocket(socket string) (*Client, error) {
	if _, err := exec.LookPath("tmux"); err != nil {
		return nil, errors.ManagerUnavailable(fmt.Errorf("tmux not found in PATH: %w", err))
	}
	return &Client{
		builder: command.NewSafeBuilder(),
		socket:  socket,
	}, nil
}

var _ Manager = (*Client)(nil)

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	if c.socket != "" {
		args = append([]string{"-L", c.socket}, args...)
	}

	cmd, err := c.builder.Build(ctx, "tmux", args...)
	if err != nil {
		return "", fmt.Errorf("failed to build command: %w", err)
	}

	output, err := cmd.Exec().CombinedOutput()
	if err != nil {
		cmdStr := "tmux " + strings.Join(args, " ")
		return string(output), fmt.Errorf("tmux command failed: `%s`: %w, output: %s", cmdStr, err, string(output))
	}

	return string(output), nil
}

// ensureServer clears a stale socket left by a crashed server so the
// next tmux command can start a fresh one.
func (c *Client) ensureServer(ctx context.Context) {
	_, err := c.run(ctx, "list-sessions")
	if err == nil || !strings.Contains(err.Error(), "no server running") {
		return
	}
	if c.socket != "" {
		// Named sockets are recreated by tmux itself.
		return
	}
	socketPath := filepath.Join(fmt.Sprintf("/tmp/tmux-%d", os.Getuid()), "default")
	if _, statErr := os.Stat(socketPath); statErr == nil {
		_ = os.Remove(socketPath)
	}
}

func (c *Client) ListSessions(ctx context.Context) ([]string, error) {
	output, err := c.run(ctx, "list-sessions", "-F", "#{session_name}")
	if err != nil {
		// A server with no sessions and a missing server both mean
		// "nothing to supervise".
		if strings.Contains(err.Error(), "no server running") || strings.Contains(err.Error(), "exit status 1") {
			return []string{}, nil
		}
		return nil, errors.ManagerUnavailable(err)
	}
	return filterOwnedSessions(output), nil
}

func (c *Client) CaptureTail(ctx context.Context, session string, lines int) (string, error) {
	budget := time.Duration(0)
	if deadline, ok := ctx.Deadline(); ok {
		budget = time.Until(deadline)
	}

	output, err := c.run(ctx, "capture-pane", "-p", "-J",
		"-t", session+":0.0",
		"-S", fmt.Sprintf("-%d", lines))
	if err != nil {
		if isMissingSession(err) {
			return "", errors.SessionVanished(session)
		}
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.CaptureTimeout(session, budget.Round(time.Millisecond).String())
		}
		return "", errors.CommandFailed("tmux capture-pane", err)
	}
	return output, nil
}

func (c *Client) LastActivity(ctx context.Context, session string) (time.Time, error) {
	output, err := c.run(ctx, "list-panes", "-t", "="+session, "-F", "#{pane_last_used}")
	if err != nil {
		if isMissingSession(err) {
			return time.Time{}, errors.SessionVanished(session)
		}
		// Unknown activity is degraded data, not a hard failure.
		return time.Time{}, nil
	}
	return latestEpoch(output), nil
}

func (c *Client) SendText(ctx context.Context, session, text string, submit bool) error {
	// Literal mode first so the payload is never interpreted as key names.
	if _, err := c.run(ctx, "send-keys", "-l", "-t", "="+session, text); err != nil {
		if isMissingSession(err) {
			return errors.SessionVanished(session)
		}
		return errors.CommandFailed("tmux send-keys", err)
	}
	if !submit {
		return nil
	}
	if _, err := c.run(ctx, "send-keys", "-t", "="+session, "Enter"); err != nil {
		return errors.CommandFailed("tmux send-keys Enter", err)
	}
	return nil
}

func (c *Client) SendKey(ctx context.Context, session, key string) error {
	if _, err := c.run(ctx, "send-keys", "-t", "="+session, key); err != nil {
		if isMissingSession(err) {
			return errors.SessionVanished(session)
		}
		return errors.CommandFailed("tmux send-keys "+key, err)
	}
	return nil
}

func (c *Client) CreateSession(ctx context.Context, opts CreateOptions) error {
	if err := c.builder.Validate("sessionName", opts.Name); err != nil {
		return err
	}

	c.ensureServer(ctx)

	if _, err := c.run(ctx, "has-session", "-t", "="+opts.Name); err == nil {
		return errors.CreateConflict(opts.Name)
	}

	args := []string{"new-session", "-d", "-s", opts.Name}
	if opts.Dir != "" {
		args = append(args, "-c", opts.Dir)
	}
	if opts.Command != "" {
		args = append(args, opts.Command)
	}
	if _, err := c.run(ctx, args...); err != nil {
		return errors.CommandFailed("tmux new-session", err)
	}
	return nil
}

func (c *Client) KillSession(ctx context.Context, session string) error {
	_, err := c.run(ctx, "kill-session", "-t", "="+session)
	if err != nil && !isMissingSession(err) && !strings.Contains(err.Error(), "no server running") {
		return errors.CommandFailed("tmux kill-session", err)
	}
	return nil
}

func (c *Client) SessionPath(ctx context.Context, session string) (string, error) {
	output, err := c.run(ctx, "display-message", "-p", "-t", "="+session, "#{pane_current_path}")
	if err != nil {
		if isMissingSession(err) {
			return "", errors.SessionVanished(session)
		}
		return "", nil
	}
	return strings.TrimSpace(output), nil
}

// PipeToFile retries because a freshly started server may not accept
// pipe-pane immediately.
func (c *Client) PipeToFile(ctx context.Context, session, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	pipeCmd := fmt.Sprintf("cat >> %s", path)
	target := session + ":0.0"

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			time.Sleep(50 * time.Millisecond)
		}
		if _, err := c.run(ctx, "pipe-pane", "-t", target, pipeCmd); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return errors.CommandFailed("tmux pipe-pane", lastErr).WithDetail("session", session)
}

func (c *Client) AttachCommand(session string) []string {
	args := []string{"tmux"}
	if c.socket != "" {
		args = append(args, "-L", c.socket)
	}
	return append(args, "attach-session", "-t", "="+session)
}

// Socket returns the socket name this client uses, or "" for the
// default server.
func (c *Client) Socket() string {
	return c.socket
}

func isMissingSession(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "can't find session") ||
		strings.Contains(msg, "session not found") ||
		strings.Contains(msg, "no such session")
}

// filterOwnedSessions keeps only lines carrying SessionPrefix.
func filterOwnedSessions(output string) []string {
	sessions := []string{}
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		name := strings.TrimSpace(line)
		if strings.HasPrefix(name, SessionPrefix) {
			sessions = append(sessions, name)
		}
	}
	return sessions
}

// latestEpoch picks the newest per-pane timestamp from list-panes
// output. Lines that do not parse are skipped.
func latestEpoch(output string) time.Time {
	var max int64
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		epoch, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
		if err != nil {
			continue
		}
		if epoch > max {
			max = epoch
		}
	}
	if max == 0 {
		return time.Time{}
	}
	return time.Unix(max, 0)
}
