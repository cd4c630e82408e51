package errors

import (
	"fmt"
	"os/exec"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *HiveError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *HiveError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// ManagerUnavailable creates an error indicating the tmux server cannot be reached.
// Callers treat this as "no change", not "no sessions".
func ManagerUnavailable(err error) *HiveError {
	return Wrap(err, ErrCodeManagerUnavailable, "tmux server is unreachable")
}

// SessionVanished creates an error for a session that disappeared between
// enumeration and a follow-up call. This is an expected race, not a failure.
func SessionVanished(session string) *HiveError {
	return New(ErrCodeSessionVanished, fmt.Sprintf("session '%s' no longer exists", session)).
		WithDetail("session", session)
}

// CaptureTimeout creates a per-session capture timeout error
func CaptureTimeout(session string, timeout string) *HiveError {
	return New(ErrCodeCaptureTimeout,
		fmt.Sprintf("capture for session '%s' did not complete within %s", session, timeout)).
		WithDetail("session", session).
		WithDetail("timeout", timeout)
}

// CreateConflict creates an error for a session id collision
func CreateConflict(session string) *HiveError {
	return New(ErrCodeCreateConflict, fmt.Sprintf("session '%s' already exists", session)).
		WithDetail("session", session)
}

// MetadataCorrupt creates an error for an unreadable metadata record.
// Callers treat the metadata as absent.
func MetadataCorrupt(path string, err error) *HiveError {
	return Wrap(err, ErrCodeMetadataCorrupt, fmt.Sprintf("session metadata unreadable: %s", path)).
		WithDetail("path", path)
}

// CommandFailed creates a command execution failure error
func CommandFailed(cmd string, err error) *HiveError {
	hiveErr := Wrap(err, ErrCodeCommandFailed, fmt.Sprintf("command failed: %s", cmd)).
		WithDetail("command", cmd)

	// Extract exit code if available
	if exitErr, ok := err.(*exec.ExitError); ok {
		hiveErr = hiveErr.WithDetail("exitCode", exitErr.ExitCode())
	}

	return hiveErr
}
