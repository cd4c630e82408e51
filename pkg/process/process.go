// Package process guards against concurrent reconciliation loops. Two
// loops polling the same sessions would race on pane pipes and fire
// duplicate notifications, so the run loop takes a pid file lock.
package process

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// IsAlive checks if a process with the given PID is still running.
// It uses a signal-sending method that works on Unix-like systems.
func IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	// FindProcess never fails on Unix for a valid pid.
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Signal 0 probes for existence without delivering anything.
	// EPERM means the process exists but belongs to someone else.
	err = process.Signal(syscall.Signal(0))
	return err == nil || os.IsPermission(err)
}

// PidFile is an exclusive-run lock backed by a file holding the owner's
// pid. A file left behind by a dead process is silently reclaimed.
type PidFile struct {
	path string
}

// Acquire writes the current pid to path, failing if another live
// process already holds it.
func Acquire(path string) (*PidFile, error) {
	if data, err := os.ReadFile(path); err == nil {
		pid, convErr := strconv.Atoi(strings.TrimSpace(string(data)))
		if convErr == nil && IsAlive(pid) && pid != os.Getpid() {
			return nil, fmt.Errorf("already running with pid %d (%s)", pid, path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return nil, err
	}
	return &PidFile{path: path}, nil
}

// Release removes the pid file. Safe to call even if the file is gone.
func (p *PidFile) Release() {
	if p == nil {
		return
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return
	}
	// Only remove our own claim.
	if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && pid == os.Getpid() {
		os.Remove(p.path)
	}
}
