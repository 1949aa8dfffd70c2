// Package pidfile keeps a single recording daemon per user.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// AlreadyRunningError is returned by New when a live daemon owns the file
type AlreadyRunningError struct {
	PID int
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("another instance is already running (PID %d)", e.PID)
}

// PIDFile is a held PID file
type PIDFile struct {
	path string
	pid  int
}

// New claims path for the current process. A file left by a process that
// no longer exists is replaced.
func New(path string) (*PIDFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create PID directory: %w", err)
	}

	if pid, running := Lookup(path); running {
		return nil, &AlreadyRunningError{PID: pid}
	} else if pid != 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale PID file: %w", err)
		}
	}

	current := os.Getpid()
	if err := os.WriteFile(path, []byte(strconv.Itoa(current)+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("failed to write PID file: %w", err)
	}

	return &PIDFile{path: path, pid: current}, nil
}

// Path returns the file location
func (p *PIDFile) Path() string {
	return p.path
}

// Remove deletes the PID file if it still names this process
func (p *PIDFile) Remove() error {
	if p == nil {
		return nil
	}
	if pid, err := read(p.path); err == nil && pid == p.pid {
		return os.Remove(p.path)
	}
	return nil
}

// Lookup returns the PID recorded at path and whether that process is
// alive. pid is 0 when the file is missing or unreadable.
func Lookup(path string) (pid int, running bool) {
	pid, err := read(path)
	if err != nil {
		return 0, false
	}
	return pid, isProcessRunning(pid)
}

// Signal sends sig to the daemon recorded at path
func Signal(path string, sig syscall.Signal) error {
	pid, running := Lookup(path)
	if !running {
		return fmt.Errorf("no daemon running (PID file %s)", path)
	}
	return syscall.Kill(pid, sig)
}

// DefaultPath returns ~/.cache/screenrec/<appName>.pid
func DefaultPath(appName string) string {
	return filepath.Join(os.Getenv("HOME"), ".cache", "screenrec", appName+".pid")
}

func read(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file %s: %w", path, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("invalid PID %d in %s", pid, path)
	}
	return pid, nil
}

// isProcessRunning checks pid with signal 0
func isProcessRunning(pid int) bool {
	err := syscall.Kill(pid, syscall.Signal(0))
	switch {
	case err == nil:
		return true
	case errors.Is(err, syscall.EPERM):
		// exists, owned by someone else
		return true
	default:
		return false
	}
}
