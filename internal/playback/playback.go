// Package playback opens finished recordings in the desktop's default
// player.
package playback

import (
	"fmt"
	"os/exec"
	"syscall"

	"github.com/tiroq/screenrec/internal/detector"
	"github.com/tiroq/screenrec/internal/diaglog"
)

// Starter launches a process without waiting for it.
type Starter interface {
	Start(name string, args ...string) error
}

// ExecStarter starts detached child processes and reaps them in the
// background.
type ExecStarter struct{}

// Start runs name in its own process group and returns once it is running.
func (ExecStarter) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Launcher picks the opener for the packaging context: inside a snap the
// host's handler is reached through snapctl.
type Launcher struct {
	starter   Starter
	sandboxed bool
	log       *diaglog.Logger
}

// NewLauncher creates a launcher. sandboxed selects snapctl user-open.
func NewLauncher(starter Starter, sandboxed bool) *Launcher {
	if starter == nil {
		starter = ExecStarter{}
	}
	return &Launcher{starter: starter, sandboxed: sandboxed, log: diaglog.NewNoOp()}
}

// NewLauncherFor creates a launcher for a detected environment. A nil env
// is treated as unsandboxed.
func NewLauncherFor(starter Starter, env *detector.Environment) *Launcher {
	return NewLauncher(starter, env != nil && env.Sandboxed)
}

// SetLogger attaches a diagnostic logger.
func (l *Launcher) SetLogger(dl *diaglog.Logger) {
	if dl == nil {
		dl = diaglog.NewNoOp()
	}
	l.log = dl
}

// Command returns the program and arguments used to open path.
func (l *Launcher) Command(path string) (string, []string) {
	if l.sandboxed {
		return "snapctl", []string{"user-open", path}
	}
	return "xdg-open", []string{path}
}

// Open launches the opener for path. The player is not awaited.
func (l *Launcher) Open(path string) error {
	name, args := l.Command(path)
	err := l.starter.Start(name, args...)

	entry := diaglog.LogEntry{
		Component: diaglog.ComponentPlayback,
		Event:     diaglog.EventSpawn,
		Payload:   map[string]interface{}{"opener": name, "path": path},
	}
	if err != nil {
		entry.Reason = err.Error()
	}
	l.log.Log(entry)
	return err
}
