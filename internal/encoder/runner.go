// Package encoder spawns and drives the ffmpeg processes used for capture
// and post-processing.
package encoder

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"syscall"
	"time"

	child_process_manager "github.com/AgustinSRG/go-child-process-manager"

	"github.com/tiroq/screenrec/internal/diaglog"
)

// DefaultKillGrace is how long Terminate waits after SIGTERM before it
// kills the process group.
const DefaultKillGrace = 10 * time.Second

// Runner starts long-lived encoders and runs one-shot conversions.
type Runner interface {
	// Start spawns a capture encoder and returns without waiting for it.
	Start(inv Invocation) (*Process, error)
	// Run executes a conversion to completion.
	Run(ctx context.Context, inv Invocation) error
	// Terminate asks p to finish its output and waits for it to exit.
	// A process that is already gone is not an error.
	Terminate(p *Process) error
}

// FFmpeg runs invocations with the ffmpeg binary.
type FFmpeg struct {
	Binary    string
	KillGrace time.Duration

	log       *diaglog.Logger
	sessionID string
}

// NewFFmpeg returns a runner for binary, "ffmpeg" when empty.
func NewFFmpeg(binary string) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{
		Binary:    binary,
		KillGrace: DefaultKillGrace,
		log:       diaglog.NewNoOp(),
	}
}

// SetLogger attaches a diagnostic logger.
func (f *FFmpeg) SetLogger(l *diaglog.Logger) {
	if l == nil {
		l = diaglog.NewNoOp()
	}
	f.log = l
}

// SetSessionID tags subsequent diagnostic entries.
func (f *FFmpeg) SetSessionID(id string) {
	f.sessionID = id
}

func (f *FFmpeg) Start(inv Invocation) (*Process, error) {
	cmd := exec.Command(f.Binary, inv.Args...)
	f.configure(cmd, inv.Purpose)

	// Pid is filled in once the process is running
	proc, finish := NewProcess(0, inv.Purpose, inv.Output)
	cmd.Stderr = proc.tail

	if err := cmd.Start(); err != nil {
		f.logEvent(diaglog.EventSpawn, "failed", map[string]interface{}{
			"purpose": string(inv.Purpose),
			"error":   err.Error(),
		})
		return nil, &SpawnError{Purpose: inv.Purpose, Err: err}
	}
	proc.Pid = cmd.Process.Pid
	f.track(cmd, inv.Purpose)

	go func() {
		finish(cmd.Wait())
	}()

	f.logEvent(diaglog.EventSpawn, "", map[string]interface{}{
		"purpose": string(inv.Purpose),
		"pid":     proc.Pid,
		"output":  inv.Output,
		"args":    strings.Join(inv.Args, " "),
	})
	return proc, nil
}

func (f *FFmpeg) Run(ctx context.Context, inv Invocation) error {
	tail := newTailBuffer(defaultTailSize)
	cmd := exec.CommandContext(ctx, f.Binary, inv.Args...)
	f.configure(cmd, inv.Purpose)
	cmd.Stderr = tail

	start := time.Now()
	err := cmd.Start()
	if err == nil {
		f.track(cmd, inv.Purpose)
		err = cmd.Wait()
	}
	payload := map[string]interface{}{
		"purpose":     string(inv.Purpose),
		"output":      inv.Output,
		"duration_ms": time.Since(start).Milliseconds(),
	}

	if err == nil {
		f.logEvent(diaglog.EventEncoderRun, "", payload)
		return nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) && cmd.Process == nil {
		payload["error"] = err.Error()
		f.logEvent(diaglog.EventSpawn, "failed", payload)
		return &SpawnError{Purpose: inv.Purpose, Err: err}
	}

	code := -1
	if exitErr != nil {
		code = exitErr.ExitCode()
	}
	payload["exit_code"] = code
	f.logEvent(diaglog.EventEncoderFailed, err.Error(), payload)

	return &EncoderError{
		Purpose:  inv.Purpose,
		Output:   inv.Output,
		ExitCode: code,
		Stderr:   tail.String(),
		Err:      err,
	}
}

// configure ties cmd to the lifetime of this process and puts it in its own
// process group, so a stuck encoder can be killed with its children.
func (f *FFmpeg) configure(cmd *exec.Cmd, purpose Purpose) {
	if err := child_process_manager.ConfigureCommand(cmd); err != nil {
		f.logEvent(diaglog.EventSpawn, "child process setup failed", map[string]interface{}{
			"purpose": string(purpose),
			"error":   err.Error(),
		})
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

func (f *FFmpeg) track(cmd *exec.Cmd, purpose Purpose) {
	if err := child_process_manager.AddChildProcess(cmd.Process); err != nil {
		f.logEvent(diaglog.EventSpawn, "child process tracking failed", map[string]interface{}{
			"purpose": string(purpose),
			"pid":     cmd.Process.Pid,
			"error":   err.Error(),
		})
	}
}

func (f *FFmpeg) Terminate(p *Process) error {
	if p == nil || p.Exited() {
		return nil
	}

	if err := syscall.Kill(p.Pid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		f.logEvent(diaglog.EventSignal, "failed", map[string]interface{}{
			"pid":   p.Pid,
			"error": err.Error(),
		})
		return &SignalError{Pid: p.Pid, Err: err}
	}
	f.logEvent(diaglog.EventSignal, "SIGTERM", map[string]interface{}{
		"pid":     p.Pid,
		"purpose": string(p.Purpose),
	})

	grace := f.KillGrace
	if grace <= 0 {
		grace = DefaultKillGrace
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-p.Done():
	case <-timer.C:
		_ = syscall.Kill(-p.Pid, syscall.SIGKILL)
		f.logEvent(diaglog.EventSignal, "SIGKILL", map[string]interface{}{
			"pid":     p.Pid,
			"purpose": string(p.Purpose),
		})
		<-p.Done()
	}
	return nil
}

func (f *FFmpeg) logEvent(event, reason string, payload map[string]interface{}) {
	f.log.Log(diaglog.LogEntry{
		Component: diaglog.ComponentEncoder,
		Event:     event,
		SessionID: f.sessionID,
		Reason:    reason,
		Payload:   payload,
	})
}
