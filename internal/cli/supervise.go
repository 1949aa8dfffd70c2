package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/tiroq/screenrec/internal/config"
	"github.com/tiroq/screenrec/internal/ipc"
	"github.com/tiroq/screenrec/internal/session"
	"github.com/tiroq/screenrec/internal/validation"
)

// starter is the part of the orchestrator a supervised start needs
type starter interface {
	Start(ctx context.Context, cfg config.RecordingConfig) error
}

// startInterruptible runs Start while still listening to events, so a stop
// that arrives during the start delay cancels the pending start. It returns
// the interrupting command, if any, and Start's result. When Start won the
// race the session is recording and the caller must stop it.
func startInterruptible(ctx context.Context, s starter, cfg config.RecordingConfig, events <-chan ipc.Command, logs *Logs) (ipc.Command, error) {
	startCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Start(startCtx, cfg) }()

	for {
		select {
		case err := <-done:
			return "", err

		case cmd := <-events:
			switch cmd {
			case ipc.CmdStop, ipc.CmdToggle, ipc.CmdQuit:
				logs.Out.Printf("Received %s while starting, cancelling pending start", cmd)
				cancel()
				return cmd, <-done
			default:
				logs.Out.Printf("Ignoring %s while a start is in progress", cmd)
			}
		}
	}
}

// forwardSignals turns SIGINT and SIGTERM into cmd on events until ctx ends
func forwardSignals(ctx context.Context, events chan<- ipc.Command, cmd ipc.Command, logs *Logs) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	logs.Out.Println("Signal handlers registered (SIGINT, SIGTERM)")

	go func() {
		defer signal.Stop(sigChan)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigChan:
				logs.Out.Printf("Received signal %s", sig)
				select {
				case events <- cmd:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
}

// logFailure writes err and its troubleshooting hints to the error log
func logFailure(logs *Logs, what string, err error) {
	if errors.Is(err, session.ErrConflictDeclined) {
		logs.Out.Printf("%s cancelled: %v", what, err)
		return
	}
	logs.Err.Printf("%s failed: %v", what, err)
	for _, fix := range validation.SuggestedFixes(err) {
		if fix != "" {
			logs.Err.Printf("  %s", fix)
		}
	}
}
