package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tiroq/screenrec/internal/config"
	"github.com/tiroq/screenrec/internal/diaglog"
	"github.com/tiroq/screenrec/internal/ipc"
	"github.com/tiroq/screenrec/internal/pidfile"
	"github.com/tiroq/screenrec/internal/session"
	"github.com/tiroq/screenrec/internal/version"
)

// statusRefresh is how often the status file is rewritten while recording
const statusRefresh = 5 * time.Second

func NewDaemonCmd(deps *Dependencies) *cobra.Command {
	var foreground bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run resident and accept start/stop/toggle/play/quit commands",
		Long: "Run resident, recording with the settings from " + config.FilePath() + ".\n" +
			"Control it with 'screenrec start|stop|toggle|play|quit' or by writing the command to\n" +
			ipc.CommandPath() + ".",
		RunE: func(cmd *cobra.Command, args []string) error {
			var echo io.Writer
			if foreground {
				echo = os.Stderr
			}
			return runDaemon(cmd.Context(), deps.Defaults, echo)
		},
	}
	cmd.Flags().BoolVar(&foreground, "log-stderr", false, "Also write the log to stderr")
	return cmd
}

// daemon is the single control goroutine driving the orchestrator
type daemon struct {
	defaults *config.Defaults
	logs     *Logs
	app      *app
	status   *ipc.StatusReporter
	events   chan ipc.Command
}

func runDaemon(ctx context.Context, defaults *config.Defaults, echo io.Writer) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logs, err := openLogs("[screenrec-daemon]", echo)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logs.Close()

	defer func() {
		if r := recover(); r != nil {
			logs.Err.Printf("PANIC: %v", r)
			err = fmt.Errorf("daemon panicked: %v", r)
		}
	}()

	logs.Out.Println("===========================================")
	logs.Out.Println("Starting screenrec daemon " + version.Version + "...")
	logs.Out.Printf("PID: %d", os.Getpid())
	logs.Out.Printf("Timestamp: %s", time.Now().Format(time.RFC3339))
	logs.Out.Println("===========================================")

	pidFilePath := pidfile.DefaultPath("screenrec")
	pf, err := pidfile.New(pidFilePath)
	if err != nil {
		logs.Err.Printf("Failed to create PID file: %v", err)
		logs.Err.Printf("If you're sure no other instance is running, remove: %s", pidFilePath)
		return err
	}
	defer func() {
		logs.Out.Println("Cleaning up before exit...")
		if err := pf.Remove(); err != nil {
			logs.Err.Printf("Warning: failed to remove PID file: %v", err)
		}
	}()
	logs.Out.Printf("PID file created: %s (PID %d)", pidFilePath, os.Getpid())

	logs.Out.Printf("[STARTUP] Output: %s (format=%s, video=%v, audio=%v)",
		defaults.OutputDir, defaults.Format, defaults.RecordVideo, defaults.RecordAudio)

	status := ipc.NewStatusReporter(nil, logs.Err)
	a := newApp(logs, session.StaticConfirmer(defaults.Overwrite), status)
	defer a.Close()
	status.Bind(a.orch.Status)

	d := &daemon{
		defaults: defaults,
		logs:     logs,
		app:      a,
		status:   status,
		events:   make(chan ipc.Command, 8),
	}

	status.SetLastAction("startup")
	status.Publish()

	logs.Out.Println("[STARTUP] Starting command file watcher...")
	watcher := newCommandWatcher(logs, d.events)
	watcher.drain()
	go watcher.Run(ctx)
	forwardSignals(ctx, d.events, ipc.CmdQuit, logs)

	logs.Out.Println("[RUNNING] screenrec daemon is waiting for commands")
	d.loop(ctx)

	logs.Out.Println("[SHUTDOWN] Shutting down gracefully")
	logs.Out.Println("===========================================")
	return nil
}

func (d *daemon) loop(ctx context.Context) {
	ticker := time.NewTicker(statusRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.shutdown()
			return

		case <-ticker.C:
			if d.app.orch.IsRecording() {
				d.status.Publish()
			}

		case cmd := <-d.events:
			if quit := d.handleCommand(ctx, cmd); quit {
				d.shutdown()
				return
			}
		}
	}
}

// handleCommand runs one command and reports whether the daemon should exit
func (d *daemon) handleCommand(ctx context.Context, cmd ipc.Command) bool {
	d.logs.Out.Printf("Received command: %s", cmd)
	d.app.diag.Log(diaglog.LogEntry{
		Component: diaglog.ComponentDaemon,
		Event:     diaglog.EventCommand,
		SessionID: d.app.orch.Status().SessionID,
		Payload:   map[string]interface{}{"command": string(cmd)},
	})
	d.status.SetLastAction(string(cmd))
	defer d.status.Publish()

	switch cmd {
	case ipc.CmdStart:
		return d.start(ctx)

	case ipc.CmdStop:
		d.stop()

	case ipc.CmdToggle:
		if d.app.orch.IsRecording() {
			d.stop()
		} else {
			return d.start(ctx)
		}

	case ipc.CmdPlay:
		if err := d.app.orch.Play(); err != nil {
			if errors.Is(err, session.ErrNothingToPlay) {
				d.logs.Out.Printf("Play: %v", err)
			} else {
				d.logs.Err.Printf("Play failed: %v", err)
			}
		}

	case ipc.CmdQuit:
		d.logs.Out.Println("Quit command received - shutting down")
		return true

	default:
		d.logs.Err.Printf("Unknown command: %s", cmd)
	}
	return false
}

// start begins a session with the configured defaults. A stop, toggle or
// quit arriving during the start delay cancels it.
func (d *daemon) start(ctx context.Context) bool {
	cfg := d.defaults.Recording("")

	interrupted, err := startInterruptible(ctx, d.app.orch, cfg, d.events, d.logs)
	if err != nil {
		logFailure(d.logs, "Start", err)
	} else if interrupted != "" {
		// the start completed just before the interrupt was seen
		d.stop()
	}
	return interrupted == ipc.CmdQuit
}

func (d *daemon) stop() {
	if err := d.app.orch.Stop(context.Background()); err != nil {
		logFailure(d.logs, "Stop", err)
	}
}

func (d *daemon) shutdown() {
	if d.app.orch.IsRecording() {
		d.logs.Out.Println("[SHUTDOWN] Recording is active - stopping before shutdown...")
		d.stop()
	}
	d.status.SetLastAction("quit")
	d.status.Publish()
}
