package cli

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tiroq/screenrec/internal/ipc"
)

const (
	pollInterval = 1 * time.Second
	// writers replace cmd.txt in one write; give it a moment to land
	settleDelay = 50 * time.Millisecond
)

// commandWatcher delivers commands written to cmd.txt on out. It prefers fsnotify
// and keeps a polling ticker as a fallback.
type commandWatcher struct {
	path string
	out  chan ipc.Command
	logs *Logs
}

func newCommandWatcher(logs *Logs, out chan ipc.Command) *commandWatcher {
	return &commandWatcher{
		path: ipc.CommandPath(),
		out:  out,
		logs: logs,
	}
}

// drain drops a command left over from before startup
func (w *commandWatcher) drain() {
	if cmd, err := ipc.ReadCommand(); err == nil && cmd != "" {
		w.logs.Out.Printf("Ignoring stale command from before startup: %s", cmd)
	}
}

// Run watches until ctx is done
func (w *commandWatcher) Run(ctx context.Context) {
	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		w.logs.Err.Printf("Failed to create command directory: %v", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logs.Err.Printf("fsnotify not available, falling back to polling: %v", err)
		w.poll(ctx)
		return
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			w.logs.Err.Printf("Failed to close watcher: %v", err)
		}
	}()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		w.logs.Err.Printf("Failed to watch command directory, falling back to polling: %v", err)
		w.poll(ctx)
		return
	}

	w.logs.Out.Println("Command watcher started (using fsnotify)")

	pollTicker := time.NewTicker(pollInterval)
	defer pollTicker.Stop()

	lastCheck := time.Now()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				w.logs.Out.Println("fsnotify watcher closed, switching to polling")
				w.poll(ctx)
				return
			}
			if event.Name == w.path && event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.read(ctx)
				lastCheck = time.Now()
			}

		case <-pollTicker.C:
			if info, err := os.Stat(w.path); err == nil && info.ModTime().After(lastCheck) {
				w.read(ctx)
				lastCheck = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				w.logs.Out.Println("fsnotify error channel closed, switching to polling")
				w.poll(ctx)
				return
			}
			w.logs.Err.Printf("File watcher error: %v", err)
		}
	}
}

func (w *commandWatcher) poll(ctx context.Context) {
	w.logs.Out.Printf("Command watcher started (using polling fallback, %v interval)", pollInterval)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	lastCheck := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(w.path)
			if err != nil {
				continue
			}
			if info.ModTime().After(lastCheck) {
				w.read(ctx)
				lastCheck = time.Now()
			}
		}
	}
}

func (w *commandWatcher) read(ctx context.Context) {
	time.Sleep(settleDelay)

	cmd, err := ipc.ReadCommand()
	if err != nil {
		w.logs.Err.Printf("Failed to read command: %v", err)
		return
	}
	if cmd == "" {
		return
	}

	select {
	case w.out <- cmd:
	case <-ctx.Done():
	}
}
