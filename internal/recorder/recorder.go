// Package recorder abstracts the video capture backends behind a common
// interface and spawns the audio capture that runs alongside them.
package recorder

import (
	"context"
	"time"

	"github.com/tiroq/screenrec/internal/config"
	"github.com/tiroq/screenrec/internal/detector"
	"github.com/tiroq/screenrec/internal/diaglog"
	"github.com/tiroq/screenrec/internal/encoder"
	"github.com/tiroq/screenrec/internal/fileutil"
)

// Handle is a running video capture. Exactly one of Process and Worker is
// set, depending on Kind.
type Handle struct {
	Kind      detector.BackendKind
	Process   *encoder.Process // direct capture encoder
	Worker    *Worker          // compositor capture worker
	Target    string           // file the backend is writing
	StartedAt time.Time
}

// Duration returns how long the capture has been running.
func (h *Handle) Duration() time.Duration {
	if h == nil || h.StartedAt.IsZero() {
		return 0
	}
	return time.Since(h.StartedAt)
}

// Output returns the file the capture wrote: the name the compositor
// reported once its capture call answered, else Target.
func (h *Handle) Output() string {
	if h == nil {
		return ""
	}
	if h.Worker != nil {
		if out, err := h.Worker.Result(); err == nil && out != "" {
			return out
		}
	}
	return h.Target
}

// Backend is implemented by the capture mechanisms.
type Backend interface {
	Kind() detector.BackendKind
	// Start begins capturing video for the given artifact set.
	Start(ctx context.Context, cfg config.RecordingConfig, art fileutil.Artifacts) (*Handle, error)
	// Stop ends the capture held by h. Stopping a capture that already ended
	// is not an error.
	Stop(h *Handle) error
	SetLogger(l *diaglog.Logger)
}

// New returns the backend for kind.
func New(kind detector.BackendKind, env *detector.Environment, runner encoder.Runner, sc ScreencasterFactory) Backend {
	if kind == detector.BackendCompositor {
		return NewCompositorBackend(sc)
	}
	display := detector.DefaultDisplay
	if env != nil && env.Display != "" {
		display = env.Display
	}
	return NewDirectBackend(runner, display)
}
