package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/tiroq/screenrec/internal/config"
	"github.com/tiroq/screenrec/internal/detector"
	"github.com/tiroq/screenrec/internal/diaglog"
	"github.com/tiroq/screenrec/internal/encoder"
	"github.com/tiroq/screenrec/internal/fileutil"
)

// DirectBackend grabs frames from the X display with an encoder process
// that writes straight to the final path.
type DirectBackend struct {
	runner  encoder.Runner
	display string
	log     *diaglog.Logger
}

// NewDirectBackend creates a frame-grab backend for display.
func NewDirectBackend(runner encoder.Runner, display string) *DirectBackend {
	return &DirectBackend{runner: runner, display: display, log: diaglog.NewNoOp()}
}

// Kind identifies the backend.
func (b *DirectBackend) Kind() detector.BackendKind {
	return detector.BackendDirect
}

// SetLogger attaches a diagnostic logger.
func (b *DirectBackend) SetLogger(l *diaglog.Logger) {
	if l == nil {
		l = diaglog.NewNoOp()
	}
	b.log = l
}

// Start waits out the configured delay, then spawns the grabber. The delay
// ends early with ctx's error when ctx is cancelled.
func (b *DirectBackend) Start(ctx context.Context, cfg config.RecordingConfig, art fileutil.Artifacts) (*Handle, error) {
	if d := cfg.StartDelay(); d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("start delay interrupted: %w", ctx.Err())
		}
	}

	inv := encoder.DirectCapture(encoder.DirectOptions{
		Display:      b.display,
		Region:       cfg.Region,
		FrameRate:    cfg.FrameRate,
		DrawCursor:   cfg.DrawCursor,
		FollowCursor: cfg.FollowCursor,
		Output:       art.Final,
	})
	proc, err := b.runner.Start(inv)
	if err != nil {
		return nil, err
	}

	return &Handle{
		Kind:      detector.BackendDirect,
		Process:   proc,
		Target:    art.Final,
		StartedAt: time.Now(),
	}, nil
}

// Stop terminates the grabber so it finalizes the container.
func (b *DirectBackend) Stop(h *Handle) error {
	if h == nil || h.Process == nil {
		return nil
	}
	return b.runner.Terminate(h.Process)
}
