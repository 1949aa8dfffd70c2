package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/tiroq/screenrec/internal/config"
	"github.com/tiroq/screenrec/internal/detector"
	"github.com/tiroq/screenrec/internal/diaglog"
	"github.com/tiroq/screenrec/internal/fileutil"
	"github.com/tiroq/screenrec/internal/screencast"
)

const (
	// DefaultStartWindow is how long Start waits for the capture call to
	// fail before it considers the capture running.
	DefaultStartWindow = 500 * time.Millisecond
	// DefaultStopTimeout bounds the wait for the worker after a stop.
	DefaultStopTimeout = 10 * time.Second
)

// ScreencasterFactory opens the compositor connection on first use.
type ScreencasterFactory func() (screencast.Screencaster, error)

// Worker owns the blocking capture call of one compositor recording.
type Worker struct {
	stop chan bool
	done chan struct{}

	mu     sync.Mutex
	err    error
	output string
}

func newWorker() *Worker {
	return &Worker{
		stop: make(chan bool, 1),
		done: make(chan struct{}),
	}
}

func (w *Worker) run(capture func() (string, error), started chan<- error) {
	defer close(w.done)

	out, err := capture()
	started <- err

	w.mu.Lock()
	w.err, w.output = err, out
	w.mu.Unlock()
	if err != nil {
		return
	}

	for {
		v, ok := <-w.stop
		if !ok || v {
			return
		}
	}
}

// Signal asks the worker to exit. Sending never blocks; a worker that is
// not listening simply misses the signal.
func (w *Worker) Signal() {
	select {
	case w.stop <- true:
	default:
	}
}

// Active reports whether the worker goroutine is still running.
func (w *Worker) Active() bool {
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

// Done is closed when the worker exits.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Result returns the file the compositor reported and the capture error.
func (w *Worker) Result() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.output, w.err
}

// CompositorBackend records through the GNOME Shell screencast service. The
// compositor always writes its native container to the temp path, which is
// transcoded when the session stops.
type CompositorBackend struct {
	connect ScreencasterFactory

	StartWindow time.Duration
	StopTimeout time.Duration

	mu     sync.Mutex
	sc     screencast.Screencaster
	active *Worker
	log    *diaglog.Logger
}

// NewCompositorBackend creates a backend that connects through connect.
func NewCompositorBackend(connect ScreencasterFactory) *CompositorBackend {
	return &CompositorBackend{
		connect:     connect,
		StartWindow: DefaultStartWindow,
		StopTimeout: DefaultStopTimeout,
		log:         diaglog.NewNoOp(),
	}
}

// Kind identifies the backend.
func (b *CompositorBackend) Kind() detector.BackendKind {
	return detector.BackendCompositor
}

// SetLogger attaches a diagnostic logger.
func (b *CompositorBackend) SetLogger(l *diaglog.Logger) {
	if l == nil {
		l = diaglog.NewNoOp()
	}
	b.log = l
}

func (b *CompositorBackend) client() (screencast.Screencaster, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sc != nil {
		return b.sc, nil
	}
	if b.connect == nil {
		return nil, &screencast.Error{Method: "connect", Err: fmt.Errorf("no compositor connection configured")}
	}
	sc, err := b.connect()
	if err != nil {
		return nil, err
	}
	b.sc = sc
	return sc, nil
}

// Start launches a capture worker targeting the temp path. A worker left
// over from an earlier capture is told to exit first.
func (b *CompositorBackend) Start(ctx context.Context, cfg config.RecordingConfig, art fileutil.Artifacts) (*Handle, error) {
	b.mu.Lock()
	if b.active != nil && b.active.Active() {
		b.active.Signal()
	}
	b.mu.Unlock()

	sc, err := b.client()
	if err != nil {
		return nil, err
	}

	opts := screencast.Options{FrameRate: cfg.FrameRate, DrawCursor: cfg.DrawCursor}
	template := screencast.Template(art.Temp())
	region := cfg.Region

	capture := func() (string, error) {
		if region.IsFullScreen() {
			return sc.Screencast(template, opts)
		}
		return sc.ScreencastArea(region.X, region.Y, region.Width, region.Height, template, opts)
	}

	w := newWorker()
	started := make(chan error, 1)
	go w.run(capture, started)

	window := b.StartWindow
	if window <= 0 {
		window = DefaultStartWindow
	}
	timer := time.NewTimer(window)
	defer timer.Stop()

	select {
	case err := <-started:
		if err != nil {
			return nil, err
		}
	case <-timer.C:
		// still inside the capture call
	case <-ctx.Done():
		_ = sc.StopScreencast()
		w.Signal()
		return nil, fmt.Errorf("compositor start interrupted: %w", ctx.Err())
	}

	b.mu.Lock()
	b.active = w
	b.mu.Unlock()

	b.log.Log(diaglog.LogEntry{
		Component: diaglog.ComponentScreencast,
		Event:     diaglog.EventSpawn,
		Payload:   map[string]interface{}{"target": art.Temp(), "full_screen": region.IsFullScreen()},
	})

	return &Handle{
		Kind:      detector.BackendCompositor,
		Worker:    w,
		Target:    art.Temp(),
		StartedAt: time.Now(),
	}, nil
}

// Stop ends the capture with an explicit StopScreencast, then signals the
// worker and waits for it to exit.
func (b *CompositorBackend) Stop(h *Handle) error {
	if h == nil || h.Worker == nil {
		return nil
	}

	var result *multierror.Error

	sc, err := b.client()
	if err != nil {
		result = multierror.Append(result, err)
	} else if err := sc.StopScreencast(); err != nil {
		var se *screencast.Error
		if errors.As(err, &se) && se.Refused() {
			// nothing left to stop; the capture file is still transcoded
			b.log.Log(diaglog.LogEntry{
				Component: diaglog.ComponentScreencast,
				Event:     diaglog.EventIPCFailed,
				Reason:    err.Error(),
				Payload:   map[string]interface{}{"method": "StopScreencast", "tolerated": true},
			})
		} else {
			result = multierror.Append(result, err)
		}
	}

	h.Worker.Signal()

	timeout := b.StopTimeout
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.Worker.Done():
	case <-timer.C:
		result = multierror.Append(result, fmt.Errorf("compositor worker did not exit within %v", timeout))
	}

	b.mu.Lock()
	if b.active == h.Worker {
		b.active = nil
	}
	b.mu.Unlock()

	return result.ErrorOrNil()
}
