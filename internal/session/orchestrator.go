// Package session owns the single active recording session: it starts the
// capture processes, stops them through the post-processing pipeline and
// keeps the state other components observe.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/tiroq/screenrec/internal/config"
	"github.com/tiroq/screenrec/internal/detector"
	"github.com/tiroq/screenrec/internal/diaglog"
	"github.com/tiroq/screenrec/internal/encoder"
	"github.com/tiroq/screenrec/internal/fileutil"
	"github.com/tiroq/screenrec/internal/pipeline"
	"github.com/tiroq/screenrec/internal/recorder"
	"github.com/tiroq/screenrec/internal/statemachine"
)

// Opener shows a finished recording to the user.
type Opener interface {
	Open(path string) error
}

// Options wires the orchestrator to its collaborators. Runner and Detector
// are required; the rest fall back to inert defaults.
type Options struct {
	Runner     encoder.Runner
	Screencast recorder.ScreencasterFactory
	Detector   detector.Detector
	Confirmer  Confirmer
	Reporter   ProgressReporter
	Shell      pipeline.Starter
	Opener     Opener
	Logger     *log.Logger
	DiagLog    *diaglog.Logger
	Now        func() time.Time
}

// Session is the capture currently owned by the orchestrator.
type Session struct {
	ID        string
	Config    config.RecordingConfig
	Artifacts fileutil.Artifacts
	Backend   recorder.Backend
	Video     *recorder.Handle
	Audio     *encoder.Process
	StartedAt time.Time
}

// Stage is the last progress report of a running stop.
type Stage struct {
	Label string `json:"label"`
	N     int    `json:"n"`
	Total int    `json:"total"`
}

// Status is a point-in-time view of the orchestrator.
type Status struct {
	State         statemachine.State   `json:"state"`
	SessionID     string               `json:"session_id,omitempty"`
	Backend       detector.BackendKind `json:"backend,omitempty"`
	Path          string               `json:"path,omitempty"`
	Duration      time.Duration        `json:"duration_ns"`
	Stage         *Stage               `json:"stage,omitempty"`
	LastRecording string               `json:"last_recording,omitempty"`
	LastError     string               `json:"last_error,omitempty"`
}

// Orchestrator drives one recording session at a time. Start and Stop are
// meant to be called from a single control goroutine; Status may be called
// from anywhere.
type Orchestrator struct {
	opts     Options
	audio    *recorder.AudioCapture
	pipeline *pipeline.Pipeline
	log      *log.Logger
	diag     *diaglog.Logger

	ctl sync.Mutex // serialises Start and Stop

	mu       sync.Mutex // guards everything below
	sm       *statemachine.StateMachine
	active   *Session
	backends map[detector.BackendKind]recorder.Backend
	stage    *Stage
	last     string
}

// New creates an orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Confirmer == nil {
		opts.Confirmer = StaticConfirmer(false)
	}
	if opts.Reporter == nil {
		opts.Reporter = nopReporter{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.DiagLog == nil {
		opts.DiagLog = diaglog.NewNoOp()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	p := pipeline.New(opts.Runner, opts.Shell)
	p.SetLogger(opts.DiagLog)

	return &Orchestrator{
		opts:     opts,
		audio:    recorder.NewAudioCapture(opts.Runner),
		pipeline: p,
		log:      opts.Logger,
		diag:     opts.DiagLog,
		sm:       statemachine.NewStateMachine(),
		backends: make(map[detector.BackendKind]recorder.Backend),
	}
}

// backendFor reuses one backend per kind so the compositor backend can see
// a worker left over from the previous capture.
func (o *Orchestrator) backendFor(env *detector.Environment) recorder.Backend {
	o.mu.Lock()
	defer o.mu.Unlock()

	if b, ok := o.backends[env.Backend]; ok {
		return b
	}
	b := recorder.New(env.Backend, env, o.opts.Runner, o.opts.Screencast)
	b.SetLogger(o.diag)
	o.backends[env.Backend] = b
	return b
}

// Start begins a new session. An active session is fully stopped first.
// The returned error is ErrConfig or ErrConflictDeclined (wrapped), an
// *encoder.SpawnError, a *screencast.Error, or ctx's error when the start
// delay was interrupted.
func (o *Orchestrator) Start(ctx context.Context, cfg config.RecordingConfig) error {
	o.ctl.Lock()
	defer o.ctl.Unlock()

	if o.hasActive() {
		o.log.Printf("Stopping previous session before starting a new one")
		// cancelling the new start must not cut the old session's encoders short
		if err := o.stop(context.WithoutCancel(ctx)); err != nil {
			return fmt.Errorf("stop previous session: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return o.startFailed(fmt.Errorf("%w: %v", ErrConfig, err))
	}
	if err := fileutil.EnsureDir(cfg.OutputDir); err != nil {
		return o.startFailed(fmt.Errorf("%w: %v", ErrConfig, err))
	}

	path := fileutil.ResolveOutputPath(cfg.OutputDir, cfg.Name, cfg.Format, o.opts.Now())
	if fileutil.Exists(path) && !o.opts.Confirmer.ConfirmOverwrite(ctx, path) {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.diag.Log(diaglog.LogEntry{
			Component: diaglog.ComponentSession,
			Event:     diaglog.EventConflictDeclined,
			Payload:   map[string]interface{}{"path": path},
		})
		return fmt.Errorf("%w: %s", ErrConflictDeclined, path)
	}
	art := fileutil.NewArtifacts(path, cfg.Format)

	s := &Session{Config: cfg, Artifacts: art}

	if cfg.RecordAudio {
		p, err := o.audio.Start(cfg.AudioSource, art)
		if err != nil {
			return o.abortStart(s, err)
		}
		s.Audio = p
	}

	env, err := o.opts.Detector.Detect()
	if err != nil {
		return o.abortStart(s, fmt.Errorf("detect session: %w", err))
	}

	if cfg.RecordVideo {
		backend := o.backendFor(env)
		h, err := backend.Start(ctx, cfg, art)
		if err != nil {
			return o.abortStart(s, err)
		}
		s.Backend, s.Video = backend, h
	}

	o.mu.Lock()
	id, err := o.sm.BeginRecording()
	if err != nil {
		o.mu.Unlock()
		return o.abortStart(s, err)
	}
	s.ID = id
	s.StartedAt = time.Now()
	o.active = s
	o.stage = nil
	o.mu.Unlock()

	o.pipeline.SetSessionID(id)
	if sid, ok := o.opts.Runner.(interface{ SetSessionID(string) }); ok {
		sid.SetSessionID(id)
	}

	backendName := "none"
	if s.Video != nil {
		backendName = string(s.Video.Kind)
	}
	o.log.Printf("Recording started: %s (backend=%s, audio=%v, session=%s)", path, backendName, s.Audio != nil, id)
	o.diag.Log(diaglog.LogEntry{
		Component: diaglog.ComponentSession,
		Event:     diaglog.EventSessionStart,
		SessionID: id,
		Payload: map[string]interface{}{
			"path":         path,
			"backend":      backendName,
			"audio":        cfg.RecordAudio,
			"video":        cfg.RecordVideo,
			"post_command": cfg.PostCommand,
		},
	})
	return nil
}

// abortStart terminates whatever a failed start already spawned and
// returns cause together with any teardown failure.
func (o *Orchestrator) abortStart(s *Session, cause error) error {
	result := multierror.Append(nil, cause)

	if s.Video != nil && s.Backend != nil {
		if err := s.Backend.Stop(s.Video); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if s.Audio != nil {
		if err := o.audio.Stop(s.Audio); err != nil {
			result = multierror.Append(result, err)
		}
		_ = fileutil.Remove(s.Artifacts.TempAudio())
	}

	o.log.Printf("Failed to start recording: %v", cause)
	o.diag.Log(diaglog.LogEntry{
		Component: diaglog.ComponentSession,
		Event:     diaglog.EventSessionFailed,
		Reason:    cause.Error(),
	})

	if len(result.Errors) == 1 {
		return o.startFailed(cause)
	}
	return o.startFailed(result)
}

// startFailed returns the orchestrator to idle and keeps err for Status.
// An interrupted start delay is not a failure.
func (o *Orchestrator) startFailed(err error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if errors.Is(err, context.Canceled) {
		o.sm.Reset(nil)
	} else {
		o.sm.Reset(err)
	}
	return err
}

// Stop ends the active session and runs the post-processing stages. With no
// active session every stage is still reported and nil is returned.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.ctl.Lock()
	defer o.ctl.Unlock()
	return o.stop(ctx)
}

func (o *Orchestrator) stop(ctx context.Context) error {
	o.mu.Lock()
	s := o.active
	if err := o.sm.BeginStopping(); err != nil {
		o.mu.Unlock()
		return err
	}
	o.mu.Unlock()

	in := pipeline.Input{}
	if s != nil {
		in = pipeline.Input{
			Artifacts:   s.Artifacts,
			Backend:     s.Backend,
			Video:       s.Video,
			Audio:       s.Audio,
			PostCommand: s.Config.PostCommand,
		}
	}

	err := o.pipeline.Run(ctx, in, o.report)
	o.opts.Reporter.Hide()

	o.mu.Lock()
	o.active = nil
	o.stage = nil
	if err != nil {
		_ = o.sm.Fail(err)
	} else {
		_ = o.sm.Finish()
		if s != nil {
			o.last = s.Artifacts.Final
		}
	}
	id := o.sm.SessionID()
	o.mu.Unlock()

	if s == nil {
		return err
	}

	if err != nil {
		o.log.Printf("Recording failed: %v (artifacts kept next to %s)", err, s.Artifacts.Final)
		o.diag.Log(diaglog.LogEntry{
			Component: diaglog.ComponentSession,
			Event:     diaglog.EventSessionFailed,
			SessionID: id,
			Reason:    err.Error(),
		})
		return err
	}

	o.log.Printf("Recording saved: %s (%s)", s.Artifacts.Final, time.Since(s.StartedAt).Round(time.Second))
	o.diag.Log(diaglog.LogEntry{
		Component: diaglog.ComponentSession,
		Event:     diaglog.EventSessionStop,
		SessionID: id,
		Payload:   map[string]interface{}{"path": s.Artifacts.Final},
	})
	return nil
}

func (o *Orchestrator) report(label string, n, total int) {
	o.mu.Lock()
	o.stage = &Stage{Label: label, N: n, Total: total}
	o.mu.Unlock()
	o.opts.Reporter.Report(label, n, total)
}

// Toggle stops an active session or starts a new one with cfg.
func (o *Orchestrator) Toggle(ctx context.Context, cfg config.RecordingConfig) error {
	if o.IsRecording() {
		return o.Stop(ctx)
	}
	return o.Start(ctx, cfg)
}

// Play opens the most recent finished recording.
func (o *Orchestrator) Play() error {
	o.mu.Lock()
	last := o.last
	o.mu.Unlock()

	if last == "" || !fileutil.Exists(last) {
		return ErrNothingToPlay
	}
	if o.opts.Opener == nil {
		return errors.New("no player configured")
	}
	return o.opts.Opener.Open(last)
}

// IsRecording reports whether a capture is running.
func (o *Orchestrator) IsRecording() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sm.IsRecording()
}

func (o *Orchestrator) hasActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active != nil
}

// Status returns a snapshot of the orchestrator state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := Status{
		State:         o.sm.State(),
		SessionID:     o.sm.SessionID(),
		Duration:      o.sm.RecordingDuration(),
		LastRecording: o.last,
	}
	if err := o.sm.LastError(); err != nil {
		st.LastError = err.Error()
	}
	if o.stage != nil {
		stage := *o.stage
		st.Stage = &stage
	}
	if s := o.active; s != nil {
		st.Path = s.Artifacts.Final
		if s.Video != nil {
			st.Backend = s.Video.Kind
			st.Duration = s.Video.Duration()
		}
	}
	return st
}
