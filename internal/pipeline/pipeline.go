// Package pipeline runs the ordered stop stages that turn a capture's raw
// artifacts into the finished recording.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/tiroq/screenrec/internal/detector"
	"github.com/tiroq/screenrec/internal/diaglog"
	"github.com/tiroq/screenrec/internal/encoder"
	"github.com/tiroq/screenrec/internal/fileutil"
	"github.com/tiroq/screenrec/internal/recorder"
)

// TotalStages is the denominator of every stage report.
const TotalStages = 6

// Stage labels, in order.
const (
	LabelStopVideo     = "Stop Recording Video"
	LabelStopAudio     = "Stop Recording Audio"
	LabelStopComposite = "Stop Compositor Recording"
	LabelFinalizeVideo = "Finalize Video Track"
	LabelSaveAudio     = "Save Audio Recording"
	LabelPostCommand   = "Run Post-Record Command"
	LabelFinished      = "Finished"
)

// ReportFunc receives (label, n, total) before each stage runs.
type ReportFunc func(label string, n, total int)

// Starter launches a process without waiting for it.
type Starter interface {
	Start(name string, args ...string) error
}

// Input is what a stopping session hands to the pipeline. Any of Backend,
// Video and Audio may be nil.
type Input struct {
	Artifacts   fileutil.Artifacts
	Backend     recorder.Backend
	Video       *recorder.Handle
	Audio       *encoder.Process
	PostCommand string
}

// idle reports a stop without any session behind it.
func (in *Input) idle() bool {
	return in.Artifacts.Final == ""
}

func (in *Input) kind() detector.BackendKind {
	if in.Video == nil {
		return ""
	}
	return in.Video.Kind
}

type stage struct {
	label string
	run   func(ctx context.Context, in *Input) error
	// teardown stages end capture processes and all run even when one fails
	teardown bool
}

// Pipeline executes the stop stages synchronously and in order.
type Pipeline struct {
	runner    encoder.Runner
	shell     Starter
	log       *diaglog.Logger
	sessionID string
	stages    []stage
}

// New creates a pipeline that runs encoders with runner and post-record
// commands with shell.
func New(runner encoder.Runner, shell Starter) *Pipeline {
	p := &Pipeline{runner: runner, shell: shell, log: diaglog.NewNoOp()}
	p.stages = []stage{
		{label: LabelStopVideo, run: p.stopVideo, teardown: true},
		{label: LabelStopAudio, run: p.stopAudio, teardown: true},
		{label: LabelStopComposite, run: p.finishCompositor},
		{label: LabelFinalizeVideo, run: p.finalizeDirect},
		{label: LabelSaveAudio, run: p.mergeOrConvert},
		{label: LabelPostCommand, run: p.postCommand},
	}
	return p
}

// SetLogger attaches a diagnostic logger.
func (p *Pipeline) SetLogger(l *diaglog.Logger) {
	if l == nil {
		l = diaglog.NewNoOp()
	}
	p.log = l
}

// SetSessionID tags subsequent diagnostic entries.
func (p *Pipeline) SetSessionID(id string) {
	p.sessionID = id
}

// Run executes every stage. Every teardown stage runs so that no capture
// process is left behind; a teardown failure then halts before
// post-processing. Otherwise the first failing stage halts the rest. Errors
// are returned wrapped and artifacts produced so far stay on disk. On
// success no temp artifact remains and a final "Finished" report is made.
func (p *Pipeline) Run(ctx context.Context, in Input, report ReportFunc) error {
	if report == nil {
		report = func(string, int, int) {}
	}

	var teardown *multierror.Error
	for i, st := range p.stages {
		n := i + 1
		if !st.teardown && teardown != nil {
			return flatten(teardown)
		}

		report(st.label, n, TotalStages)
		p.logStage(n, st.label, nil)

		if err := st.run(ctx, &in); err != nil {
			p.logStage(n, st.label, err)
			err = fmt.Errorf("stage %d (%s): %w", n, st.label, err)
			if !st.teardown {
				return err
			}
			teardown = multierror.Append(teardown, err)
		}
	}
	if teardown != nil {
		return flatten(teardown)
	}

	if !in.idle() {
		if err := sweep(in.Artifacts); err != nil {
			return err
		}
	}

	report(LabelFinished, TotalStages, TotalStages)
	return nil
}

func (p *Pipeline) stopVideo(_ context.Context, in *Input) error {
	if in.kind() != detector.BackendDirect || in.Backend == nil {
		return nil
	}
	return in.Backend.Stop(in.Video)
}

func (p *Pipeline) stopAudio(_ context.Context, in *Input) error {
	if in.Audio == nil {
		return nil
	}
	return p.runner.Terminate(in.Audio)
}

// finishCompositor ends the compositor capture and transcodes its native
// container, which is never the final format even when the extensions match.
func (p *Pipeline) finishCompositor(ctx context.Context, in *Input) error {
	if in.kind() != detector.BackendCompositor {
		return nil
	}
	if in.Backend != nil {
		if err := in.Backend.Stop(in.Video); err != nil {
			return err
		}
	}

	art := in.Artifacts
	src := in.Video.Output()
	if src == "" {
		src = art.Temp()
	}
	if in.idle() || !fileutil.Exists(src) {
		return nil
	}

	target := art.Final
	if fileutil.Exists(art.TempAudio()) {
		target = art.TempVideo()
	}
	if err := p.runner.Run(ctx, encoder.Transcode(src, target)); err != nil {
		return err
	}
	return fileutil.Remove(src)
}

// finalizeDirect frees the final name for the merge when an audio track is
// waiting. Without audio the grab already sits at its final name.
func (p *Pipeline) finalizeDirect(_ context.Context, in *Input) error {
	if in.kind() != detector.BackendDirect || in.idle() {
		return nil
	}
	art := in.Artifacts
	if !fileutil.Exists(art.Final) || !fileutil.Exists(art.TempAudio()) {
		return nil
	}
	return fileutil.Move(art.Final, art.TempVideo())
}

// mergeOrConvert decides from the files on disk, not from the config, so a
// partially failed capture still yields whatever was recorded.
func (p *Pipeline) mergeOrConvert(ctx context.Context, in *Input) error {
	if in.idle() {
		return nil
	}
	art := in.Artifacts
	video := fileutil.Exists(art.TempVideo())
	audio := fileutil.Exists(art.TempAudio())

	switch {
	case video && audio:
		if err := p.runner.Run(ctx, encoder.Merge(art.TempVideo(), art.TempAudio(), art.Final)); err != nil {
			return err
		}
		var result *multierror.Error
		result = multierror.Append(result, fileutil.Remove(art.TempVideo()))
		result = multierror.Append(result, fileutil.Remove(art.TempAudio()))
		return result.ErrorOrNil()

	case audio:
		if err := p.runner.Run(ctx, encoder.ConvertAudio(art.TempAudio(), art.Final)); err != nil {
			return err
		}
		return fileutil.Remove(art.TempAudio())

	case video:
		// staged for a merge whose audio never arrived
		return fileutil.Move(art.TempVideo(), art.Final)
	}
	return nil
}

// postCommand launches the user's command through the shell and does not
// wait for it. A launch failure is logged, the recording itself is done.
func (p *Pipeline) postCommand(_ context.Context, in *Input) error {
	cmd := strings.TrimSpace(in.PostCommand)
	if cmd == "" || p.shell == nil {
		return nil
	}

	err := p.shell.Start("sh", "-c", cmd)
	entry := diaglog.LogEntry{
		Component: diaglog.ComponentPipeline,
		Event:     diaglog.EventPostCommand,
		SessionID: p.sessionID,
		Payload:   map[string]interface{}{"post_command": cmd},
	}
	if err != nil {
		entry.Reason = err.Error()
	}
	p.log.Log(entry)
	return nil
}

// flatten returns a lone error as itself.
func flatten(m *multierror.Error) error {
	if m != nil && len(m.Errors) == 1 {
		return m.Errors[0]
	}
	return m.ErrorOrNil()
}

// sweep removes temp artifacts a successful run may have left behind.
func sweep(art fileutil.Artifacts) error {
	var result *multierror.Error
	for _, f := range art.TempFiles() {
		if err := fileutil.Remove(f); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (p *Pipeline) logStage(n int, label string, err error) {
	entry := diaglog.LogEntry{
		Component: diaglog.ComponentPipeline,
		Event:     diaglog.EventStage,
		SessionID: p.sessionID,
		Payload:   map[string]interface{}{"stage": n, "label": label},
	}
	if err != nil {
		entry.Event = diaglog.EventEncoderFailed
		entry.Reason = err.Error()
	}
	p.log.Log(entry)
}
