package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tiroq/screenrec/internal/encoder"
	"github.com/tiroq/screenrec/internal/screencast"
)

// FakeRunner is an encoder.Runner that records calls instead of running
// ffmpeg. Started captures and completed runs create their output file so
// the pipeline sees the artifacts a real encoder would leave.
type FakeRunner struct {
	mu sync.Mutex

	StartErr      map[encoder.Purpose]error // returned as the SpawnError cause
	RunErr        map[encoder.Purpose]error // returned as the EncoderError cause
	TerminateErr  error                     // returned by every Terminate
	TerminateErrs map[encoder.Purpose]error // returned by Terminate for one purpose
	NoOutput      map[encoder.Purpose]bool  // skip writing the output file

	Calls      []string // "start:<purpose>", "run:<purpose>", "terminate:<purpose>"
	Started    []encoder.Invocation
	Ran        []encoder.Invocation
	Terminated []*encoder.Process

	nextPid int
	finish  map[int]func(error)
}

// NewFakeRunner creates a runner with no injected failures
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		StartErr:      map[encoder.Purpose]error{},
		RunErr:        map[encoder.Purpose]error{},
		TerminateErrs: map[encoder.Purpose]error{},
		NoOutput:      map[encoder.Purpose]bool{},
		nextPid:       1000,
		finish:        map[int]func(error){},
	}
}

func (f *FakeRunner) Start(inv encoder.Invocation) (*encoder.Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, "start:"+string(inv.Purpose))
	if err := f.StartErr[inv.Purpose]; err != nil {
		return nil, &encoder.SpawnError{Purpose: inv.Purpose, Err: err}
	}
	f.Started = append(f.Started, inv)

	if !f.NoOutput[inv.Purpose] {
		if err := touch(inv.Output, string(inv.Purpose)); err != nil {
			return nil, &encoder.SpawnError{Purpose: inv.Purpose, Err: err}
		}
	}

	f.nextPid++
	p, finish := encoder.NewProcess(f.nextPid, inv.Purpose, inv.Output)
	f.finish[p.Pid] = finish
	return p, nil
}

func (f *FakeRunner) Run(ctx context.Context, inv encoder.Invocation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, "run:"+string(inv.Purpose))
	f.Ran = append(f.Ran, inv)

	if err := f.RunErr[inv.Purpose]; err != nil {
		return &encoder.EncoderError{
			Purpose:  inv.Purpose,
			Output:   inv.Output,
			ExitCode: 1,
			Stderr:   err.Error(),
			Err:      err,
		}
	}
	if f.NoOutput[inv.Purpose] {
		return nil
	}
	return touch(inv.Output, string(inv.Purpose))
}

func (f *FakeRunner) Terminate(p *encoder.Process) error {
	if p == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, "terminate:"+string(p.Purpose))
	f.Terminated = append(f.Terminated, p)
	if f.TerminateErr != nil {
		return f.TerminateErr
	}
	if err := f.TerminateErrs[p.Purpose]; err != nil {
		return err
	}
	if finish, ok := f.finish[p.Pid]; ok {
		finish(nil)
	}
	return nil
}

// Exit marks a started process as having exited on its own
func (f *FakeRunner) Exit(p *encoder.Process, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if finish, ok := f.finish[p.Pid]; ok {
		finish(err)
	}
}

// CallLog returns a copy of the recorded call sequence
func (f *FakeRunner) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

// CountCalls returns how many recorded calls equal call
func (f *FakeRunner) CountCalls(call string) int {
	n := 0
	for _, c := range f.CallLog() {
		if c == call {
			n++
		}
	}
	return n
}

// FakeScreencast is a screencast.Screencaster that writes the capture file
// when a capture starts. With Block set, capture calls do not return until
// StopScreencast is called, like shells that hold the call open.
type FakeScreencast struct {
	mu sync.Mutex

	Block       bool
	StartErr    error // returned as a screencast.Error
	Refuse      bool  // answer success=false
	StopErr     error
	StopRefused bool   // StopScreencast answers success=false
	Written     string // file name reported instead of the template
	NoOutput    bool

	Calls   []string // "Screencast", "ScreencastArea", "StopScreencast"
	Areas   [][4]int
	Options []screencast.Options

	stopped chan struct{}
}

// NewFakeScreencast creates a compositor that accepts every request
func NewFakeScreencast() *FakeScreencast {
	return &FakeScreencast{stopped: make(chan struct{})}
}

func (f *FakeScreencast) Screencast(template string, opts screencast.Options) (string, error) {
	return f.capture("Screencast", [4]int{}, template, opts)
}

func (f *FakeScreencast) ScreencastArea(x, y, width, height int, template string, opts screencast.Options) (string, error) {
	return f.capture("ScreencastArea", [4]int{x, y, width, height}, template, opts)
}

func (f *FakeScreencast) capture(method string, area [4]int, template string, opts screencast.Options) (string, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, method)
	f.Areas = append(f.Areas, area)
	f.Options = append(f.Options, opts)
	startErr, refuse, block, noOutput := f.StartErr, f.Refuse, f.Block, f.NoOutput
	written := template
	if f.Written != "" {
		written = f.Written
	}
	stopped := f.stopped
	f.mu.Unlock()

	if startErr != nil {
		return "", &screencast.Error{Method: method, Err: startErr}
	}
	if refuse {
		return "", &screencast.Error{Method: method}
	}
	if !noOutput {
		if err := touch(written, "webm"); err != nil {
			return "", &screencast.Error{Method: method, Err: err}
		}
	}
	if block {
		<-stopped
	}
	return written, nil
}

func (f *FakeScreencast) StopScreencast() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, "StopScreencast")
	if f.StopErr != nil {
		return &screencast.Error{Method: "StopScreencast", Err: f.StopErr}
	}
	select {
	case <-f.stopped:
	default:
		close(f.stopped)
	}
	if f.StopRefused {
		return &screencast.Error{Method: "StopScreencast"}
	}
	return nil
}

// CallLog returns a copy of the recorded call sequence
func (f *FakeScreencast) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

// ProgressRecorder collects stage reports
type ProgressRecorder struct {
	mu     sync.Mutex
	Stages []string // "label n/total"
	Hidden int
}

func (p *ProgressRecorder) Report(label string, n, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Stages = append(p.Stages, fmt.Sprintf("%s %d/%d", label, n, total))
}

func (p *ProgressRecorder) Hide() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Hidden++
}

// Snapshot returns the reported stages and the hide count
func (p *ProgressRecorder) Snapshot() ([]string, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Stages...), p.Hidden
}

func touch(path, content string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}
