package recorder

import (
	"github.com/tiroq/screenrec/internal/encoder"
	"github.com/tiroq/screenrec/internal/fileutil"
)

// AudioCapture records the configured source into the temp audio track.
type AudioCapture struct {
	runner encoder.Runner
}

// NewAudioCapture creates an audio capture driven by runner.
func NewAudioCapture(runner encoder.Runner) *AudioCapture {
	return &AudioCapture{runner: runner}
}

// Start spawns the audio encoder. Spawn failures are *encoder.SpawnError.
func (a *AudioCapture) Start(source string, art fileutil.Artifacts) (*encoder.Process, error) {
	return a.runner.Start(encoder.AudioCapture(source, art.TempAudio()))
}

// Stop terminates the audio encoder; an exited process is tolerated.
func (a *AudioCapture) Stop(p *encoder.Process) error {
	if p == nil {
		return nil
	}
	return a.runner.Terminate(p)
}
