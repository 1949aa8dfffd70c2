package config

import (
	"fmt"
	"strings"
	"time"
)

// Region is the screen rectangle to capture. A zero width or height means
// the whole screen.
type Region struct {
	X      int `toml:"x"`
	Y      int `toml:"y"`
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// IsFullScreen reports whether the region leaves the size to the backend.
func (r Region) IsFullScreen() bool {
	return r.Width == 0 || r.Height == 0
}

// RecordingConfig is the snapshot of user choices taken when a session
// starts. It is passed by value and never mutated afterwards.
type RecordingConfig struct {
	OutputDir    string  // directory receiving the finished artifact
	Name         string  // base name; empty means "use the current timestamp"
	Format       string  // container/extension id, e.g. "mp4", "ogg"
	RecordVideo  bool    // capture the screen
	RecordAudio  bool    // capture the audio source
	AudioSource  string  // pulse source id
	DrawCursor   bool    // render the pointer into the video
	FollowCursor bool    // x11grab only: keep the pointer centered
	FrameRate    float64 // frames per second
	Delay        int     // seconds to wait before the direct grab starts
	PostCommand  string  // shell command launched after a successful stop
	Region       Region
}

// StartDelay returns Delay as a duration.
func (c RecordingConfig) StartDelay() time.Duration {
	return time.Duration(c.Delay) * time.Second
}

// Validate checks RecordingConfig for validity
func (c RecordingConfig) Validate() error {
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("output directory must be set")
	}

	format := strings.TrimSpace(c.Format)
	if format == "" {
		return fmt.Errorf("format must be set")
	}
	if strings.ContainsAny(format, `/\`) || strings.HasPrefix(format, ".") {
		return fmt.Errorf("format %q is not a plain extension", c.Format)
	}

	if strings.ContainsAny(strings.TrimSpace(c.Name), `/\`) {
		return fmt.Errorf("name %q must not contain path separators", c.Name)
	}

	if !c.RecordVideo && !c.RecordAudio {
		return fmt.Errorf("nothing to record: enable video, audio or both")
	}

	if c.RecordVideo {
		if c.FrameRate < 1 || c.FrameRate > 240 {
			return fmt.Errorf("frame rate must be between 1 and 240, got %g", c.FrameRate)
		}
		if c.Region.X < 0 || c.Region.Y < 0 || c.Region.Width < 0 || c.Region.Height < 0 {
			return fmt.Errorf("region %+v must not contain negative values", c.Region)
		}
	}

	if c.RecordAudio && strings.TrimSpace(c.AudioSource) == "" {
		return fmt.Errorf("audio source must be set when recording audio")
	}

	if c.Delay < 0 || c.Delay > 3600 {
		return fmt.Errorf("delay must be between 0 and 3600 seconds, got %d", c.Delay)
	}

	return nil
}
