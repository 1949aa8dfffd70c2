package encoder

import (
	"fmt"
	"strconv"

	"github.com/tiroq/screenrec/internal/config"
	"github.com/tiroq/screenrec/internal/detector"
)

// Purpose names an encoder invocation for logs and errors.
type Purpose string

const (
	PurposeAudioCapture  Purpose = "audio-capture"
	PurposeDirectCapture Purpose = "direct-capture"
	PurposeTranscode     Purpose = "compositor-transcode"
	PurposeMerge         Purpose = "merge"
	PurposeConvertAudio  Purpose = "audio-convert"
)

const (
	// AudioInputBackend is the ffmpeg input device used for audio capture.
	AudioInputBackend = "pulse"
	// IntermediateAudioFormat is the container of the raw audio track.
	IntermediateAudioFormat = "ogg"
	// CompositorFormat is the native container the compositor writes.
	CompositorFormat = "webm"
	// MergeAudioCodec is the codec the audio track is transcoded to on merge.
	MergeAudioCodec = "aac"
	// FrameGrabBackend is the ffmpeg input device for direct capture.
	FrameGrabBackend = "x11grab"
)

// Invocation is one ffmpeg command line.
type Invocation struct {
	Purpose Purpose
	Args    []string
	Output  string
}

// AudioCapture records source into output in the intermediate container.
func AudioCapture(source, output string) Invocation {
	return Invocation{
		Purpose: PurposeAudioCapture,
		Args: []string{
			"-f", AudioInputBackend,
			"-i", source,
			"-f", IntermediateAudioFormat,
			output,
			"-y",
		},
		Output: output,
	}
}

// DirectOptions configures a raw frame grab.
type DirectOptions struct {
	Display      string
	Region       config.Region
	FrameRate    float64
	DrawCursor   bool
	FollowCursor bool
	Output       string
}

// DirectCapture grabs frames from the display and encodes them straight
// into the output container. A full-screen region omits -video_size.
func DirectCapture(o DirectOptions) Invocation {
	display := o.Display
	if display == "" {
		display = detector.DefaultDisplay
	}

	var args []string
	if !o.Region.IsFullScreen() {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", o.Region.Width, o.Region.Height))
	}
	args = append(args,
		"-framerate", formatRate(o.FrameRate),
		"-draw_mouse", boolFlag(o.DrawCursor),
	)
	if o.FollowCursor {
		args = append(args, "-follow_mouse", "centered")
	}
	args = append(args,
		"-f", FrameGrabBackend,
		"-i", fmt.Sprintf("%s+%d,%d", display, o.Region.X, o.Region.Y),
		"-crf", "1",
		o.Output,
		"-y",
	)

	return Invocation{Purpose: PurposeDirectCapture, Args: args, Output: o.Output}
}

// Transcode converts the compositor's native container into output.
func Transcode(input, output string) Invocation {
	return Invocation{
		Purpose: PurposeTranscode,
		Args: []string{
			"-f", CompositorFormat,
			"-i", input,
			output,
			"-y",
		},
		Output: output,
	}
}

// Merge muxes a video-only track with the raw audio track. Video is copied,
// audio is transcoded.
func Merge(video, audio, output string) Invocation {
	return Invocation{
		Purpose: PurposeMerge,
		Args: []string{
			"-i", video,
			"-i", audio,
			"-c:v", "copy",
			"-c:a", MergeAudioCodec,
			output,
			"-y",
		},
		Output: output,
	}
}

// ConvertAudio turns the raw audio track into the chosen container.
func ConvertAudio(input, output string) Invocation {
	return Invocation{
		Purpose: PurposeConvertAudio,
		Args: []string{
			"-f", IntermediateAudioFormat,
			"-i", input,
			output,
			"-y",
		},
		Output: output,
	}
}

func formatRate(r float64) string {
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
