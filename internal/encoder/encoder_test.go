package encoder

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"testing"
	"time"

	child_process_manager "github.com/AgustinSRG/go-child-process-manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiroq/screenrec/internal/config"
)

func TestMain(m *testing.M) {
	if err := child_process_manager.InitializeChildProcessManager(); err != nil {
		panic(err)
	}
	code := m.Run()
	child_process_manager.DisposeChildProcessManager()
	os.Exit(code)
}

func TestAudioCaptureArgs(t *testing.T) {
	inv := AudioCapture("alsa_input.usb", "/v/a.mp4.temp.audio")

	assert.Equal(t, PurposeAudioCapture, inv.Purpose)
	assert.Equal(t, "/v/a.mp4.temp.audio", inv.Output)
	assert.Equal(t, []string{
		"-f", "pulse", "-i", "alsa_input.usb", "-f", "ogg", "/v/a.mp4.temp.audio", "-y",
	}, inv.Args)
}

func TestDirectCaptureArgs(t *testing.T) {
	tests := []struct {
		name string
		opts DirectOptions
		want []string
	}{
		{
			name: "region with cursor",
			opts: DirectOptions{
				Display:    ":1",
				Region:     config.Region{X: 10, Y: 20, Width: 640, Height: 480},
				FrameRate:  30,
				DrawCursor: true,
				Output:     "/v/a.mp4",
			},
			want: []string{
				"-video_size", "640x480",
				"-framerate", "30",
				"-draw_mouse", "1",
				"-f", "x11grab",
				"-i", ":1+10,20",
				"-crf", "1",
				"/v/a.mp4", "-y",
			},
		},
		{
			name: "follow cursor and default display",
			opts: DirectOptions{
				Region:       config.Region{Width: 100, Height: 100},
				FrameRate:    29.97,
				FollowCursor: true,
				Output:       "/v/b.mkv",
			},
			want: []string{
				"-video_size", "100x100",
				"-framerate", "29.97",
				"-draw_mouse", "0",
				"-follow_mouse", "centered",
				"-f", "x11grab",
				"-i", ":0+0,0",
				"-crf", "1",
				"/v/b.mkv", "-y",
			},
		},
		{
			name: "full screen omits size",
			opts: DirectOptions{
				Display:   ":0",
				FrameRate: 60,
				Output:    "/v/c.mp4",
			},
			want: []string{
				"-framerate", "60",
				"-draw_mouse", "0",
				"-f", "x11grab",
				"-i", ":0+0,0",
				"-crf", "1",
				"/v/c.mp4", "-y",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := DirectCapture(tt.opts)
			assert.Equal(t, tt.want, inv.Args)
			assert.Equal(t, tt.opts.Output, inv.Output)
			assert.Equal(t, PurposeDirectCapture, inv.Purpose)
		})
	}
}

func TestPostProcessArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"-f", "webm", "-i", "/v/a.mp4.temp", "/v/a.mp4", "-y"},
		Transcode("/v/a.mp4.temp", "/v/a.mp4").Args)

	assert.Equal(t,
		[]string{"-i", "/v/a.mp4.temp.without.audio.mp4", "-i", "/v/a.mp4.temp.audio", "-c:v", "copy", "-c:a", "aac", "/v/a.mp4", "-y"},
		Merge("/v/a.mp4.temp.without.audio.mp4", "/v/a.mp4.temp.audio", "/v/a.mp4").Args)

	assert.Equal(t,
		[]string{"-f", "ogg", "-i", "/v/a.ogg.temp.audio", "/v/a.ogg", "-y"},
		ConvertAudio("/v/a.ogg.temp.audio", "/v/a.ogg").Args)
}

func TestEncoderErrorMessage(t *testing.T) {
	err := &EncoderError{
		Purpose:  PurposeMerge,
		Output:   "/v/a.mp4",
		ExitCode: 1,
		Stderr:   "frame=1\nInvalid data found when processing input\n",
	}
	assert.Equal(t, "merge encoder failed writing /v/a.mp4 (exit 1): Invalid data found when processing input", err.Error())
}

func TestTailBufferKeepsNewestBytes(t *testing.T) {
	tb := newTailBuffer(8)

	_, _ = tb.Write([]byte("abcdef"))
	assert.Equal(t, "abcdef", tb.String())

	_, _ = tb.Write([]byte("ghij"))
	assert.Equal(t, "cdefghij", tb.String())

	n, err := tb.Write([]byte("0123456789"))
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, "23456789", tb.String())
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestRunSuccess(t *testing.T) {
	requireShell(t)
	f := NewFFmpeg("sh")

	err := f.Run(context.Background(), Invocation{Purpose: PurposeMerge, Args: []string{"-c", "exit 0"}})
	assert.NoError(t, err)
}

func TestRunFailureCarriesExitCodeAndStderr(t *testing.T) {
	requireShell(t)
	f := NewFFmpeg("sh")

	err := f.Run(context.Background(), Invocation{
		Purpose: PurposeTranscode,
		Args:    []string{"-c", "echo 'codec not found' >&2; exit 3"},
		Output:  "/v/out.mp4",
	})

	var encErr *EncoderError
	require.True(t, errors.As(err, &encErr), "want *EncoderError, got %T", err)
	assert.Equal(t, 3, encErr.ExitCode)
	assert.Equal(t, PurposeTranscode, encErr.Purpose)
	assert.Contains(t, encErr.Stderr, "codec not found")
}

func TestRunMissingBinary(t *testing.T) {
	f := NewFFmpeg("/nonexistent/ffmpeg-binary")

	err := f.Run(context.Background(), Invocation{Purpose: PurposeMerge})

	var spawnErr *SpawnError
	assert.True(t, errors.As(err, &spawnErr), "want *SpawnError, got %T", err)
}

func TestStartMissingBinary(t *testing.T) {
	f := NewFFmpeg("/nonexistent/ffmpeg-binary")

	p, err := f.Start(Invocation{Purpose: PurposeAudioCapture})

	assert.Nil(t, p)
	var spawnErr *SpawnError
	require.True(t, errors.As(err, &spawnErr))
	assert.Equal(t, PurposeAudioCapture, spawnErr.Purpose)
}

func TestStartAndTerminate(t *testing.T) {
	requireShell(t)
	f := NewFFmpeg("sh")

	p, err := f.Start(Invocation{Purpose: PurposeDirectCapture, Args: []string{"-c", "exec sleep 30"}})
	require.NoError(t, err)
	assert.Greater(t, p.Pid, 0)
	assert.False(t, p.Exited())

	require.NoError(t, f.Terminate(p))
	assert.True(t, p.Exited())

	// second terminate of an exited process is tolerated
	assert.NoError(t, f.Terminate(p))
}

func TestStartLeadsOwnProcessGroup(t *testing.T) {
	requireShell(t)
	f := NewFFmpeg("sh")

	p, err := f.Start(Invocation{Purpose: PurposeAudioCapture, Args: []string{"-c", "exec sleep 30"}})
	require.NoError(t, err)
	defer func() { _ = f.Terminate(p) }()

	pgid, err := syscall.Getpgid(p.Pid)
	require.NoError(t, err)
	assert.Equal(t, p.Pid, pgid, "encoder must lead its own process group")
}

func TestTerminateProcessThatAlreadyExited(t *testing.T) {
	requireShell(t)
	f := NewFFmpeg("sh")

	p, err := f.Start(Invocation{Purpose: PurposeAudioCapture, Args: []string{"-c", "echo done >&2"}})
	require.NoError(t, err)
	require.NoError(t, p.Wait())

	assert.NoError(t, f.Terminate(p))
	assert.Contains(t, p.StderrTail(), "done")
}

func TestTerminateReapedPidIsTolerated(t *testing.T) {
	requireShell(t)

	cmd := exec.Command("sh", "-c", "true")
	require.NoError(t, cmd.Run())

	// Not marked as exited, so Terminate has to signal and see ESRCH
	p, _ := NewProcess(cmd.Process.Pid, PurposeDirectCapture, "")
	assert.NoError(t, NewFFmpeg("sh").Terminate(p))
}

func TestTerminateKillsAfterGrace(t *testing.T) {
	requireShell(t)
	f := NewFFmpeg("sh")
	f.KillGrace = 100 * time.Millisecond

	p, err := f.Start(Invocation{
		Purpose: PurposeDirectCapture,
		Args:    []string{"-c", "trap '' TERM; exec sleep 30"},
	})
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, f.Terminate(p))
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.True(t, p.Exited())
}

func TestNewProcessFinishOnce(t *testing.T) {
	p, finish := NewProcess(42, PurposeMerge, "/v/x")
	finish(errors.New("first"))
	finish(errors.New("second"))

	err := p.Wait()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "first"))
}
