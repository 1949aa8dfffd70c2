package validation

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/tiroq/screenrec/internal/encoder"
	"github.com/tiroq/screenrec/internal/screencast"
)

func TestValidateFFmpegVersion(t *testing.T) {
	tests := []struct {
		name        string
		output      string
		wantOK      bool
		wantWarning bool
	}{
		{"distro build", "ffmpeg version 6.1.1-3ubuntu5 Copyright (c) 2000-2023 the FFmpeg developers\nbuilt with gcc 13", true, false},
		{"tagged release", "ffmpeg version n7.0 Copyright (c) 2000-2024", true, false},
		{"minimum", "ffmpeg version 4.0.2", true, false},
		{"too old", "ffmpeg version 3.4.8-0ubuntu0.2", false, false},
		{"git snapshot", "ffmpeg version N-113034-g8c7a5a0 Copyright", true, true},
		{"garbage", "bash: ffmpeg: command not found", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ValidateFFmpegVersion(tt.output)
			if r.OK != tt.wantOK {
				t.Errorf("OK = %v, want %v (%s)", r.OK, tt.wantOK, r.Message)
			}
			if (len(r.Warnings) > 0) != tt.wantWarning {
				t.Errorf("warnings = %v, want warning %v", r.Warnings, tt.wantWarning)
			}
			if !r.OK && len(r.Fixes) == 0 {
				t.Error("failed check should suggest a fix")
			}
		})
	}
}

func TestValidateOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "videos")
	if r := ValidateOutputDir(dir); !r.OK {
		t.Fatalf("expected writable dir: %s %v", r.Message, r.Issues)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("directory should have been created: %v", err)
	}

	file := filepath.Join(t.TempDir(), "plain-file")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if r := ValidateOutputDir(file); r.OK {
		t.Error("a regular file is not a usable output directory")
	}
}

func TestValidateCompositor(t *testing.T) {
	if r := ValidateCompositor(nil); !r.OK {
		t.Error("nil ping error should pass")
	}
	r := ValidateCompositor(&screencast.Error{Method: "ping", Err: errors.New("name has no owner")})
	if r.OK {
		t.Error("ping error should fail")
	}
	if !strings.Contains(strings.Join(r.Fixes, "\n"), "XDG_SESSION_TYPE") {
		t.Errorf("fixes should mention the session type: %v", r.Fixes)
	}
}

func TestSuggestedFixes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"spawn", &encoder.SpawnError{Purpose: encoder.PurposeAudioCapture, Err: errors.New("not found")}, "ffmpeg -version"},
		{"signal eperm", &encoder.SignalError{Pid: 12, Err: syscall.EPERM}, "Not allowed"},
		{"encoder", &encoder.EncoderError{Purpose: encoder.PurposeMerge, Output: "/v/a.mp4", ExitCode: 1}, "/v/a.mp4.temp*"},
		{"screencast", &screencast.Error{Method: "ScreencastArea"}, "GNOME Wayland"},
		{"other", errors.New("boom"), "screenrec.err.log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixes := strings.Join(SuggestedFixes(tt.err), "\n")
			if !strings.Contains(fixes, tt.want) {
				t.Errorf("fixes %q do not contain %q", fixes, tt.want)
			}
		})
	}

	if fixes := SuggestedFixes(nil); len(fixes) != 0 {
		t.Errorf("nil error should have no fixes, got %v", fixes)
	}
}
