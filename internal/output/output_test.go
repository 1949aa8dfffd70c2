package output

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{1499 * time.Millisecond, "1s"},
		{59 * time.Second, "59s"},
		{61 * time.Second, "1m01s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h02m03s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRecordingStarted(t *testing.T) {
	tests := []struct {
		backend string
		audio   bool
		want    string
	}{
		{"direct", false, "Recording screen to /v/a.mp4 (direct)"},
		{"compositor", true, "Recording screen and audio to /v/a.mp4 (compositor)"},
		{"", true, "Recording audio to /v/a.mp4\n"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		NewFormatter(&buf).RecordingStarted("/v/a.mp4", tt.backend, tt.audio)
		if !strings.Contains(buf.String(), tt.want) {
			t.Errorf("got %q, want it to contain %q", buf.String(), tt.want)
		}
	}
}

func TestProgressPlain(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, false)

	p.Report("Stop Recording Video", 1, 6)
	p.Report("Finished", 6, 6)
	p.Hide()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	if !strings.Contains(lines[0], "[1/6] Stop Recording Video") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "[6/6] Finished") {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestProgressInteractiveClearsOnHide(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, true)

	p.Hide()
	if buf.Len() != 0 {
		t.Errorf("Hide before any report wrote %q", buf.String())
	}

	p.Report("Save Audio Recording", 5, 6)
	p.Hide()

	out := buf.String()
	if strings.Contains(out, "\n") {
		t.Errorf("interactive progress must redraw in place, got %q", out)
	}
	if !strings.HasSuffix(out, "\r\033[K") {
		t.Errorf("Hide should clear the line, got %q", out)
	}
}

func TestStatus(t *testing.T) {
	var buf bytes.Buffer
	NewFormatter(&buf).Status(StatusView{
		Daemon:     true,
		PID:        42,
		State:      "stopping",
		Path:       "/v/demo.mp4",
		StageLabel: "Finalize Video Track",
		StageN:     4,
		StageTotal: 6,
	})

	out := buf.String()
	for _, want := range []string{"running (PID 42)", "⏳ stopping", "/v/demo.mp4", "[4/6] Finalize Video Track"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Duration") {
		t.Errorf("duration only shown while recording:\n%s", out)
	}
}

func TestFixesKeepsBlankLines(t *testing.T) {
	var buf bytes.Buffer
	NewFormatter(&buf).Fixes([]string{"a", "", "b"})
	if got := buf.String(); got != "   a\n\n   b\n" {
		t.Errorf("got %q", got)
	}
}
