package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) RecordingStarted(path, backend string, audio bool) {
	what := "screen"
	switch {
	case backend == "" && audio:
		what = "audio"
	case audio:
		what = "screen and audio"
	}
	fmt.Fprintf(f.w, "🔴 Recording %s to %s", what, path)
	if backend != "" {
		fmt.Fprintf(f.w, " (%s)", backend)
	}
	fmt.Fprintln(f.w)
}

func (f *Formatter) WaitingForStop() {
	fmt.Fprintf(f.w, "   Press Ctrl+C or run 'screenrec stop' to finish\n")
}

func (f *Formatter) RecordingSaved(path string, duration time.Duration) {
	fmt.Fprintf(f.w, "✅ Recording saved: %s (%s)\n", path, FormatDuration(duration))
}

func (f *Formatter) Stage(label string, n, total int) {
	fmt.Fprintf(f.w, "⏳ [%d/%d] %s\n", n, total, label)
}

func (f *Formatter) Sent(cmd string) {
	fmt.Fprintf(f.w, "📨 Sent %q to the daemon\n", cmd)
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", msg)
}

// Fixes prints troubleshooting lines under an error
func (f *Formatter) Fixes(lines []string) {
	for _, l := range lines {
		if l == "" {
			fmt.Fprintln(f.w)
			continue
		}
		fmt.Fprintf(f.w, "   %s\n", l)
	}
}

func (f *Formatter) SetupCheck(name string, ok bool, detail string) {
	if ok {
		fmt.Fprintf(f.w, "  ✅ %s: %s\n", name, detail)
	} else {
		fmt.Fprintf(f.w, "  ❌ %s: %s\n", name, detail)
	}
}

// StatusView is what `screenrec status` prints
type StatusView struct {
	Daemon        bool
	PID           int
	State         string
	Backend       string
	Path          string
	Duration      time.Duration
	StageLabel    string
	StageN        int
	StageTotal    int
	LastRecording string
	LastError     string
	UpdatedAt     time.Time
}

func (f *Formatter) Status(v StatusView) {
	if v.Daemon {
		fmt.Fprintf(f.w, "Daemon:    running (PID %d)\n", v.PID)
	} else {
		fmt.Fprintf(f.w, "Daemon:    not running\n")
	}
	fmt.Fprintf(f.w, "State:     %s\n", stateIcon(v.State)+" "+v.State)
	if v.Path != "" {
		fmt.Fprintf(f.w, "Target:    %s\n", v.Path)
	}
	if v.Backend != "" {
		fmt.Fprintf(f.w, "Backend:   %s\n", v.Backend)
	}
	if v.State == "recording" {
		fmt.Fprintf(f.w, "Duration:  %s\n", FormatDuration(v.Duration))
	}
	if v.StageLabel != "" {
		fmt.Fprintf(f.w, "Stage:     [%d/%d] %s\n", v.StageN, v.StageTotal, v.StageLabel)
	}
	if v.LastRecording != "" {
		fmt.Fprintf(f.w, "Last:      %s\n", v.LastRecording)
	}
	if v.LastError != "" {
		fmt.Fprintf(f.w, "Error:     %s\n", v.LastError)
	}
	if !v.UpdatedAt.IsZero() {
		fmt.Fprintf(f.w, "Updated:   %s\n", v.UpdatedAt.Local().Format(time.RFC3339))
	}
}

func stateIcon(state string) string {
	switch state {
	case "recording":
		return "🔴"
	case "stopping":
		return "⏳"
	case "finished":
		return "✅"
	case "failed":
		return "❌"
	default:
		return "⚪"
	}
}

// Progress renders stop stages. On a terminal the stage line is redrawn in
// place and cleared by Hide; otherwise every stage gets its own line.
type Progress struct {
	f           *Formatter
	interactive bool

	mu    sync.Mutex
	shown bool
}

func NewProgress(w io.Writer, interactive bool) *Progress {
	return &Progress{f: NewFormatter(w), interactive: interactive}
}

func (p *Progress) Report(label string, n, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.interactive {
		p.f.Stage(label, n, total)
		return
	}
	fmt.Fprintf(p.f.w, "\r\033[K⏳ [%d/%d] %s", n, total, label)
	p.shown = true
}

func (p *Progress) Hide() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.interactive && p.shown {
		fmt.Fprint(p.f.w, "\r\033[K")
	}
	p.shown = false
}

// IsTerminal reports whether f is a character device
func IsTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
