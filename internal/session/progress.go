package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// ProgressReporter renders stop-stage progress. Report is called with
// (label, n, total) in stage order, Hide once the stop is over.
type ProgressReporter interface {
	Report(label string, n, total int)
	Hide()
}

// MultiReporter fans every call out to each reporter in order.
type MultiReporter []ProgressReporter

func (m MultiReporter) Report(label string, n, total int) {
	for _, r := range m {
		r.Report(label, n, total)
	}
}

func (m MultiReporter) Hide() {
	for _, r := range m {
		r.Hide()
	}
}

type nopReporter struct{}

func (nopReporter) Report(string, int, int) {}
func (nopReporter) Hide()                   {}

// Confirmer answers whether an existing file may be overwritten. A
// cancelled ctx must make it return false promptly.
type Confirmer interface {
	ConfirmOverwrite(ctx context.Context, path string) bool
}

// StaticConfirmer always gives the same answer.
type StaticConfirmer bool

func (s StaticConfirmer) ConfirmOverwrite(context.Context, string) bool { return bool(s) }

// PromptConfirmer asks on a terminal. Anything but y/yes declines, and so
// does cancelling ctx while the question is open. The read of In is left
// pending in that case.
type PromptConfirmer struct {
	In  io.Reader
	Out io.Writer
}

func (p PromptConfirmer) ConfirmOverwrite(ctx context.Context, path string) bool {
	fmt.Fprintf(p.Out, "%s already exists. Overwrite? [y/N] ", path)

	answer := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(p.In).ReadString('\n')
		answer <- line
	}()

	select {
	case line := <-answer:
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		default:
			return false
		}
	case <-ctx.Done():
		fmt.Fprintln(p.Out)
		return false
	}
}
