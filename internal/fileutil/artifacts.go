// Package fileutil names and moves the files a recording session produces.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TimestampLayout renders the fallback base name. It sorts lexically and
// contains no spaces.
const TimestampLayout = "2006-01-02-15-04-05"

// ResolveOutputPath returns outputDir/<name>.<format>. A blank name is
// replaced by the UTC timestamp of now.
func ResolveOutputPath(outputDir, name, format string, now time.Time) string {
	base := strings.TrimSpace(name)
	if base == "" {
		base = now.UTC().Format(TimestampLayout)
	}
	return filepath.Join(outputDir, base+"."+strings.TrimPrefix(format, "."))
}

// Artifacts is the set of file names derived from one resolved output path.
// Only one session is active at a time, so names never collide.
type Artifacts struct {
	Final  string // the finished recording
	Format string // container extension of Final
}

// NewArtifacts derives the artifact namespace for a resolved output path.
func NewArtifacts(final, format string) Artifacts {
	return Artifacts{Final: final, Format: strings.TrimPrefix(format, ".")}
}

// Temp is the compositor's raw capture.
func (a Artifacts) Temp() string {
	return a.Final + ".temp"
}

// TempAudio is the raw audio track.
func (a Artifacts) TempAudio() string {
	return a.Final + ".temp.audio"
}

// TempVideo is the video-only track staged for the merge step.
func (a Artifacts) TempVideo() string {
	return a.Final + ".temp.without.audio." + a.Format
}

// TempFiles lists every temporary name in a stable order.
func (a Artifacts) TempFiles() []string {
	return []string{a.Temp(), a.TempAudio(), a.TempVideo()}
}

// Exists reports whether a regular file or directory exists at path.
func Exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Move renames src to dst. Moving a path onto itself is a no-op.
func Move(src, dst string) error {
	if src == dst {
		return nil
	}
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("move %s: %w", src, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("move %s to %s: %w", src, dst, err)
	}
	return nil
}

// Remove deletes path, ignoring a file that is already gone.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// EnsureDir creates dir if needed and verifies it is a writable directory.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	scratch, err := os.CreateTemp(dir, ".screenrec-write-*")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	name := scratch.Name()
	_ = scratch.Close()
	_ = os.Remove(name)
	return nil
}
