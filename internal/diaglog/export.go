package diaglog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Version is set by the CLI before exporting.
var Version = "dev"

// DiagBundle heads an export file. It summarises the log lines that follow
// so a bug report can be triaged without reading them.
type DiagBundle struct {
	ExportedAt  string   `json:"exported_at"`
	AppVersion  string   `json:"screenrec_version"`
	GoVersion   string   `json:"go_version"`
	Platform    string   `json:"platform"`
	SessionType string   `json:"session_type,omitempty"`
	LogFiles    []string `json:"log_files"`
	EntryCount  int      `json:"entry_count"`
	Sessions    []string `json:"sessions,omitempty"` // in order of first appearance
	Failures    int      `json:"failures"`
	Unparsed    int      `json:"unparsed,omitempty"`
}

// Export writes dest/screenrec-diag-<ts>.ndjson: a DiagBundle line followed
// by the rotated backup of logPath (if any) and logPath itself, oldest line
// first. It returns the written path and the number of log lines copied.
func Export(logPath, dest string) (path string, lines int, err error) {
	if _, err := os.Stat(logPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", 0, fmt.Errorf("log file not found at %s: %w", logPath, os.ErrNotExist)
		}
		return "", 0, fmt.Errorf("log file unreadable: %w", err)
	}

	bundle := DiagBundle{
		ExportedAt:  time.Now().UTC().Format(time.RFC3339),
		AppVersion:  Version,
		GoVersion:   runtime.Version(),
		Platform:    runtime.GOOS + "/" + runtime.GOARCH,
		SessionType: os.Getenv("XDG_SESSION_TYPE"),
	}

	sources := []string{logPath}
	if _, err := os.Stat(BackupPath(logPath)); err == nil {
		sources = []string{BackupPath(logPath), logPath}
	}

	var body [][]byte
	seen := map[string]bool{}
	for _, src := range sources {
		ls, err := readLines(src)
		if err != nil {
			return "", 0, fmt.Errorf("log file unreadable: %w", err)
		}
		bundle.LogFiles = append(bundle.LogFiles, src)

		for _, line := range ls {
			var e LogEntry
			if json.Unmarshal(line, &e) != nil {
				bundle.Unparsed++
			} else {
				if e.SessionID != "" && !seen[e.SessionID] {
					seen[e.SessionID] = true
					bundle.Sessions = append(bundle.Sessions, e.SessionID)
				}
				if e.failure() {
					bundle.Failures++
				}
			}
			body = append(body, line)
		}
	}
	bundle.EntryCount = len(body)

	outPath := filepath.Join(dest, "screenrec-diag-"+time.Now().UTC().Format("20060102T150405")+".ndjson")
	out, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", 0, fmt.Errorf("output file could not be created: %w", err)
	}
	defer func() { _ = out.Close() }()

	w := bufio.NewWriter(out)
	if err := json.NewEncoder(w).Encode(bundle); err != nil {
		return "", 0, err
	}
	for _, line := range body {
		if _, err := w.Write(append(line, '\n')); err != nil {
			return "", 0, err
		}
	}
	if err := w.Flush(); err != nil {
		return "", 0, err
	}
	return outPath, len(body), nil
}

// readLines returns the non-empty lines of path. A generation is capped by
// MaxSize, so holding it in memory is fine.
func readLines(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var lines [][]byte
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), int(MaxSize())+1)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), scanner.Bytes()...))
	}
	return lines, scanner.Err()
}
