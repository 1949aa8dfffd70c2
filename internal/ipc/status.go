package ipc

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tiroq/screenrec/internal/session"
)

// StatusSnapshot represents the daemon state at a point in time
type StatusSnapshot struct {
	State           string         `json:"state"`                    // idle, recording, stopping, finished or failed
	SessionID       string         `json:"session_id,omitempty"`     // Active or last session
	Backend         string         `json:"backend,omitempty"`        // direct or compositor while recording
	Path            string         `json:"path,omitempty"`           // Target of the active session
	DurationSeconds float64        `json:"duration_seconds"`         // Recording time so far
	Stage           *session.Stage `json:"stage,omitempty"`          // Current stop stage
	LastRecording   string         `json:"last_recording,omitempty"` // Most recent finished artifact
	LastAction      string         `json:"last_action"`              // Last command handled
	LastError       string         `json:"last_error"`               // Last error message
	PID             int            `json:"pid"`                      // Daemon process
	Timestamp       time.Time      `json:"timestamp"`                // Snapshot time
}

// NewSnapshot converts an orchestrator status into its persisted form
func NewSnapshot(st session.Status, lastAction string) *StatusSnapshot {
	return &StatusSnapshot{
		State:           string(st.State),
		SessionID:       st.SessionID,
		Backend:         string(st.Backend),
		Path:            st.Path,
		DurationSeconds: st.Duration.Seconds(),
		Stage:           st.Stage,
		LastRecording:   st.LastRecording,
		LastAction:      lastAction,
		LastError:       st.LastError,
		PID:             os.Getpid(),
		Timestamp:       time.Now(),
	}
}

// StatusPath returns the path of the status file
func StatusPath() string {
	return filepath.Join(CacheDir(), "status.json")
}

// WriteStatus persists StatusSnapshot to ~/.cache/screenrec/status.json using atomic write
func WriteStatus(status *StatusSnapshot) error {
	if err := os.MkdirAll(CacheDir(), 0755); err != nil {
		return err
	}
	return atomicWriteJSON(StatusPath(), status)
}

// ReadStatus loads StatusSnapshot from ~/.cache/screenrec/status.json
func ReadStatus() (*StatusSnapshot, error) {
	data, err := os.ReadFile(StatusPath())
	if err != nil {
		return nil, err
	}

	var status StatusSnapshot
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}

	return &status, nil
}

// StatusReporter is a progress reporter that mirrors every stop stage into
// the status file, so `screenrec status` can follow a running stop.
type StatusReporter struct {
	source func() session.Status
	logger *log.Logger

	mu         sync.Mutex
	lastAction string
}

// NewStatusReporter creates a reporter that snapshots source on each call.
// source may be nil until Bind is called.
func NewStatusReporter(source func() session.Status, logger *log.Logger) *StatusReporter {
	if logger == nil {
		logger = log.Default()
	}
	return &StatusReporter{source: source, logger: logger}
}

// Bind sets the status source. Reports made before Bind describe an idle
// orchestrator.
func (r *StatusReporter) Bind(source func() session.Status) {
	r.mu.Lock()
	r.source = source
	r.mu.Unlock()
}

// SetLastAction records the command the next snapshots are attributed to
func (r *StatusReporter) SetLastAction(action string) {
	r.mu.Lock()
	r.lastAction = action
	r.mu.Unlock()
}

func (r *StatusReporter) Report(label string, n, total int) {
	snap := r.snapshot()
	snap.Stage = &session.Stage{Label: label, N: n, Total: total}
	r.write(snap)
}

func (r *StatusReporter) Hide() {
	snap := r.snapshot()
	snap.Stage = nil
	r.write(snap)
}

// Publish writes the current state
func (r *StatusReporter) Publish() {
	r.write(r.snapshot())
}

func (r *StatusReporter) snapshot() *StatusSnapshot {
	r.mu.Lock()
	action, source := r.lastAction, r.source
	r.mu.Unlock()

	var st session.Status
	if source != nil {
		st = source()
	}
	return NewSnapshot(st, action)
}

func (r *StatusReporter) write(snap *StatusSnapshot) {
	if err := WriteStatus(snap); err != nil {
		r.logger.Printf("Failed to write status: %v", err)
	}
}

// atomicWriteJSON writes data to a file atomically using temp file + rename
func atomicWriteJSON(path string, data interface{}) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, "status-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	// Ensure cleanup on error
	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return err
	}

	if err := tmpFile.Sync(); err != nil {
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}
	tmpFile = nil

	return os.Rename(tmpPath, path)
}
