// Package diaglog provides structured NDJSON diagnostic logging for screenrec.
// Activated by SCREENREC_DEBUG_RECORDING=true. When the env var is absent, all
// Log calls are no-ops and no file is created.
package diaglog

import (
	"encoding/json"
	"os"
	"strconv"
	"time"
)

// ── Component labels ─────────────────────────────────────────────────────────

const (
	ComponentSession    = "session"
	ComponentEncoder    = "encoder"
	ComponentScreencast = "screencast"
	ComponentPipeline   = "pipeline"
	ComponentPlayback   = "playback"
	ComponentDaemon     = "daemon"
)

// ── Event names ─────────────────────────────────────────────────────────────

const (
	EventSessionStart     = "session_start"
	EventSessionStop      = "session_stop"
	EventSessionFailed    = "session_failed"
	EventConflictDeclined = "conflict_declined"
	EventStage            = "stage"
	EventSpawn            = "spawn"
	EventSignal           = "signal"
	EventEncoderRun       = "encoder_run"
	EventEncoderFailed    = "encoder_failed"
	EventIPCCall          = "ipc_call"
	EventIPCFailed        = "ipc_failed"
	EventPostCommand      = "post_command"
	EventCommand          = "command"
)

// DefaultMaxSizeMB caps one log generation unless SCREENREC_LOG_MAX_MB says otherwise.
const DefaultMaxSizeMB = 10

// LogEntry is one event, written as a single JSON line.
type LogEntry struct {
	Timestamp string      `json:"ts"` // RFC3339Nano, filled in by Log
	Component string      `json:"component"`
	Event     string      `json:"event"`
	SessionID string      `json:"session_id,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	Payload   interface{} `json:"payload,omitempty"` // redacted before write
}

// failure reports whether the entry records a failed session or encoder run.
func (e LogEntry) failure() bool {
	return e.Event == EventSessionFailed || e.Event == EventEncoderFailed
}

// Logger writes entries to the diagnostic log. A disabled Logger, including
// the nil Logger, drops everything.
type Logger struct {
	file *logFile
}

// New opens (or creates) the log at path. With debug mode off, path is
// ignored and a no-op logger is returned.
func New(path string) (*Logger, error) {
	if !IsDebugEnabled() {
		return NewNoOp(), nil
	}
	f, err := openLogFile(path, MaxSize())
	if err != nil {
		return nil, err
	}
	return &Logger{file: f}, nil
}

// Log stamps, redacts and appends entry. Write errors are dropped; the
// diagnostic log never interrupts a recording.
func (l *Logger) Log(entry LogEntry) {
	if l == nil || l.file == nil {
		return
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if entry.Payload != nil {
		entry.Payload = Redact(entry.Payload)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_, _ = l.file.Write(append(data, '\n'))
}

// Close closes the log file. Safe on nil and disabled loggers.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// IsDebugEnabled reports whether SCREENREC_DEBUG_RECORDING is set to "true".
func IsDebugEnabled() bool {
	return os.Getenv("SCREENREC_DEBUG_RECORDING") == "true"
}

// DefaultPath returns SCREENREC_LOG_PATH or /tmp/screenrec-debug.log.
func DefaultPath() string {
	if p := os.Getenv("SCREENREC_LOG_PATH"); p != "" {
		return p
	}
	return "/tmp/screenrec-debug.log"
}

// MaxSize returns the size of one log generation in bytes, taken from
// SCREENREC_LOG_MAX_MB when it holds a positive integer.
func MaxSize() int64 {
	mb := DefaultMaxSizeMB
	if v, err := strconv.Atoi(os.Getenv("SCREENREC_LOG_MAX_MB")); err == nil && v > 0 {
		mb = v
	}
	return int64(mb) * 1024 * 1024
}

// NewNoOp returns a logger that drops every entry. Callers fall back to it
// when New fails.
func NewNoOp() *Logger {
	return &Logger{}
}
