package detector

import "time"

// BackendKind selects how video is captured
type BackendKind string

const (
	BackendDirect     BackendKind = "direct"     // ffmpeg x11grab
	BackendCompositor BackendKind = "compositor" // GNOME Shell screencast over D-Bus
)

// Environment is one evaluation of the desktop session the recorder runs in
type Environment struct {
	SessionType string      `json:"session_type"` // XDG_SESSION_TYPE, lowercased
	Display     string      `json:"display"`      // X display for direct capture
	Sandboxed   bool        `json:"sandboxed"`    // running inside a snap
	Backend     BackendKind `json:"backend"`
	EvaluatedAt time.Time   `json:"evaluated_at"`
}

// Detector interface for environment probing
type Detector interface {
	Detect() (*Environment, error)
	Name() string
}
