package detector

import (
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultDisplay is used when DISPLAY is unset
const DefaultDisplay = ":0"

// EnvDetector reads the session from process environment variables
type EnvDetector struct {
	getenv func(string) string
}

// NewEnvDetector creates a detector over os.Getenv
func NewEnvDetector() *EnvDetector {
	return &EnvDetector{getenv: os.Getenv}
}

// NewEnvDetectorFunc creates a detector over a custom lookup, for tests
func NewEnvDetectorFunc(getenv func(string) string) *EnvDetector {
	return &EnvDetector{getenv: getenv}
}

// Name returns the detector identifier
func (d *EnvDetector) Name() string {
	return "env"
}

// Detect inspects the session. A Wayland session uses the compositor backend,
// anything else grabs frames from the X display.
func (d *EnvDetector) Detect() (*Environment, error) {
	env := &Environment{
		SessionType: strings.ToLower(strings.TrimSpace(d.getenv("XDG_SESSION_TYPE"))),
		Display:     d.getenv("DISPLAY"),
		Sandboxed:   d.getenv("SNAP") != "",
		Backend:     BackendDirect,
		EvaluatedAt: time.Now(),
	}

	if env.Display == "" {
		env.Display = DefaultDisplay
	}
	if env.SessionType == "wayland" {
		env.Backend = BackendCompositor
	}

	return env, nil
}

// ToolStatus reports whether an external program is on PATH
type ToolStatus struct {
	Name  string `json:"name"`
	Path  string `json:"path,omitempty"`
	Found bool   `json:"found"`
}

// LookupTools resolves each program name on PATH
func LookupTools(names ...string) []ToolStatus {
	out := make([]ToolStatus, 0, len(names))
	for _, name := range names {
		st := ToolStatus{Name: name}
		if p, err := exec.LookPath(name); err == nil {
			st.Path = p
			st.Found = true
		}
		out = append(out, st)
	}
	return out
}
