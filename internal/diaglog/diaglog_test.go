package diaglog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readEntries(t *testing.T, path string) []LogEntry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var entries []LogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e LogEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestLogWritesNDJSON(t *testing.T) {
	t.Setenv("SCREENREC_DEBUG_RECORDING", "true")
	path := filepath.Join(t.TempDir(), "nested", "debug.log")

	l, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Log(LogEntry{Component: ComponentSession, Event: EventSessionStart, SessionID: "s1"})
	l.Log(LogEntry{
		Component: ComponentPipeline,
		Event:     EventPostCommand,
		SessionID: "s1",
		Payload:   map[string]interface{}{"post_command": "upload --token abc ~/Videos/demo.mp4"},
	})
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries := readEntries(t, path)
	if len(entries) != 2 {
		t.Fatalf("want 2 entries, got %d", len(entries))
	}
	if entries[0].Timestamp == "" {
		t.Error("timestamp not filled in")
	}
	payload := entries[1].Payload.(map[string]interface{})
	if got := payload["post_command"]; got != "upload [REDACTED]" {
		t.Errorf("post_command = %v, want program name only", got)
	}
}

func TestLogAfterCloseIsDropped(t *testing.T) {
	t.Setenv("SCREENREC_DEBUG_RECORDING", "true")
	path := filepath.Join(t.TempDir(), "debug.log")

	l, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = l.Close()
	l.Log(LogEntry{Component: ComponentDaemon, Event: EventCommand})

	if entries := readEntries(t, path); len(entries) != 0 {
		t.Errorf("want empty log after close, got %d entries", len(entries))
	}
}

func TestRotationKeepsPreviousGeneration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	lf, err := openLogFile(path, 1024)
	if err != nil {
		t.Fatalf("openLogFile: %v", err)
	}
	defer lf.Close()

	first := strings.Repeat("a", 600) + "\n"
	second := strings.Repeat("b", 600) + "\n"
	for _, line := range []string{first, second} {
		if _, err := lf.Write([]byte(line)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	backup, err := os.ReadFile(BackupPath(path))
	if err != nil {
		t.Fatalf("backup not written: %v", err)
	}
	if string(backup) != first {
		t.Errorf("backup holds %d bytes, want the first line", len(backup))
	}
	current, _ := os.ReadFile(path)
	if string(current) != second {
		t.Errorf("current log holds %d bytes, want the second line", len(current))
	}
}

func TestOversizedLineIsStillWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	lf, err := openLogFile(path, 16)
	if err != nil {
		t.Fatalf("openLogFile: %v", err)
	}
	defer lf.Close()

	line := strings.Repeat("x", 64) + "\n"
	if _, err := lf.Write([]byte(line)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(BackupPath(path)); !os.IsNotExist(err) {
		t.Error("an empty log must not be rotated")
	}
	if got, _ := os.ReadFile(path); string(got) != line {
		t.Error("oversized line lost")
	}
}

func TestMaxSize(t *testing.T) {
	tests := []struct {
		env  string
		want int64
	}{
		{"", DefaultMaxSizeMB << 20},
		{"3", 3 << 20},
		{"0", DefaultMaxSizeMB << 20},
		{"-1", DefaultMaxSizeMB << 20},
		{"lots", DefaultMaxSizeMB << 20},
	}
	for _, tt := range tests {
		t.Setenv("SCREENREC_LOG_MAX_MB", tt.env)
		if got := MaxSize(); got != tt.want {
			t.Errorf("MaxSize() with %q = %d, want %d", tt.env, got, tt.want)
		}
	}
}

func TestRedact(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]interface{}
		key  string
		want interface{}
	}{
		{"secret", map[string]interface{}{"token": "tok"}, "token", "[REDACTED]"},
		{"single word command", map[string]interface{}{"post_command": "sync"}, "post_command", "sync"},
		{"command arguments", map[string]interface{}{"post_command": "curl -H 'Authorization: x' https://example.invalid"}, "post_command", "curl [REDACTED]"},
		{"env prefix", map[string]interface{}{"post_command": "API_KEY=abc notify-send done"}, "post_command", "notify-send [REDACTED]"},
		{"only assignments", map[string]interface{}{"command_line": "A=1 B=2"}, "command_line", "[REDACTED]"},
		{"blank command", map[string]interface{}{"post_command": "   "}, "post_command", ""},
		{"non-string command", map[string]interface{}{"post_command": []interface{}{"rm", "-rf"}}, "post_command", "[REDACTED]"},
		{"safe field", map[string]interface{}{"path": "/v/demo.mp4"}, "path", "/v/demo.mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Redact(tt.in).(map[string]interface{})
			if got := out[tt.key]; got != tt.want {
				t.Errorf("%s = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestRedactNestedAndStringMaps(t *testing.T) {
	in := map[string]interface{}{
		"env":   map[string]string{"password": "hunter2", "DISPLAY": ":0"},
		"steps": []interface{}{map[string]interface{}{"secret": "s"}},
	}
	out := Redact(in).(map[string]interface{})

	env := out["env"].(map[string]interface{})
	if env["password"] != "[REDACTED]" || env["DISPLAY"] != ":0" {
		t.Errorf("string map redacted wrongly: %v", env)
	}
	step := out["steps"].([]interface{})[0].(map[string]interface{})
	if step["secret"] != "[REDACTED]" {
		t.Errorf("nested slice not redacted: %v", step)
	}
	if in["env"].(map[string]string)["password"] != "hunter2" {
		t.Error("input was modified")
	}
}

func TestNoOpWhenDisabled(t *testing.T) {
	t.Setenv("SCREENREC_DEBUG_RECORDING", "")
	path := filepath.Join(t.TempDir(), "noop.log")

	l, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Log(LogEntry{Component: ComponentEncoder, Event: EventSpawn})
	_ = l.Close()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("log file should not exist when debug disabled")
	}

	var nilLogger *Logger
	nilLogger.Log(LogEntry{Event: EventSpawn})
	if err := nilLogger.Close(); err != nil {
		t.Errorf("nil logger Close: %v", err)
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("SCREENREC_LOG_PATH", "")
	if got := DefaultPath(); got != "/tmp/screenrec-debug.log" {
		t.Errorf("DefaultPath() = %q", got)
	}
	t.Setenv("SCREENREC_LOG_PATH", "/var/tmp/x.log")
	if got := DefaultPath(); got != "/var/tmp/x.log" {
		t.Errorf("DefaultPath() with override = %q", got)
	}
}
