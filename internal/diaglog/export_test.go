package diaglog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordSessions logs a short history of two sessions, the second failing
func recordSessions(t *testing.T, path string) {
	t.Helper()
	t.Setenv("SCREENREC_DEBUG_RECORDING", "true")

	l, err := New(path)
	require.NoError(t, err)
	defer l.Close()

	l.Log(LogEntry{Component: ComponentDaemon, Event: EventCommand, Payload: map[string]interface{}{"command": "start"}})
	l.Log(LogEntry{Component: ComponentSession, Event: EventSessionStart, SessionID: "aaa"})
	l.Log(LogEntry{Component: ComponentSession, Event: EventSessionStop, SessionID: "aaa"})
	l.Log(LogEntry{Component: ComponentSession, Event: EventSessionStart, SessionID: "bbb"})
	l.Log(LogEntry{Component: ComponentPipeline, Event: EventEncoderFailed, SessionID: "bbb", Reason: "exit status 1"})
	l.Log(LogEntry{Component: ComponentSession, Event: EventSessionFailed, SessionID: "bbb"})
}

func readExport(t *testing.T, path string) (DiagBundle, []string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan(), "export is empty")
	var bundle DiagBundle
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &bundle))

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return bundle, lines
}

func TestExportSummarisesSessions(t *testing.T) {
	t.Setenv("XDG_SESSION_TYPE", "wayland")
	Version = "1.2.3"
	defer func() { Version = "dev" }()

	logPath := filepath.Join(t.TempDir(), "debug.log")
	recordSessions(t, logPath)

	out, n, err := Export(logPath, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Contains(t, filepath.Base(out), "screenrec-diag-")

	bundle, lines := readExport(t, out)
	assert.Equal(t, "1.2.3", bundle.AppVersion)
	assert.Equal(t, "wayland", bundle.SessionType)
	assert.NotEmpty(t, bundle.Platform)
	assert.Equal(t, []string{logPath}, bundle.LogFiles)
	assert.Equal(t, 6, bundle.EntryCount)
	assert.Equal(t, []string{"aaa", "bbb"}, bundle.Sessions)
	assert.Equal(t, 2, bundle.Failures)
	assert.Zero(t, bundle.Unparsed)
	assert.Len(t, lines, 6)
}

func TestExportIncludesRotatedGenerationFirst(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")
	require.NoError(t, os.WriteFile(BackupPath(logPath), []byte(`{"component":"session","event":"session_start","session_id":"old"}`+"\n"), 0644))
	require.NoError(t, os.WriteFile(logPath, []byte(`{"component":"session","event":"session_start","session_id":"new"}`+"\n"), 0644))

	out, n, err := Export(logPath, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	bundle, lines := readExport(t, out)
	assert.Equal(t, []string{BackupPath(logPath), logPath}, bundle.LogFiles)
	assert.Equal(t, []string{"old", "new"}, bundle.Sessions)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"old"`)
}

func TestExportKeepsUnparsedLines(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")
	require.NoError(t, os.WriteFile(logPath, []byte("not json\n\n{\"event\":\"spawn\"}\n"), 0644))

	out, n, err := Export(logPath, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 2, n, "blank lines are skipped")

	bundle, lines := readExport(t, out)
	assert.Equal(t, 1, bundle.Unparsed)
	assert.Equal(t, "not json", lines[0])
}

func TestExportMissingFile(t *testing.T) {
	_, _, err := Export(filepath.Join(t.TempDir(), "absent.log"), t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExportUnwritableDestination(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")
	require.NoError(t, os.WriteFile(logPath, []byte("{}\n"), 0644))

	_, _, err := Export(logPath, filepath.Join(t.TempDir(), "missing-dir"))
	assert.Error(t, err)
}
