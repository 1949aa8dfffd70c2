package pidfile

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
)

func readPID(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read PID file: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatalf("Invalid PID in file: %q", data)
	}
	return pid
}

func TestNewWritesCurrentPID(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "nested", "screenrec.pid")

	pf, err := New(pidPath)
	if err != nil {
		t.Fatalf("Failed to create PID file: %v", err)
	}
	defer pf.Remove()

	if pf.Path() != pidPath {
		t.Errorf("Path() = %s, want %s", pf.Path(), pidPath)
	}
	if pid := readPID(t, pidPath); pid != os.Getpid() {
		t.Errorf("PID mismatch: got %d, want %d", pid, os.Getpid())
	}
}

func TestSecondDaemonRefused(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "screenrec.pid")

	pf, err := New(pidPath)
	if err != nil {
		t.Fatalf("Failed to create first PID file: %v", err)
	}
	defer pf.Remove()

	_, err = New(pidPath)
	var running *AlreadyRunningError
	if !errors.As(err, &running) {
		t.Fatalf("Expected AlreadyRunningError, got %v", err)
	}
	if running.PID != os.Getpid() {
		t.Errorf("reported PID %d, want %d", running.PID, os.Getpid())
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestStaleFileReplaced(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "screenrec.pid")
	if err := os.WriteFile(pidPath, []byte("99999999\n"), 0644); err != nil {
		t.Fatal(err)
	}

	pf, err := New(pidPath)
	if err != nil {
		t.Fatalf("stale PID file should be replaced: %v", err)
	}
	defer pf.Remove()

	if pid := readPID(t, pidPath); pid != os.Getpid() {
		t.Errorf("PID after stale replacement: got %d, want %d", pid, os.Getpid())
	}
}

func TestGarbageFileReplaced(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "screenrec.pid")
	if err := os.WriteFile(pidPath, []byte("not a pid"), 0644); err != nil {
		t.Fatal(err)
	}

	pf, err := New(pidPath)
	if err != nil {
		t.Fatalf("unreadable PID file should be overwritten: %v", err)
	}
	defer pf.Remove()

	if pid := readPID(t, pidPath); pid != os.Getpid() {
		t.Errorf("got %d, want %d", pid, os.Getpid())
	}
}

func TestRemoveLeavesForeignPID(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "screenrec.pid")

	pf, err := New(pidPath)
	if err != nil {
		t.Fatalf("Failed to create PID file: %v", err)
	}
	if err := pf.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("PID file still exists after removal")
	}

	pf, err = New(pidPath)
	if err != nil {
		t.Fatal(err)
	}
	other := os.Getpid() + 1
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(other)+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	pf.Remove()

	if pid := readPID(t, pidPath); pid != other {
		t.Errorf("foreign PID file modified: got %d, want %d", pid, other)
	}
}

func TestLookup(t *testing.T) {
	dir := t.TempDir()

	if pid, running := Lookup(filepath.Join(dir, "missing.pid")); pid != 0 || running {
		t.Errorf("missing file: got (%d, %v)", pid, running)
	}

	live := filepath.Join(dir, "live.pid")
	os.WriteFile(live, []byte(strconv.Itoa(os.Getpid())), 0644)
	if pid, running := Lookup(live); pid != os.Getpid() || !running {
		t.Errorf("live file: got (%d, %v)", pid, running)
	}

	stale := filepath.Join(dir, "stale.pid")
	os.WriteFile(stale, []byte("99999999"), 0644)
	if pid, running := Lookup(stale); pid != 99999999 || running {
		t.Errorf("stale file: got (%d, %v)", pid, running)
	}
}

func TestSignalWithoutDaemon(t *testing.T) {
	if err := Signal(filepath.Join(t.TempDir(), "none.pid"), syscall.SIGTERM); err == nil {
		t.Error("expected error without a daemon")
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("HOME", "/home/rec")
	want := filepath.Join("/home/rec", ".cache", "screenrec", "screenrec.pid")
	if got := DefaultPath("screenrec"); got != want {
		t.Errorf("DefaultPath = %s, want %s", got, want)
	}
}
