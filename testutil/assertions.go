package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// AssertFileExists fails the test if path is missing
func AssertFileExists(t *testing.T, path string, msg string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("%s: expected %s to exist: %v", msg, path, err)
	}
}

// AssertFileNotExists fails the test if path is present
func AssertFileNotExists(t *testing.T, path string, msg string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Fatalf("%s: expected %s to be absent", msg, path)
	}
}

// AssertFileContent compares the whole content of path
func AssertFileContent(t *testing.T, path, want string, msg string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("%s: read %s: %v", msg, path, err)
	}
	if string(data) != want {
		t.Fatalf("%s: %s contains %q, want %q", msg, path, string(data), want)
	}
}

// TempArtifacts lists files in dir whose names mark them as intermediate
// recording artifacts
func TempArtifacts(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	var out []string
	for _, e := range entries {
		if strings.Contains(e.Name(), ".temp") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out
}

// AssertNoTempArtifacts fails if any intermediate artifact is left in dir
func AssertNoTempArtifacts(t *testing.T, dir string, msg string) {
	t.Helper()
	if left := TempArtifacts(t, dir); len(left) > 0 {
		t.Fatalf("%s: temp artifacts left behind: %v", msg, left)
	}
}

// WriteFile creates path with content, making parent directories
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// AssertJSONContainsKey checks if JSON contains a specific key
func AssertJSONContainsKey(t *testing.T, jsonStr, key string, msg string) {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		t.Fatalf("%s: invalid JSON: %v", msg, err)
	}

	if _, exists := result[key]; !exists {
		t.Fatalf("%s: JSON does not contain key %q", msg, key)
	}
}

// WaitForCondition waits for a condition to become true within timeout
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("%s: condition not met within %v", msg, timeout)
}
