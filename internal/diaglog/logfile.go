package diaglog

import (
	"os"
	"path/filepath"
	"sync"
)

// BackupPath is where the previous generation of the log at path lives.
func BackupPath(path string) string {
	return path + ".1"
}

// logFile appends NDJSON lines to path. A write that would push the file
// past maxSize first moves it to BackupPath, replacing the older backup, so
// the log holds at most two generations and export-diag can include both.
type logFile struct {
	mu      sync.Mutex
	path    string
	maxSize int64
	f       *os.File
	size    int64
}

func openLogFile(path string, maxSize int64) (*logFile, error) {
	lf := &logFile{path: path, maxSize: maxSize}
	if err := lf.open(); err != nil {
		return nil, err
	}
	return lf, nil
}

func (lf *logFile) open() error {
	if err := os.MkdirAll(filepath.Dir(lf.path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(lf.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	lf.f, lf.size = f, info.Size()
	return nil
}

// rotate reopens the log even when the rename fails, so logging goes on
// in the oversized file rather than stopping.
func (lf *logFile) rotate() error {
	_ = lf.f.Close()
	lf.f = nil
	renameErr := os.Rename(lf.path, BackupPath(lf.path))
	if err := lf.open(); err != nil {
		return err
	}
	return renameErr
}

func (lf *logFile) Write(p []byte) (int, error) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.f == nil {
		return 0, os.ErrClosed
	}
	if lf.size > 0 && lf.size+int64(len(p)) > lf.maxSize {
		if err := lf.rotate(); err != nil && lf.f == nil {
			return 0, err
		}
	}

	n, err := lf.f.Write(p)
	lf.size += int64(n)
	return n, err
}

func (lf *logFile) Close() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.f == nil {
		return nil
	}
	err := lf.f.Close()
	lf.f = nil
	return err
}
