package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

const (
	logDir     = "/tmp"
	logMaxSize = 10 * 1024 * 1024
)

// Logs is the operational log pair shared by every long-running command
type Logs struct {
	Out *log.Logger
	Err *log.Logger

	files []*os.File
}

// openLogs sets up /tmp/screenrec.out.log and /tmp/screenrec.err.log with
// rotation. When echo is non-nil every line is also written there.
func openLogs(prefix string, echo io.Writer) (*Logs, error) {
	outLogPath := filepath.Join(logDir, "screenrec.out.log")
	errLogPath := filepath.Join(logDir, "screenrec.err.log")

	if err := rotateLogIfNeeded(outLogPath, logMaxSize); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to rotate out log: %v\n", err)
	}
	if err := rotateLogIfNeeded(errLogPath, logMaxSize); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to rotate err log: %v\n", err)
	}

	outFile, err := os.OpenFile(outLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	errFile, err := os.OpenFile(errLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		outFile.Close()
		return nil, err
	}

	var outW, errW io.Writer = outFile, errFile
	if echo != nil {
		outW = io.MultiWriter(outFile, echo)
		errW = io.MultiWriter(errFile, echo)
	}

	return &Logs{
		Out:   log.New(outW, prefix+" ", log.LstdFlags),
		Err:   log.New(errW, prefix+" ERROR: ", log.LstdFlags),
		files: []*os.File{outFile, errFile},
	}, nil
}

// Close closes the log files
func (l *Logs) Close() {
	for _, f := range l.files {
		f.Close()
	}
}

// rotateLogIfNeeded renames logPath to logPath.old once it reaches maxSize
func rotateLogIfNeeded(logPath string, maxSize int64) error {
	info, err := os.Stat(logPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if info.Size() < maxSize {
		return nil
	}

	oldPath := logPath + ".old"
	if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove old log: %w", err)
	}

	return os.Rename(logPath, oldPath)
}
