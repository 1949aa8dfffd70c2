package encoder

import (
	"fmt"
	"strings"
)

// SpawnError reports an encoder process that could not be started.
type SpawnError struct {
	Purpose Purpose
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s encoder: %v", e.Purpose, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// SignalError reports a failed termination signal. A process that no
// longer exists never produces one.
type SignalError struct {
	Pid int
	Err error
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("failed to signal process %d: %v", e.Pid, e.Err)
}

func (e *SignalError) Unwrap() error { return e.Err }

// EncoderError reports an encoder run that exited unsuccessfully.
type EncoderError struct {
	Purpose  Purpose
	Output   string
	ExitCode int // -1 when the process did not exit normally
	Stderr   string
	Err      error
}

func (e *EncoderError) Error() string {
	msg := fmt.Sprintf("%s encoder failed writing %s (exit %d)", e.Purpose, e.Output, e.ExitCode)
	if tail := strings.TrimSpace(e.Stderr); tail != "" {
		msg += ": " + lastLine(tail)
	}
	return msg
}

func (e *EncoderError) Unwrap() error { return e.Err }

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
