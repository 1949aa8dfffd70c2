package ipc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Command represents a control request from the CLI to the daemon
type Command string

const (
	CmdStart  Command = "start"  // Start recording with the configured defaults
	CmdStop   Command = "stop"   // Stop recording and run the stop pipeline
	CmdToggle Command = "toggle" // Start or stop depending on state
	CmdPlay   Command = "play"   // Open the last finished recording
	CmdQuit   Command = "quit"   // Stop any recording and shut the daemon down
)

// Commands lists every command the daemon understands
var Commands = []Command{CmdStart, CmdStop, CmdToggle, CmdPlay, CmdQuit}

// CacheDir returns ~/.cache/screenrec, where the daemon and CLI exchange
// commands and status
func CacheDir() string {
	return filepath.Join(os.Getenv("HOME"), ".cache", "screenrec")
}

// CommandPath returns the path of the command file
func CommandPath() string {
	return filepath.Join(CacheDir(), "cmd.txt")
}

// ParseCommand validates a command name
func ParseCommand(s string) (Command, error) {
	cmd := Command(strings.ToLower(strings.TrimSpace(s)))
	for _, c := range Commands {
		if c == cmd {
			return cmd, nil
		}
	}
	return "", fmt.Errorf("unknown command %q", s)
}

// WriteCommand writes a command to ~/.cache/screenrec/cmd.txt
func WriteCommand(cmd Command) error {
	if err := os.MkdirAll(CacheDir(), 0755); err != nil {
		return err
	}
	return os.WriteFile(CommandPath(), []byte(string(cmd)), 0644)
}

// ReadCommand reads and clears ~/.cache/screenrec/cmd.txt
// Returns empty string if no command or file doesn't exist
func ReadCommand() (Command, error) {
	cmdPath := CommandPath()

	data, err := os.ReadFile(cmdPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	// Clear the file immediately to prevent re-execution
	if err := os.WriteFile(cmdPath, []byte(""), 0644); err != nil {
		return "", err
	}

	if strings.TrimSpace(string(data)) == "" {
		return "", nil
	}
	cmd, err := ParseCommand(string(data))
	if err != nil {
		// Unknown commands are dropped
		return "", nil
	}
	return cmd, nil
}
