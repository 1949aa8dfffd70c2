package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"syscall"

	"github.com/tiroq/screenrec/internal/encoder"
	"github.com/tiroq/screenrec/internal/fileutil"
	"github.com/tiroq/screenrec/internal/screencast"
)

// ValidationResult contains the result of one environment check
type ValidationResult struct {
	OK       bool
	Message  string
	Issues   []string
	Warnings []string
	Fixes    []string
}

// MinFFmpegMajor is the oldest ffmpeg release with the pulse and x11grab
// options the recorder passes
const MinFFmpegMajor = 4

var ffmpegVersionRe = regexp.MustCompile(`ffmpeg version n?(\d+)\.(\d+)`)

// ValidateFFmpegVersion checks the first line of `ffmpeg -version`
func ValidateFFmpegVersion(versionOutput string) *ValidationResult {
	result := &ValidationResult{OK: true}

	// "ffmpeg version 6.1.1-3ubuntu5 Copyright ..." or "ffmpeg version n7.0"
	matches := ffmpegVersionRe.FindStringSubmatch(versionOutput)
	if len(matches) < 3 {
		firstLine := strings.SplitN(versionOutput, "\n", 2)[0]
		if strings.HasPrefix(firstLine, "ffmpeg version") {
			// git snapshots report "ffmpeg version N-113034-g..." with no release number
			result.Message = "ffmpeg development build detected; version not checked"
			result.Warnings = append(result.Warnings, "Could not parse a release number from: "+firstLine)
			return result
		}
		result.OK = false
		result.Message = fmt.Sprintf("Could not parse ffmpeg version: %s", firstLine)
		result.Issues = append(result.Issues, "Invalid version output")
		result.Fixes = append(result.Fixes, "Install ffmpeg from your distribution, e.g. `sudo apt install ffmpeg`")
		return result
	}

	major, _ := strconv.Atoi(matches[1])
	minor, _ := strconv.Atoi(matches[2])

	if major < MinFFmpegMajor {
		result.OK = false
		result.Issues = append(result.Issues, fmt.Sprintf("ffmpeg %d.%d is too old (requires %d.0+)", major, minor, MinFFmpegMajor))
		result.Fixes = append(result.Fixes, fmt.Sprintf("Update ffmpeg to version %d.0 or later", MinFFmpegMajor))
		result.Message = fmt.Sprintf("ffmpeg %d.%d requires update to %d.0+", major, minor, MinFFmpegMajor)
		return result
	}

	result.Message = fmt.Sprintf("ffmpeg %d.%d is compatible (requires %d.0+)", major, minor, MinFFmpegMajor)
	return result
}

// ValidateOutputDir checks that recordings can be written to dir
func ValidateOutputDir(dir string) *ValidationResult {
	result := &ValidationResult{OK: true}

	if err := fileutil.EnsureDir(dir); err != nil {
		result.OK = false
		result.Message = fmt.Sprintf("Output directory %s is not writable", dir)
		result.Issues = append(result.Issues, err.Error())
		result.Fixes = append(result.Fixes, "Choose another directory with --output-dir or output_dir in config.toml")
		return result
	}

	result.Message = fmt.Sprintf("Output directory %s is writable", dir)
	return result
}

// ValidateCompositor reports whether the screencast service answered
func ValidateCompositor(pingErr error) *ValidationResult {
	result := &ValidationResult{OK: true}

	if pingErr != nil {
		result.OK = false
		result.Message = "GNOME Shell screencast service is not reachable"
		result.Issues = append(result.Issues, pingErr.Error())
		result.Fixes = append(result.Fixes, SuggestedFixes(pingErr)...)
		return result
	}

	result.Message = "GNOME Shell screencast service is reachable"
	return result
}

// SuggestedFixes returns user-friendly troubleshooting for recording errors
func SuggestedFixes(err error) []string {
	var fixes []string

	var (
		spawnErr  *encoder.SpawnError
		signalErr *encoder.SignalError
		encErr    *encoder.EncoderError
		scErr     *screencast.Error
	)

	switch {
	case errors.As(err, &spawnErr):
		fixes = append(fixes, fmt.Sprintf("Could not start the %s encoder", spawnErr.Purpose))
		fixes = append(fixes, "")
		fixes = append(fixes, "Steps to fix:")
		fixes = append(fixes, "  1. Check that ffmpeg is installed: ffmpeg -version")
		fixes = append(fixes, "  2. Run `screenrec doctor` to verify the environment")

	case errors.As(err, &signalErr):
		if errors.Is(signalErr, syscall.EPERM) {
			fixes = append(fixes, fmt.Sprintf("Not allowed to signal process %d", signalErr.Pid))
			fixes = append(fixes, "The encoder may belong to another user; stop it manually")
		} else {
			fixes = append(fixes, fmt.Sprintf("Signal to process %d failed: %v", signalErr.Pid, signalErr.Err))
		}

	case errors.As(err, &encErr):
		fixes = append(fixes, fmt.Sprintf("ffmpeg failed during %s (exit %d)", encErr.Purpose, encErr.ExitCode))
		fixes = append(fixes, "")
		fixes = append(fixes, "Intermediate files were kept next to the target for manual recovery:")
		fixes = append(fixes, "  "+encErr.Output+".temp*")
		fixes = append(fixes, "Check that the chosen format is supported: ffmpeg -formats")

	case errors.As(err, &scErr):
		fixes = append(fixes, "GNOME Shell refused or did not answer the screencast request")
		fixes = append(fixes, "")
		fixes = append(fixes, "Verify:")
		fixes = append(fixes, "  1. You are in a GNOME Wayland session (echo $XDG_SESSION_TYPE)")
		fixes = append(fixes, "  2. No other screencast is running (the red indicator in the top bar)")
		fixes = append(fixes, "  3. The session bus is reachable (echo $DBUS_SESSION_BUS_ADDRESS)")

	default:
		if err != nil {
			fixes = append(fixes, "Check /tmp/screenrec.err.log for more details")
		}
	}

	return fixes
}
