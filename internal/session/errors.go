package session

import "errors"

var (
	// ErrConfig marks a recording configuration that cannot produce an
	// artifact, such as an unusable output directory.
	ErrConfig = errors.New("invalid recording configuration")

	// ErrConflictDeclined is returned when the target exists and the user
	// chose not to overwrite it. It is a cancellation, not a failure.
	ErrConflictDeclined = errors.New("overwrite declined")

	// ErrNothingToPlay is returned by Play before any session finished.
	ErrNothingToPlay = errors.New("no finished recording to play")
)
