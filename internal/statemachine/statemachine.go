package statemachine

import (
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// State is the lifecycle state of a recording session
type State string

const (
	StateIdle      State = "idle"      // No session has run yet
	StateRecording State = "recording" // Capture in progress
	StateStopping  State = "stopping"  // Stop pipeline running
	StateFinished  State = "finished"  // Last session produced its artifact
	StateFailed    State = "failed"    // Last session failed; artifacts kept on disk
)

// sessionIDAlphabet avoids characters that need quoting in file names and logs
const sessionIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// transitions lists the legal next states for each state
var transitions = map[State][]State{
	StateIdle:      {StateRecording, StateStopping},
	StateRecording: {StateStopping, StateFailed},
	StateStopping:  {StateFinished, StateFailed},
	StateFinished:  {StateRecording, StateStopping},
	StateFailed:    {StateRecording, StateStopping},
}

// StateMachine tracks one recording session at a time
type StateMachine struct {
	state      State
	sessionID  string
	startedAt  time.Time
	finishedAt time.Time
	lastError  error
}

// NewStateMachine creates a state machine in the idle state
func NewStateMachine() *StateMachine {
	return &StateMachine{state: StateIdle}
}

// NewSessionID returns a short random identifier for a session
func NewSessionID() string {
	id, err := gonanoid.Generate(sessionIDAlphabet, 12)
	if err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return id
}

// CanTransition reports whether moving to next is legal from the current state
func (sm *StateMachine) CanTransition(next State) bool {
	for _, s := range transitions[sm.state] {
		if s == next {
			return true
		}
	}
	return false
}

func (sm *StateMachine) transition(next State) error {
	if !sm.CanTransition(next) {
		return fmt.Errorf("invalid transition %s -> %s", sm.state, next)
	}
	sm.state = next
	return nil
}

// BeginRecording enters the recording state under a fresh session ID
func (sm *StateMachine) BeginRecording() (string, error) {
	if err := sm.transition(StateRecording); err != nil {
		return "", err
	}
	sm.sessionID = NewSessionID()
	sm.startedAt = time.Now()
	sm.finishedAt = time.Time{}
	sm.lastError = nil
	return sm.sessionID, nil
}

// BeginStopping enters the stopping state. Stopping is also legal with no
// session, so a stop request always runs its stages.
func (sm *StateMachine) BeginStopping() error {
	return sm.transition(StateStopping)
}

// Finish marks the stop pipeline as completed
func (sm *StateMachine) Finish() error {
	if err := sm.transition(StateFinished); err != nil {
		return err
	}
	sm.finishedAt = time.Now()
	return nil
}

// Fail records err and moves to the failed state
func (sm *StateMachine) Fail(err error) error {
	if terr := sm.transition(StateFailed); terr != nil {
		return terr
	}
	sm.lastError = err
	sm.finishedAt = time.Now()
	return nil
}

// Reset returns to idle after a start that never reached recording
func (sm *StateMachine) Reset(err error) {
	sm.state = StateIdle
	sm.sessionID = ""
	sm.startedAt = time.Time{}
	sm.lastError = err
}

// State returns the current state
func (sm *StateMachine) State() State {
	return sm.state
}

// IsRecording returns current recording status
func (sm *StateMachine) IsRecording() bool {
	return sm.state == StateRecording
}

// SessionID returns the ID of the current or last session
func (sm *StateMachine) SessionID() string {
	return sm.sessionID
}

// LastError returns the error that failed the last session
func (sm *StateMachine) LastError() error {
	return sm.lastError
}

// RecordingDuration returns how long the current recording has been active
func (sm *StateMachine) RecordingDuration() time.Duration {
	switch {
	case sm.startedAt.IsZero():
		return 0
	case sm.state == StateRecording || sm.finishedAt.IsZero():
		return time.Since(sm.startedAt)
	default:
		return sm.finishedAt.Sub(sm.startedAt)
	}
}
