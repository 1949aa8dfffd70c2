package statemachine

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTransitions(t *testing.T) {
	tests := []struct {
		name      string
		from      State
		to        State
		wantLegal bool
	}{
		{"idle to recording", StateIdle, StateRecording, true},
		{"idle to stopping (no-op stop)", StateIdle, StateStopping, true},
		{"idle to finished", StateIdle, StateFinished, false},
		{"recording to stopping", StateRecording, StateStopping, true},
		{"recording to recording", StateRecording, StateRecording, false},
		{"stopping to finished", StateStopping, StateFinished, true},
		{"stopping to failed", StateStopping, StateFailed, true},
		{"stopping to recording", StateStopping, StateRecording, false},
		{"finished to recording", StateFinished, StateRecording, true},
		{"failed to recording", StateFailed, StateRecording, true},
		{"failed to finished", StateFailed, StateFinished, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := &StateMachine{state: tt.from}
			if got := sm.CanTransition(tt.to); got != tt.wantLegal {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.wantLegal)
			}
		})
	}
}

func TestFullLifecycle(t *testing.T) {
	sm := NewStateMachine()
	if sm.State() != StateIdle {
		t.Fatalf("initial state = %s, want idle", sm.State())
	}

	id, err := sm.BeginRecording()
	if err != nil {
		t.Fatalf("BeginRecording: %v", err)
	}
	if id == "" || id != sm.SessionID() {
		t.Errorf("session id %q not recorded (SessionID() = %q)", id, sm.SessionID())
	}
	if !sm.IsRecording() {
		t.Error("expected recording")
	}

	if err := sm.BeginStopping(); err != nil {
		t.Fatalf("BeginStopping: %v", err)
	}
	if sm.IsRecording() {
		t.Error("stopping must not report recording")
	}

	if err := sm.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if sm.State() != StateFinished {
		t.Errorf("state = %s, want finished", sm.State())
	}
	if sm.SessionID() != id {
		t.Error("finished session must keep its id")
	}
}

func TestFailKeepsError(t *testing.T) {
	sm := NewStateMachine()
	_, _ = sm.BeginRecording()
	_ = sm.BeginStopping()

	cause := errors.New("merge failed")
	if err := sm.Fail(cause); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if sm.State() != StateFailed {
		t.Errorf("state = %s, want failed", sm.State())
	}
	if !errors.Is(sm.LastError(), cause) {
		t.Errorf("LastError = %v, want %v", sm.LastError(), cause)
	}

	// a new session clears the error
	if _, err := sm.BeginRecording(); err != nil {
		t.Fatalf("BeginRecording after failure: %v", err)
	}
	if sm.LastError() != nil {
		t.Errorf("LastError = %v after new session, want nil", sm.LastError())
	}
}

func TestInvalidTransitionRejected(t *testing.T) {
	sm := NewStateMachine()
	_, _ = sm.BeginRecording()

	if _, err := sm.BeginRecording(); err == nil {
		t.Error("expected error starting twice")
	}
	if err := sm.Finish(); err == nil {
		t.Error("expected error finishing without stopping")
	}
	if sm.State() != StateRecording {
		t.Errorf("state changed to %s on rejected transition", sm.State())
	}
}

func TestResetReturnsToIdle(t *testing.T) {
	sm := NewStateMachine()
	_, _ = sm.BeginRecording()
	sm.Reset(errors.New("spawn failed"))

	if sm.State() != StateIdle {
		t.Errorf("state = %s, want idle", sm.State())
	}
	if sm.SessionID() != "" {
		t.Errorf("SessionID = %q, want empty", sm.SessionID())
	}
	if sm.LastError() == nil {
		t.Error("Reset should keep the error")
	}
}

func TestNewSessionID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewSessionID()
		if len(id) != 12 {
			t.Fatalf("id %q has length %d, want 12", id, len(id))
		}
		if strings.Trim(id, sessionIDAlphabet) != "" {
			t.Fatalf("id %q contains characters outside the alphabet", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestRecordingDuration(t *testing.T) {
	sm := NewStateMachine()
	if sm.RecordingDuration() != 0 {
		t.Error("idle duration should be zero")
	}

	_, _ = sm.BeginRecording()
	time.Sleep(5 * time.Millisecond)
	if sm.RecordingDuration() <= 0 {
		t.Error("recording duration should be positive")
	}

	_ = sm.BeginStopping()
	_ = sm.Finish()
	d1 := sm.RecordingDuration()
	time.Sleep(5 * time.Millisecond)
	if d2 := sm.RecordingDuration(); d2 != d1 {
		t.Errorf("finished duration changed: %v -> %v", d1, d2)
	}
}
