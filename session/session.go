package session

import (
	"sync"
	"sync/atomic"
	"time"
)

// Phase is the call's position in the dialog state machine.
// Transitions are monotonic toward termination: once a call is Transferred
// or HungUp it never leaves that phase.
type Phase int

const (
	PhaseUnknown Phase = iota // No intent confirmed yet
	PhaseConfirmed
	PhaseTransferred
	PhaseHungUp
)

// Terminal reports whether the phase ends the dialog.
func (p Phase) Terminal() bool {
	return p == PhaseTransferred || p == PhaseHungUp
}

func (p Phase) String() string {
	switch p {
	case PhaseUnknown:
		return "unknown"
	case PhaseConfirmed:
		return "confirmed"
	case PhaseTransferred:
		return "transferred"
	case PhaseHungUp:
		return "hung_up"
	default:
		return "invalid"
	}
}

// CallSession holds the dialog state for one active phone call.
// The Store owns all sessions; callers must hold Lock while reading or
// mutating Phase, Intent, or PendingPrompts so that two concurrent events
// for the same call cannot interleave.
type CallSession struct {
	ID        string
	Caller    string
	CreatedAt time.Time

	Phase          Phase
	Intent         string   // Set once Phase reaches PhaseConfirmed
	PendingPrompts []string // FIFO of prompts remaining for the confirmed intent

	mu           sync.Mutex
	lastActivity atomic.Int64 // Unix nanoseconds; atomic so the cleanup sweep can read it lock-free
}

func newCallSession(id, caller string) *CallSession {
	now := time.Now()
	s := &CallSession{
		ID:        id,
		Caller:    caller,
		CreatedAt: now,
		Phase:     PhaseUnknown,
	}
	s.lastActivity.Store(now.UnixNano())
	return s
}

// Lock serializes dialog evaluation for this call.
func (s *CallSession) Lock() {
	s.mu.Lock()
}

// Unlock releases the per-call lock.
func (s *CallSession) Unlock() {
	s.mu.Unlock()
}

// Touch records activity on the call.
func (s *CallSession) Touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity returns the time of the most recent event for this call.
func (s *CallSession) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}
