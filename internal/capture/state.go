// Package capture implements the per-station stream capture worker: a small
// state machine that connects to a livestream, accumulates audio into
// segment write buffers and rotates them on a fixed wall-clock interval.
package capture

import (
	"sync"
	"time"
)

// WorkerState represents the lifecycle state of a capture worker.
type WorkerState int

const (
	// StateIdle means the worker has not started or has drained cleanly.
	StateIdle WorkerState = iota
	// StateConnecting means a connection attempt is in flight.
	StateConnecting
	// StateStreaming means stream data is being received.
	StateStreaming
	// StateRetrying means the worker is waiting out the retry interval
	// after a failed attempt or a mid-stream drop.
	StateRetrying
	// StateDraining means a stop was requested and the in-flight segment
	// is being flushed.
	StateDraining
	// StateFailed means the retry budget is exhausted. Terminal; the
	// scheduler decides whether to start a replacement worker.
	StateFailed
)

func (s WorkerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateRetrying:
		return "retrying"
	case StateDraining:
		return "draining"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// validStateTransitions defines the allowed worker state transitions.
var validStateTransitions = map[WorkerState][]WorkerState{
	StateIdle:       {StateConnecting, StateDraining},
	StateConnecting: {StateStreaming, StateRetrying, StateDraining, StateFailed},
	StateStreaming:  {StateRetrying, StateDraining, StateFailed},
	StateRetrying:   {StateConnecting, StateDraining, StateFailed},
	StateDraining:   {StateIdle},
	StateFailed:     {},
}

func isValidTransition(from, to WorkerState) bool {
	for _, allowed := range validStateTransitions[from] {
		if to == allowed {
			return true
		}
	}
	return false
}

// StateTransition records one state change for diagnostics.
type StateTransition struct {
	From      WorkerState
	To        WorkerState
	Timestamp time.Time
	Reason    string
}

// maxTransitionHistory bounds the per-worker transition log.
const maxTransitionHistory = 50

// stateTracker holds the current state and a bounded transition history.
type stateTracker struct {
	mu          sync.RWMutex
	state       WorkerState
	transitions []StateTransition
}

// transition applies a state change if it is legal and records it. Illegal
// transitions are rejected so a late goroutine cannot resurrect a terminal
// worker.
func (t *stateTracker) transition(to WorkerState, now time.Time, reason string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == to {
		return true
	}
	if !isValidTransition(t.state, to) {
		return false
	}

	t.transitions = append(t.transitions, StateTransition{
		From:      t.state,
		To:        to,
		Timestamp: now,
		Reason:    reason,
	})
	if len(t.transitions) > maxTransitionHistory {
		t.transitions = t.transitions[len(t.transitions)-maxTransitionHistory:]
	}
	t.state = to
	return true
}

func (t *stateTracker) current() WorkerState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

func (t *stateTracker) history() []StateTransition {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]StateTransition, len(t.transitions))
	copy(out, t.transitions)
	return out
}
