package tour

import "fmt"

// SessionStatus represents the lifecycle state of a walking session.
type SessionStatus string

const (
	SessionNotStarted SessionStatus = "not_started"
	SessionActive     SessionStatus = "active"
	SessionEnded      SessionStatus = "ended"
)

// validSessionTransitions defines the session state machine.
// Ended is terminal: a new walk needs a new controller.
var validSessionTransitions = map[SessionStatus][]SessionStatus{
	SessionNotStarted: {SessionActive, SessionEnded},
	SessionActive:     {SessionEnded},
	SessionEnded:      {},
}

// IsValid returns true if the status is a recognized session status.
func (s SessionStatus) IsValid() bool {
	_, exists := validSessionTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s SessionStatus) CanTransitionTo(target SessionStatus) bool {
	for _, t := range validSessionTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s SessionStatus) IsTerminal() bool {
	allowed, exists := validSessionTransitions[s]
	if !exists {
		return true
	}
	return len(allowed) == 0
}

func (s SessionStatus) String() string {
	return string(s)
}

// ParseSessionStatus converts a string to a SessionStatus, returning an error if invalid.
func ParseSessionStatus(s string) (SessionStatus, error) {
	status := SessionStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid session status: %s", s)
	}
	return status, nil
}
