package model

// State is the lifecycle state of a Spawner.
type State int32

const (
	// StateInvalid - pre-initialization default
	StateInvalid State = iota
	// StateActive - spawning or spawned, live on screen
	StateActive
	// StateWaiting - registered, never activated yet
	StateWaiting
	// StateSleeping - was active, culled without dying; remembers how many to restore
	StateSleeping
	// StateDead - terminal, ignored by activation and keep-alive
	StateDead
)

// String returns human-readable state name
func (s State) String() string {
	switch s {
	case StateInvalid:
		return "INVALID"
	case StateActive:
		return "ACTIVE"
	case StateWaiting:
		return "WAITING"
	case StateSleeping:
		return "SLEEPING"
	case StateDead:
		return "DEAD"
	default:
		return "UNKNOWN"
	}
}

// CanActivate reports whether a spawner in this state may be switched on.
func (s State) CanActivate() bool {
	return s == StateWaiting || s == StateSleeping
}
