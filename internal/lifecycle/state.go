package lifecycle

// State represents the run state of a guarded object
type State int

const (
	StateNew State = iota
	StateStarting
	StateRunning
	StateStopping
	StateDone
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Observer is notified after every successful state transition.
// It is called with the guard's lock held and must not call back into the guard.
type Observer func(name string, from, to State)
