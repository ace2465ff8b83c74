package workflows

// StateMachine enforces a closed transition table over string-typed states.
type StateMachine[S ~string] struct {
	allowed map[S][]S
}

// New creates a state machine from an explicit transition table. States absent
// from the table are terminal.
func New[S ~string](allowed map[S][]S) *StateMachine[S] {
	return &StateMachine[S]{allowed: allowed}
}

// CanTransition checks if a state transition is allowed.
func (sm *StateMachine[S]) CanTransition(from, to S) bool {
	for _, next := range sm.allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the allowed next states for a given state.
func (sm *StateMachine[S]) AllowedTransitions(from S) []S {
	return sm.allowed[from]
}
