package command

// State is a step of one `build bundle` invocation.
type State string

const (
	// StateIdle - nothing has happened yet.
	StateIdle State = "IDLE"
	// StateResolving - raw flags are being turned into a configuration.
	StateResolving State = "RESOLVING"
	// StateRejected - resolution failed; no collaborator was invoked.
	StateRejected State = "REJECTED"
	// StateResolved - a configuration and its definitions exist.
	StateResolved State = "RESOLVED"
	// StateBuilding - the pipeline and bundle builder are running.
	StateBuilding State = "BUILDING"
	// StateFailed - a build collaborator reported failure.
	StateFailed State = "FAILED"
	// StateSucceeded - the bundle was built.
	StateSucceeded State = "SUCCEEDED"
	// StateMetadataComputed - usage metadata was computed (or failed best-effort).
	StateMetadataComputed State = "METADATA_COMPUTED"
)

// validTransitions defines the command state machine transition rules.
//
//nolint:gochecknoglobals // Intentional package-level constant for state machine definition
var validTransitions = map[State][]State{
	StateIdle:      {StateResolving},
	StateResolving: {StateRejected, StateResolved},
	StateResolved:  {StateBuilding},
	StateBuilding:  {StateFailed, StateSucceeded},
	StateSucceeded: {StateMetadataComputed},
	StateRejected: {
		// Terminal
	},
	StateFailed: {
		// Terminal
	},
	StateMetadataComputed: {
		// Terminal
	},
}

// IsValidTransition checks if a state transition is allowed.
func IsValidTransition(from, to State) bool {
	allowedStates, exists := validTransitions[from]
	if !exists {
		return false
	}

	for _, allowed := range allowedStates {
		if allowed == to {
			return true
		}
	}

	return false
}

// AllStates returns every command state in machine order.
func AllStates() []State {
	return []State{
		StateIdle,
		StateResolving,
		StateRejected,
		StateResolved,
		StateBuilding,
		StateFailed,
		StateSucceeded,
		StateMetadataComputed,
	}
}

// ValidNextStates returns the valid next states for a given state.
func ValidNextStates(from State) []State {
	return validTransitions[from]
}

// IsTerminalState checks if a state has no outgoing transitions.
func IsTerminalState(state State) bool {
	next, exists := validTransitions[state]
	return exists && len(next) == 0
}
