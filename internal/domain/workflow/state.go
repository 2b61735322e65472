package workflow

// State represents a claim state in the reimbursement lifecycle
type State string

const (
	StateDraft     State = "draft"
	StatePending   State = "pending"
	StateValidated State = "validated"
	StateRejected  State = "rejected"
)

var validStates = map[State]bool{
	StateDraft:     true,
	StatePending:   true,
	StateValidated: true,
	StateRejected:  true,
}

var terminalStates = map[State]bool{
	StateValidated: true,
	StateRejected:  true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid claim state
func (s State) IsValid() bool {
	return validStates[s]
}
