package propagate

import "fmt"

// State is the position of a job in its single forward pass.
type State int

const (
	StateCreated State = iota
	StateLocalUpdateApplied
	StatePointerUpdated
	StateRemoteAssembled
	StateConfirmationReady
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateLocalUpdateApplied:
		return "local_update_applied"
	case StatePointerUpdated:
		return "pointer_updated"
	case StateRemoteAssembled:
		return "remote_assembled"
	case StateConfirmationReady:
		return "confirmation_ready"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// canMoveTo reports whether s → to is a legal transition. Only the next
// state in the pass is legal, plus Aborted from the first two states.
func (s State) canMoveTo(to State) bool {
	if to == StateAborted {
		return s == StateCreated || s == StateLocalUpdateApplied
	}

	return s < StateDone && to == s+1
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted
}
