package agent

// State is a node of the agent loop's state machine.
type State int

const (
	// Dispatching: instruction received, no model exchange yet.
	Dispatching State = iota
	// AwaitingModel: a request is in flight.
	AwaitingModel
	// ExecutingTools: the model asked for one or more tool invocations.
	ExecutingTools
	// Done: the model produced a final answer.
	Done
	// Failed: an exchange failed, the response was unusable, or a limit was hit.
	Failed
)

func (s State) String() string {
	switch s {
	case Dispatching:
		return "dispatching"
	case AwaitingModel:
		return "awaiting_model"
	case ExecutingTools:
		return "executing_tools"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the loop stops in s.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

// transitions lists the legal successors of each state.
var transitions = map[State][]State{
	Dispatching:    {AwaitingModel, Failed},
	AwaitingModel:  {ExecutingTools, Done, Failed},
	ExecutingTools: {AwaitingModel, Failed},
}

// canTransition reports whether from -> to is an edge of the machine.
func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
