package service

// State is a collector lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateSubscribed
	StateCollecting
	StateClosing
	StateDone
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateCollecting:
		return "collecting"
	case StateClosing:
		return "closing"
	case StateDone:
		return "done"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can follow.
func (s State) Terminal() bool {
	return s == StateDone || s == StateErrored
}

// allowed lists the legal transitions.
var allowed = map[State][]State{
	StateIdle:       {StateConnecting},
	StateConnecting: {StateSubscribed, StateErrored},
	StateSubscribed: {StateCollecting, StateErrored},
	StateCollecting: {StateClosing, StateErrored},
	StateClosing:    {StateDone},
}

func canTransition(from, to State) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}
