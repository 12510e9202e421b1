package session

// State is the lifecycle state of a capture session.
type State int32

// The lifecycle states.
const (
	StateUninitialized State = iota
	StateConfiguring
	StateAuthorized
	StateDenied
	StateConfigurationFailed
	StateRunning
	StateInterrupted
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConfiguring:
		return "configuring"
	case StateAuthorized:
		return "authorized"
	case StateDenied:
		return "denied"
	case StateConfigurationFailed:
		return "configuration_failed"
	case StateRunning:
		return "running"
	case StateInterrupted:
		return "interrupted"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// A successful configuration returns to authorized; denied and configurationFailed are terminal.
var transitions = map[State][]State{
	StateUninitialized: {StateAuthorized, StateDenied},
	StateAuthorized:    {StateConfiguring, StateRunning},
	StateConfiguring:   {StateAuthorized, StateConfigurationFailed},
	StateRunning:       {StateInterrupted, StateStopped},
	StateInterrupted:   {StateRunning, StateStopped},
	StateStopped:       {StateRunning},
}

// CanTransitionTo reports whether the lifecycle allows moving from s to to.
func (s State) CanTransitionTo(to State) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// SetupResult is the outcome of authorization plus configuration.
type SetupResult int

// The setup results.
const (
	SetupSuccess SetupResult = iota
	SetupNotAuthorized
	SetupConfigurationFailed
)

func (r SetupResult) String() string {
	switch r {
	case SetupSuccess:
		return "success"
	case SetupNotAuthorized:
		return "not_authorized"
	case SetupConfigurationFailed:
		return "configuration_failed"
	default:
		return "unknown"
	}
}
