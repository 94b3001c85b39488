package live

import "fmt"

// SessionState tracks where a session is in its lifecycle. Transitions are
// validated so that a stale callback can never move the session backwards.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateSettingUp
	StateReady
	StateError
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSettingUp:
		return "setting up"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("unknown (%d)", int(s))
	}
}

type sessionEvent int

const (
	eventConnect sessionEvent = iota
	eventTransportOpen
	eventSetupComplete
	eventDisconnect
	eventFailure
)

func (e sessionEvent) String() string {
	switch e {
	case eventConnect:
		return "connect"
	case eventTransportOpen:
		return "transport open"
	case eventSetupComplete:
		return "setup complete"
	case eventDisconnect:
		return "disconnect"
	case eventFailure:
		return "failure"
	default:
		return fmt.Sprintf("unknown (%d)", int(e))
	}
}

// transition returns the state that follows event in state, or an error when
// the event is not valid there.
func transition(state SessionState, event sessionEvent) (SessionState, error) {
	switch event {
	case eventConnect:
		if state == StateDisconnected || state == StateError {
			return StateConnecting, nil
		}
	case eventTransportOpen:
		if state == StateConnecting {
			return StateSettingUp, nil
		}
	case eventSetupComplete:
		if state == StateSettingUp {
			return StateReady, nil
		}
	case eventDisconnect:
		return StateDisconnected, nil
	case eventFailure:
		return StateError, nil
	}
	return state, fmt.Errorf("invalid session event %q in state %q", event, state)
}
