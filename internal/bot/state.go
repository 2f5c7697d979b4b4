package bot

type State int32

const (
	StateNotConnected State = iota
	StateHandshaking
	StateReady
	StateRunning
	StateDisconnected
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateNotConnected:
		return "NOT_CONNECTED"
	case StateHandshaking:
		return "HANDSHAKING"
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StateDisconnected:
		return "DISCONNECTED"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}
