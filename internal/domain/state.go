package domain

type SessionState int

const (
	StateCreated SessionState = iota
	StateWaitingForIce
	StateReady
	StateDisconnected
)

func (s SessionState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateWaitingForIce:
		return "waiting_for_ice"
	case StateReady:
		return "ready"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
