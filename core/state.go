package core

// ConnectionState tracks the session lifecycle. Listening and Speaking are
// transient display substates of Connected: Listening while outbound frames
// are flowing unmuted, Speaking while inbound audio is rendering.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateListening
	StateSpeaking
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateListening:
		return "listening"
	case StateSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}
