package event

// ConnectionState is the canonical session state every provider vocabulary
// collapses into. Unknown provider states map to Disconnected.
type ConnectionState string

const (
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateDisconnected ConnectionState = "disconnected"
)

func (s ConnectionState) Valid() bool {
	switch s {
	case StateConnecting, StateConnected, StateDisconnected:
		return true
	}
	return false
}
