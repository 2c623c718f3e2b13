package provider

import "github.com/Lucas-Zerino/grows-gateway/internal/domain/event"

// statusTables maps each provider's raw session vocabulary onto the three
// canonical states. Session bridges report lifecycle states; graph providers
// report token validity.
var statusTables = map[string]map[string]event.ConnectionState{
	NameWAHA: {
		"WORKING":      event.StateConnected,
		"STARTING":     event.StateConnecting,
		"SCAN_QR_CODE": event.StateConnecting,
		"STOPPED":      event.StateDisconnected,
		"FAILED":       event.StateDisconnected,
	},
	NameWPPConnect: {
		"CONNECTED":    event.StateConnected,
		"OPENING":      event.StateConnecting,
		"INITIALIZING": event.StateConnecting,
		"QRCODE":       event.StateConnecting,
		"PAIRING":      event.StateConnecting,
		"CLOSED":       event.StateDisconnected,
		"DISCONNECTED": event.StateDisconnected,
		"BROWSERCLOSE": event.StateDisconnected,
	},
	NameMessenger: {
		"valid":   event.StateConnected,
		"pending": event.StateConnecting,
		"invalid": event.StateDisconnected,
		"expired": event.StateDisconnected,
	},
	NameInstagram: {
		"valid":   event.StateConnected,
		"pending": event.StateConnecting,
		"invalid": event.StateDisconnected,
		"expired": event.StateDisconnected,
	},
}

// MapStatus translates a raw provider state into a canonical connection
// state. It is total: unknown providers and unknown states map to
// disconnected, so callers can always store the result.
func MapStatus(providerName, raw string) event.ConnectionState {
	table, ok := statusTables[providerName]
	if !ok {
		return event.StateDisconnected
	}
	state, ok := table[raw]
	if !ok {
		return event.StateDisconnected
	}
	return state
}
