package main

// PresenceState is the monitored device's position in the departure state
// machine. StateNone means no device is selected.
type PresenceState string

const (
	StateNone         PresenceState = "none"
	StateConnected    PresenceState = "connected"
	StateWaiting      PresenceState = "waiting-confirm-disconnect"
	StateDisconnected PresenceState = "disconnected"

	// StateDetecting is not a machine state; status reports it while the
	// startup device scan is still running.
	StateDetecting = "detecting"
)

// IPCRequest is sent from the CLI client to the daemon.
type IPCRequest struct {
	Command string `json:"command"`           // "status" | "devices" | "select" | "disable" | "timeout" | "quit"
	Device  string `json:"device,omitempty"`  // MAC address or list index, for "select"
	Seconds int    `json:"seconds,omitempty"` // for "timeout"
}

// IPCDevice describes one discovered paired device.
type IPCDevice struct {
	Address   string `json:"address"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
	Selected  bool   `json:"selected"`
}

// IPCResponse is sent from the daemon back to the CLI client.
type IPCResponse struct {
	State   string      `json:"state,omitempty"` // presence state, or "detecting"
	Device  string      `json:"device,omitempty"`
	Name    string      `json:"name,omitempty"`
	Timeout int         `json:"timeout,omitempty"` // confirmation timeout, seconds
	Devices []IPCDevice `json:"devices,omitempty"`
	Error   string      `json:"error,omitempty"`
}
