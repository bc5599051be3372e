package state

import "sync"

// ConnMode is the Bluetooth connection-mode state machine (spec.md 3/4.5).
type ConnMode int

const (
	Disconnected ConnMode = iota
	Scanning
	Connecting
	ControlConnected
	InterruptConnected
	Ready
	Enabled
	ConnError
)

func (m ConnMode) String() string {
	switch m {
	case Disconnected:
		return "disconnected"
	case Scanning:
		return "scanning"
	case Connecting:
		return "connecting"
	case ControlConnected:
		return "control_connected"
	case InterruptConnected:
		return "interrupt_connected"
	case Ready:
		return "ready"
	case Enabled:
		return "enabled"
	case ConnError:
		return "error"
	default:
		return "unknown"
	}
}

// ConnModeHolder guards the BT connection-mode enum. It's deliberately
// thin — spec.md 5 says this mutex protects "the socket FDs and state
// enum" together, but the FDs themselves live in internal/l2cap next to
// the code that dials them; this holder only carries the enum so every
// other component can observe it without reaching into l2cap internals.
type ConnModeHolder struct {
	mu   sync.Mutex
	mode ConnMode
}

// NewConnModeHolder returns a holder starting at Disconnected.
func NewConnModeHolder() *ConnModeHolder {
	return &ConnModeHolder{mode: Disconnected}
}

// Set stores the new mode.
func (h *ConnModeHolder) Set(m ConnMode) {
	h.mu.Lock()
	h.mode = m
	h.mu.Unlock()
}

// Get returns the current mode.
func (h *ConnModeHolder) Get() ConnMode {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mode
}

// CompareAndSet atomically transitions from `from` to `to`, returning
// whether the transition happened, so a caller cannot race a concurrent
// transition away from the expected state.
func (h *ConnModeHolder) CompareAndSet(from, to ConnMode) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mode != from {
		return false
	}
	h.mode = to
	return true
}
