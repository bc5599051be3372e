// Package power implements the Active/Standby/Waking lifecycle
// (spec.md 4.6): debounced transitions driven by USB SUSPEND/ENABLE
// events and home-button presses, with side effects injected through a
// small interface rather than reaching into the transport packages
// directly (spec.md 9's design note).
package power

import (
	"log/slog"
	"sync"
	"time"
)

// State is the power-state machine's current phase.
type State int

const (
	Active State = iota
	Standby
	Waking
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Standby:
		return "standby"
	case Waking:
		return "waking"
	default:
		return "unknown"
	}
}

const (
	standbyDebounce = 2 * time.Second
	wakingDebounce  = 500 * time.Millisecond
)

// Effects are the side effects the power manager triggers on transition.
// Injected so internal/power has no direct dependency on internal/l2cap
// or internal/state's output holder.
type Effects interface {
	// DisconnectBT tears down the Bluetooth session on Active->Standby.
	DisconnectBT()
	// ZeroRumble stops both motors on Active->Standby.
	ZeroRumble()
	// SetDimAmber sets the idle lightbar color on Active->Standby.
	SetDimAmber()
	// RestoreLightbar restores the normal (red) lightbar on Standby->Waking.
	RestoreLightbar()
	// WakeBT kicks off the BT wake-on-demand sequence on Standby->Waking.
	WakeBT()
}

// Manager guards the power state and its last-change timestamp, and
// applies debounced transitions.
type Manager struct {
	mu         sync.Mutex
	state      State
	lastChange time.Time
	effects    Effects
	logger     *slog.Logger
}

// NewManager returns a Manager starting in Active, the state the system
// is in immediately after the PS3 first enables the USB gadget.
// lastChange is left at its zero value rather than time.Now(): the
// debounce windows guard against repeated transitions, not the very
// first one, which must be allowed to fire immediately.
func NewManager(effects Effects, logger *slog.Logger) *Manager {
	return &Manager{
		state:   Active,
		effects: effects,
		logger:  logger,
	}
}

// State returns the current power state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnUSBSuspend handles a USB SUSPEND event: Active -> Standby, debounced
// at 2s and ignored outside Active.
func (m *Manager) OnUSBSuspend() {
	m.mu.Lock()
	if m.state != Active || time.Since(m.lastChange) < standbyDebounce {
		m.mu.Unlock()
		return
	}
	m.state = Standby
	m.lastChange = time.Now()
	m.mu.Unlock()

	m.logger.Info("power: active -> standby")
	m.effects.DisconnectBT()
	m.effects.ZeroRumble()
	m.effects.SetDimAmber()
}

// OnHomePressed handles a home-button press: Standby -> Waking,
// debounced at 500ms and ignored outside Standby.
func (m *Manager) OnHomePressed() {
	m.mu.Lock()
	if m.state != Standby || time.Since(m.lastChange) < wakingDebounce {
		m.mu.Unlock()
		return
	}
	m.state = Waking
	m.lastChange = time.Now()
	m.mu.Unlock()

	m.logger.Info("power: standby -> waking")
	m.effects.RestoreLightbar()
	m.effects.WakeBT()
}

// OnUSBEnable handles a USB ENABLE event: Waking -> Active, confirming
// the console came back up. No-op outside Waking.
func (m *Manager) OnUSBEnable() {
	m.mu.Lock()
	if m.state != Waking {
		m.mu.Unlock()
		return
	}
	m.state = Active
	m.lastChange = time.Now()
	m.mu.Unlock()

	m.logger.Info("power: waking -> active")
}
