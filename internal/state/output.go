package state

import "sync"

// OutputCommand is the generic rumble/LED record shared between both
// transports' output parsers, the lightbar IPC reader, and the
// DualSense output-dispatch thread (spec.md 3).
type OutputCommand struct {
	RumbleLeft, RumbleRight uint8
	LEDRed, LEDGreen, LEDBlue uint8
	PlayerLEDs         uint8 // 5-bit mask
	PlayerBrightness   uint8
}

// OutputHolder guards the shared OutputCommand. Writers are both
// transports' output parsers and the lightbar IPC reader; the single
// reader is the output-dispatch thread, which uses LoadIfChanged to skip
// redundant writes to the DualSense.
type OutputHolder struct {
	mu      sync.Mutex
	cur     OutputCommand
	changed bool
}

// NewOutputHolder returns a holder with rumble and LEDs all zeroed.
func NewOutputHolder() *OutputHolder {
	return &OutputHolder{}
}

// Store replaces the current command and marks it changed.
func (h *OutputHolder) Store(c OutputCommand) {
	h.mu.Lock()
	h.cur = c
	h.changed = true
	h.mu.Unlock()
}

// SetRumble updates only the rumble fields, preserving LED state —
// used when a transport's output parser only carries motor bytes.
func (h *OutputHolder) SetRumble(left, right uint8) {
	h.mu.Lock()
	h.cur.RumbleLeft = left
	h.cur.RumbleRight = right
	h.changed = true
	h.mu.Unlock()
}

// SetPlayerLEDs updates only the player-LED mask.
func (h *OutputHolder) SetPlayerLEDs(mask uint8) {
	h.mu.Lock()
	h.cur.PlayerLEDs = mask
	h.changed = true
	h.mu.Unlock()
}

// SetLightbar updates only the RGB lightbar fields, as driven by the
// lightbar IPC reader.
func (h *OutputHolder) SetLightbar(r, g, b uint8) {
	h.mu.Lock()
	h.cur.LEDRed, h.cur.LEDGreen, h.cur.LEDBlue = r, g, b
	h.changed = true
	h.mu.Unlock()
}

// SetPlayerLEDBrightness updates only the player-LED brightness (0-255,
// scaled from the lightbar IPC file's 0.0-1.0 float).
func (h *OutputHolder) SetPlayerLEDBrightness(brightness uint8) {
	h.mu.Lock()
	h.cur.PlayerBrightness = brightness
	h.changed = true
	h.mu.Unlock()
}

// ZeroRumble clears both motors and marks the record changed — used by
// the USB DISABLE handler and the power manager's Standby entry.
func (h *OutputHolder) ZeroRumble() {
	h.SetRumble(0, 0)
}

// LoadIfChanged returns the current command and clears the changed flag
// only if it was set; the bool return tells the caller whether there is
// anything new to write to the DualSense.
func (h *OutputHolder) LoadIfChanged() (OutputCommand, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.changed {
		return OutputCommand{}, false
	}
	h.changed = false
	return h.cur, true
}

// Load returns a copy of the current command unconditionally, without
// touching the changed flag — used by components that need to read the
// value but aren't the coalescing output-dispatch thread.
func (h *OutputHolder) Load() OutputCommand {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cur
}
