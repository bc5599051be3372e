package dualsense

// Touch is one of the DualSense touchpad's up-to-two simultaneous contacts.
// X/Y are only meaningful when Active is set.
type Touch struct {
	Active bool
	X      uint16
	Y      uint16
}

// Battery is the controller's reported power state.
type Battery struct {
	Level    uint8 // 0-100
	Charging bool
	Full     bool
}

// Snapshot is the canonical, hardware-independent representation of one
// DualSense input sample. It has a single writer (the decoder) and is read
// by every transport's input thread under the holder's lock
// (internal/state.SnapshotHolder) — Snapshot itself carries no
// synchronisation.
type Snapshot struct {
	Buttons Button

	// Sticks: 0-255, 128 = neutral after deadzone snapping.
	LX, LY, RX, RY uint8

	// Analog triggers: 0-255.
	L2, R2 uint8

	Touch1 Touch
	Touch2 Touch

	// Calibrated motion. Gyro in 1024 units per deg/s, accel in 8192 units
	// per g, per spec.
	GyroX, GyroY, GyroZ    int16
	AccelX, AccelY, AccelZ int16

	Battery Battery

	// TimestampMS is a monotonic millisecond clock used only as a
	// freshness check; it never decreases within one session.
	TimestampMS uint64
}

// ApplyDeadzone snaps a raw 0-255 stick reading to StickNeutral when it
// falls inside the symmetric +/-StickDeadzone window around neutral, and
// passes it through unchanged otherwise.
func ApplyDeadzone(raw uint8) uint8 {
	d := int(raw) - StickNeutral
	if d < 0 {
		d = -d
	}
	if d <= StickDeadzone {
		return StickNeutral
	}
	return raw
}

// dpadFromNibble maps the packed dpad nibble (0=N, 1=NE, ... 7=NW, >=8
// neutral) to the DPad* button bits.
func dpadFromNibble(nibble uint8) Button {
	switch nibble {
	case 0:
		return ButtonDPadUp
	case 1:
		return ButtonDPadUp | ButtonDPadRight
	case 2:
		return ButtonDPadRight
	case 3:
		return ButtonDPadDown | ButtonDPadRight
	case 4:
		return ButtonDPadDown
	case 5:
		return ButtonDPadDown | ButtonDPadLeft
	case 6:
		return ButtonDPadLeft
	case 7:
		return ButtonDPadUp | ButtonDPadLeft
	default:
		return 0
	}
}

// decodeBattery splits a packed battery byte into level/charging/full per
// spec.md 4.2: low nibble * 10 is percentage (clamped to 100), high nibble
// is status (0 discharging, 1 charging, 2 full).
func decodeBattery(b uint8) Battery {
	level := int(b&0x0F) * 10
	if level > 100 {
		level = 100
	}
	status := b >> 4
	return Battery{
		Level:    uint8(level),
		Charging: status == batteryStatusCharging,
		Full:     status == batteryStatusFull,
	}
}
