package ds3

import (
	"encoding/binary"

	"github.com/rosettapad/rosettapad/internal/dualsense"
)

// Emulator builds DS3 input reports from a dualsense.Snapshot, serves and
// accepts DS3 feature reports, and parses DS3 output reports back into
// generic rumble/LED commands. It has exactly one mutable piece of state —
// the feature-report table — guarded by its own mutex so GET/SET from the
// control path never races a concurrent SET_REPORT 0xF5/0xEF.
type Emulator struct {
	reports *FeatureReportTable
}

// NewEmulator creates an Emulator with a fresh feature-report table seeded
// from the fixed DS3 capture bytes.
func NewEmulator() *Emulator {
	return &Emulator{reports: NewFeatureReportTable()}
}

// SetLocalMAC installs the local Bluetooth adapter MAC into reports 0xF2
// and 0xF5, as required before the PS3 can be told the controller's
// address (spec.md 4.5's "bootstrap without MAC spoofing").
func (e *Emulator) SetLocalMAC(mac [6]byte) {
	e.reports.SetControllerMAC(mac)
}

// BuildInputReport renders the current snapshot as a 49-byte DS3 input
// report, bit-exact per spec.md 4.3's offset table.
func (e *Emulator) BuildInputReport(s *dualsense.Snapshot, transport Transport, rumbleActive bool) []byte {
	b := make([]byte, InputReportSize)
	b[offReportID] = ReportIDCapabilities

	b[offDpadFace] = packDpadFace(s.Buttons)
	b[offShoulders] = packShoulders(s.Buttons)
	if s.Buttons&dualsense.ButtonHome != 0 {
		b[offHome] = 0x01
	}

	b[offLX] = s.LX
	b[offLY] = s.LY
	b[offRX] = s.RX
	b[offRY] = s.RY

	writeDigitalPressure(b[offDpadPressure:offDpadPressure+4],
		s.Buttons&dualsense.ButtonDPadUp != 0,
		s.Buttons&dualsense.ButtonDPadRight != 0,
		s.Buttons&dualsense.ButtonDPadDown != 0,
		s.Buttons&dualsense.ButtonDPadLeft != 0,
	)

	b[offL2Analog] = s.L2
	b[offR2Analog] = s.R2

	writeDigitalPressure(b[offL1Pressure:offL1Pressure+2],
		s.Buttons&dualsense.ButtonL1 != 0,
		s.Buttons&dualsense.ButtonR1 != 0,
	)

	writeDigitalPressure(b[offFacePressure:offFacePressure+4],
		s.Buttons&dualsense.ButtonNorth != 0, // triangle
		s.Buttons&dualsense.ButtonEast != 0,  // circle
		s.Buttons&dualsense.ButtonSouth != 0, // cross
		s.Buttons&dualsense.ButtonWest != 0,  // square
	)

	b[offPlugged] = 0x02
	b[offBattery] = batteryCode(s.Battery)
	b[offConnection] = connectionCode(transport, rumbleActive)

	copy(b[offMagic:offMagic+4], magicBytes[:])

	binary.LittleEndian.PutUint16(b[offAccel:offAccel+2], encodeMotion(s.AccelX, accelCenter, accelDivisor))
	binary.LittleEndian.PutUint16(b[offAccel+2:offAccel+4], encodeMotion(s.AccelY, accelCenter, accelDivisor))
	binary.LittleEndian.PutUint16(b[offAccel+4:offAccel+6], encodeMotion(s.AccelZ, accelCenter, accelDivisor))
	binary.LittleEndian.PutUint16(b[offGyroZ:offGyroZ+2], encodeMotion(s.GyroZ, gyroZCenter, gyroZDivisor))

	b[offTrailer] = 0x02

	return b
}

func packDpadFace(btn dualsense.Button) uint8 {
	var b uint8
	if btn&dualsense.ButtonSelect != 0 {
		b |= bitSelect
	}
	if btn&dualsense.ButtonL3 != 0 {
		b |= bitL3
	}
	if btn&dualsense.ButtonR3 != 0 {
		b |= bitR3
	}
	if btn&dualsense.ButtonStart != 0 {
		b |= bitStart
	}
	if btn&dualsense.ButtonDPadUp != 0 {
		b |= bitDpadUp
	}
	if btn&dualsense.ButtonDPadRight != 0 {
		b |= bitDpadRight
	}
	if btn&dualsense.ButtonDPadDown != 0 {
		b |= bitDpadDown
	}
	if btn&dualsense.ButtonDPadLeft != 0 {
		b |= bitDpadLeft
	}
	return b
}

func packShoulders(btn dualsense.Button) uint8 {
	var b uint8
	if btn&dualsense.ButtonL2 != 0 {
		b |= bitL2
	}
	if btn&dualsense.ButtonR2 != 0 {
		b |= bitR2
	}
	if btn&dualsense.ButtonL1 != 0 {
		b |= bitL1
	}
	if btn&dualsense.ButtonR1 != 0 {
		b |= bitR1
	}
	if btn&dualsense.ButtonNorth != 0 {
		b |= bitTriangle
	}
	if btn&dualsense.ButtonEast != 0 {
		b |= bitCircle
	}
	if btn&dualsense.ButtonSouth != 0 {
		b |= bitCross
	}
	if btn&dualsense.ButtonWest != 0 {
		b |= bitSquare
	}
	return b
}

func writeDigitalPressure(dst []byte, pressed ...bool) {
	for i, p := range pressed {
		if p {
			dst[i] = 0xFF
		} else {
			dst[i] = 0x00
		}
	}
}

// batteryCode implements spec.md 4.3's offset-30 derivation.
func batteryCode(b dualsense.Battery) uint8 {
	if b.Charging {
		if b.Full || b.Level >= 100 {
			return batteryCharged
		}
		return batteryCharging
	}
	switch {
	case b.Level <= 5:
		return batteryShutdown
	case b.Level <= 15:
		return batteryDying
	case b.Level <= 35:
		return batteryLow
	case b.Level <= 60:
		return batteryMedium
	case b.Level <= 85:
		return batteryHigh
	default:
		return batteryFull
	}
}

func connectionCode(t Transport, rumbleActive bool) uint8 {
	if t == TransportBT {
		if rumbleActive {
			return ConnBTRumble
		}
		return ConnBTIdle
	}
	if rumbleActive {
		return ConnUSBRumble
	}
	return ConnUSBIdle
}

// encodeMotion applies the fixed DualSense-to-DS3 integer scaling
// (center + calibrated/divisor, clamped to [0,1023]) that spec.md 4.3
// mandates be preserved bit-for-bit.
func encodeMotion(calibrated int16, center, divisor int32) uint16 {
	v := int32(center) + int32(calibrated)/divisor
	if v < motionClampMin {
		v = motionClampMin
	}
	if v > motionClampMax {
		v = motionClampMax
	}
	return uint16(v)
}

// GetFeatureReport returns the 64-byte payload for a GET_REPORT(Feature, id)
// control request, or false if id isn't one of the six DS3 feature reports.
func (e *Emulator) GetFeatureReport(id uint8) ([]byte, bool) {
	return e.reports.Get(id)
}

// SetFeatureReport handles a SET_REPORT(Feature, id) control request. 0xF5
// is the pairing handshake: the PS3 writes its own Bluetooth MAC into the
// same offset the controller's own address occupied at boot, and every
// later GET of 0xF5 must echo it back (spec.md 4.3/4.5). 0xEF is saved
// verbatim with no interpretation. Every other id is accepted and ignored,
// matching real DS3 firmware which acks writes to 0x01/0xF2/0xF7/0xF8
// without changing behavior.
func (e *Emulator) SetFeatureReport(id uint8, payload []byte) (hostMAC [6]byte, paired bool) {
	switch id {
	case ReportIDHostMAC:
		if len(payload) >= hostMACOffset+macLen {
			copy(hostMAC[:], payload[hostMACOffset:hostMACOffset+macLen])
			e.reports.SetHostMAC(hostMAC)
			paired = true
		}
	case ReportIDEFConfig:
		e.reports.SetEFConfig(payload)
	}
	return hostMAC, paired
}

// OutputCommand is the generic rumble/LED command decoded from a DS3
// output report, independent of which transport delivered it.
type OutputCommand struct {
	WeakMotor    bool  // right/high-frequency motor, on/off only
	StrongMotor  uint8 // left/low-frequency motor, 0-255
	PlayerLED    uint8 // raw DS3 bitmask, e.g. 0x02 for player 1
	DualSenseLED uint8 // translated DualSense 5-LED pattern, 0 if unmapped
}

// ParseOutputReport decodes a DS3 output (SET_REPORT/interrupt-OUT) buffer
// into a transport-agnostic rumble/LED command, per spec.md 4.3's offset
// table (byte 3 weak motor, byte 5 strong motor, byte 10 player LEDs).
func ParseOutputReport(buf []byte) (OutputCommand, bool) {
	if len(buf) <= outOffPlayerLED {
		return OutputCommand{}, false
	}
	cmd := OutputCommand{
		WeakMotor:   buf[outOffWeakMotor] != 0,
		StrongMotor: buf[outOffStrongMotor],
		PlayerLED:   buf[outOffPlayerLED],
	}
	cmd.DualSenseLED = playerLEDToDualSense[cmd.PlayerLED]
	return cmd, true
}
