// Package dualsense decodes raw DualSense (PS5 controller) HID reports into
// the normalised Snapshot used by the rest of rosettapad, and applies the
// per-device sensor calibration derived from Feature Report 0x05.
package dualsense

// HID report IDs as they appear in byte 0 of a report read from the
// DualSense.
const (
	ReportIDUSBInput = 0x01
	ReportIDBTInput  = 0x31

	ReportIDCalibration = 0x05
)

// Minimum buffer lengths the decoder enforces before touching any field.
const (
	USBInputMinLen = 10
	BTInputMinLen  = 78

	CalibrationReportLen = 41
)

// Button is a generic, device-independent button identifier. The vocabulary
// is fixed at 19 IDs: four face buttons, four shoulders, two stick clicks,
// select/start/home/touchpad/mute, and four dpad directions.
type Button uint32

const (
	ButtonSouth Button = 1 << iota // cross / A
	ButtonEast                     // circle / B
	ButtonWest                     // square / X
	ButtonNorth                    // triangle / Y

	ButtonL1
	ButtonR1
	ButtonL2
	ButtonR2

	ButtonL3
	ButtonR3

	ButtonSelect
	ButtonStart
	ButtonHome
	ButtonTouchpad
	ButtonMute

	ButtonDPadUp
	ButtonDPadDown
	ButtonDPadLeft
	ButtonDPadRight
)

// ButtonVocabularyMask has exactly the 19 bits above set; any decoded bitset
// is always a subset of it.
const ButtonVocabularyMask = ButtonSouth | ButtonEast | ButtonWest | ButtonNorth |
	ButtonL1 | ButtonR1 | ButtonL2 | ButtonR2 |
	ButtonL3 | ButtonR3 |
	ButtonSelect | ButtonStart | ButtonHome | ButtonTouchpad | ButtonMute |
	ButtonDPadUp | ButtonDPadDown | ButtonDPadLeft | ButtonDPadRight

// StickDeadzone is the symmetric window (in raw 0-255 stick units, centered
// on 128) inside which a stick axis is snapped to neutral.
const StickDeadzone = 6

// StickNeutral is the raw value both sticks report when centered.
const StickNeutral = 128

// dpadNeutral is the "no direction pressed" value of the packed dpad
// nibble; 8 through 15 all mean neutral.
const dpadNeutral = 8

// Touch contact geometry (DualSense touchpad is 1920x1080-ish; we only need
// enough bits to carry the 12-bit X/12-bit Y the wire format uses).
const (
	TouchXMax = 0x0FFF
	TouchYMax = 0x0FFF
)

// Battery nibble decoding (byte offset differs between BT/USB, semantics are
// shared): low nibble * 10 = percentage (clamped at 100), high nibble is
// charge status.
const (
	batteryStatusDischarging = 0x0
	batteryStatusCharging    = 0x1
	batteryStatusFull        = 0x2
)

// TouchpadVirtualStickSensitivity is the pixel delta (from the first contact
// position after a touch begins) that maps to full stick deflection when the
// touchpad-as-right-stick feature is enabled.
const TouchpadVirtualStickSensitivity = 400
