// Package ds3 implements the DualShock 3 USB/BT wire protocol: 49-byte
// input reports, the six fixed feature reports, the F5 pairing handshake,
// and output-report (rumble/LED) parsing. It has no transport dependency —
// internal/usbgadget and internal/l2cap both drive it.
package ds3

// Feature/input report IDs, per spec.md 3 and 6.
const (
	ReportIDCapabilities = 0x01
	ReportIDControllerMAC = 0xF2
	ReportIDHostMAC       = 0xF5
	ReportIDCalibration   = 0xF7
	ReportIDStatus        = 0xF8
	ReportIDEFConfig      = 0xEF

	ReportIDEnable = 0xF4 // SET_REPORT only, BT enable handshake
)

// InputReportSize is the fixed size of the DS3 input report (spec.md 4.3).
const InputReportSize = 49

// FeatureReportSize is the fixed size of every DS3 feature report
// (spec.md 6: "64 bytes each").
const FeatureReportSize = 64

// Input report byte offsets, bit-exact per spec.md 4.3.
const (
	offReportID     = 0
	offDpadFace     = 2
	offShoulders     = 3
	offHome         = 4
	offLX           = 6
	offLY           = 7
	offRX           = 8
	offRY           = 9
	offDpadPressure = 10 // 4 bytes: up, right, down, left
	offL2Analog     = 18
	offR2Analog     = 19
	offL1Pressure   = 20
	offR1Pressure   = 21
	offFacePressure = 22 // 4 bytes: triangle, circle, cross, square
	offPlugged      = 29
	offBattery      = 30
	offConnection   = 31
	offMagic        = 36 // 4 bytes, literal 0x33 0x04 0x77 0x01
	offAccel        = 40 // 6 bytes, X/Y/Z, little-endian u16
	offGyroZ        = 46 // 2 bytes, little-endian u16
	offTrailer      = 48 // literal 0x02
)

// Packed button bits, offset 2 (select/L3/R3/start/dpad) and offset 3
// (L2/R2/L1/R1/face buttons).
const (
	bitSelect   = 0x01
	bitL3       = 0x02
	bitR3       = 0x04
	bitStart    = 0x08
	bitDpadUp   = 0x10
	bitDpadRight = 0x20
	bitDpadDown = 0x40
	bitDpadLeft = 0x80

	bitL2       = 0x01
	bitR2       = 0x02
	bitL1       = 0x04
	bitR1       = 0x08
	bitTriangle = 0x10
	bitCircle   = 0x20
	bitCross    = 0x40
	bitSquare   = 0x80
)

// Battery codes written to input-report offset 30.
const (
	batteryShutdown = 0x01
	batteryDying    = 0x02
	batteryLow      = 0x03
	batteryMedium   = 0x04
	batteryHigh     = 0x05
	batteryFull     = 0x06
	batteryCharging = 0xEE
	batteryCharged  = 0xEF
)

// Connection-type codes written to input-report offset 31.
const (
	ConnUSBIdle    = 0x12
	ConnUSBRumble  = 0x10
	ConnBTIdle     = 0x16
	ConnBTRumble   = 0x14
)

// magicBytes are the opaque, hardware-observed literal bytes at input
// report offset 36-39. Per spec.md 9, these MUST be preserved bit-for-bit
// and are not derived from semantics.
var magicBytes = [4]byte{0x33, 0x04, 0x77, 0x01}

// Motion encoding divisors, spec.md 4.3: specific integer approximations of
// the DualSense-to-DS3 unit ratio that must be preserved for game
// compatibility.
const (
	accelCenter  = 512
	accelDivisor = 72

	gyroZCenter  = 498
	gyroZDivisor = 120

	motionClampMax = 1023
	motionClampMin = 0
)

// Output report (PS3 -> us) byte offsets, spec.md 4.3.
const (
	outOffWeakMotor   = 3
	outOffStrongMotor = 5
	outOffPlayerLED   = 10
)

// Player-LED bitmask values on the DS3 output report and their DualSense
// 5-LED equivalents.
var playerLEDToDualSense = map[uint8]uint8{
	0x02: 0x04, // player 1: center only
	0x04: 0x0A, // player 2: inner pair
	0x08: 0x15, // player 3: edges + center
	0x10: 0x1B, // player 4: all but center
}

// Transport identifies which physical link an input report is being built
// for, since offset 31's connection code and the rumble-active variant
// depend on it.
type Transport int

const (
	TransportUSB Transport = iota
	TransportBT
)
