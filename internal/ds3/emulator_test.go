package ds3_test

import (
	"testing"

	"github.com/rosettapad/rosettapad/internal/ds3"
	"github.com/rosettapad/rosettapad/internal/dualsense"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func neutralSnapshot() *dualsense.Snapshot {
	return &dualsense.Snapshot{
		LX: dualsense.StickNeutral,
		LY: dualsense.StickNeutral,
		RX: dualsense.StickNeutral,
		RY: dualsense.StickNeutral,
		Battery: dualsense.Battery{
			Level: 100,
		},
	}
}

func TestBuildInputReportNeutralSnapshot(t *testing.T) {
	e := ds3.NewEmulator()
	report := e.BuildInputReport(neutralSnapshot(), ds3.TransportUSB, false)

	require.Len(t, report, ds3.InputReportSize)
	assert.Equal(t, uint8(0x01), report[0])
	assert.Equal(t, uint8(0x00), report[2], "no dpad/select/start pressed")
	assert.Equal(t, uint8(0x00), report[3], "no shoulders/face buttons pressed")
	assert.Equal(t, uint8(0x33), report[36])
	assert.Equal(t, uint8(0x04), report[37])
	assert.Equal(t, uint8(0x77), report[38])
	assert.Equal(t, uint8(0x01), report[39])
	assert.Equal(t, uint8(0x02), report[48])

	// zero-calibrated motion: accel 512 -> 0x0200, gyroZ 498 -> 0x01F2.
	assert.Equal(t, uint8(0x00), report[40])
	assert.Equal(t, uint8(0x02), report[41])
	assert.Equal(t, uint8(0xF2), report[46])
	assert.Equal(t, uint8(0x01), report[47])
}

func TestBuildInputReportButtonCombo(t *testing.T) {
	e := ds3.NewEmulator()
	s := neutralSnapshot()
	s.Buttons = dualsense.ButtonSouth | dualsense.ButtonDPadUp

	report := e.BuildInputReport(s, ds3.TransportUSB, false)

	assert.Equal(t, uint8(0x10), report[2], "dpad up bit set")
	assert.Equal(t, uint8(0x40), report[3], "cross bit set")
	assert.Equal(t, uint8(0xFF), report[10], "dpad up pressure at full")
	assert.Equal(t, uint8(0x00), report[11], "dpad right pressure idle")
	assert.Equal(t, uint8(0xFF), report[24], "cross pressure at full")
	assert.Equal(t, uint8(0x00), report[22], "triangle pressure idle")
}

func TestFeatureReportCapabilitiesLength(t *testing.T) {
	e := ds3.NewEmulator()
	report, ok := e.GetFeatureReport(ds3.ReportIDCapabilities)
	require.True(t, ok)
	assert.Len(t, report, ds3.FeatureReportSize)
	assert.Equal(t, uint8(0x00), report[0])
	assert.Equal(t, uint8(0x01), report[1])
}

func TestFeatureReportUnknownID(t *testing.T) {
	e := ds3.NewEmulator()
	_, ok := e.GetFeatureReport(0x99)
	assert.False(t, ok)
}

func TestPairingHandshakeCapturesHostMAC(t *testing.T) {
	e := ds3.NewEmulator()
	e.SetLocalMAC([6]byte{0x00, 0x1B, 0xDC, 0x0F, 0xAA, 0xBB})

	local, ok := e.GetFeatureReport(ds3.ReportIDControllerMAC)
	require.True(t, ok)
	assert.Equal(t, []byte{0x00, 0x1B, 0xDC, 0x0F, 0xAA, 0xBB}, local[4:10])

	before, ok := e.GetFeatureReport(ds3.ReportIDHostMAC)
	require.True(t, ok)
	assert.Equal(t, []byte{0x00, 0x1B, 0xDC, 0x0F, 0xAA, 0xBB}, before[2:8], "seeded with local MAC before pairing")

	payload := make([]byte, ds3.FeatureReportSize)
	copy(payload[2:8], []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF})
	mac, paired := e.SetFeatureReport(ds3.ReportIDHostMAC, payload)
	require.True(t, paired)
	assert.Equal(t, [6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}, mac)

	after, ok := e.GetFeatureReport(ds3.ReportIDHostMAC)
	require.True(t, ok)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}, after[2:8], "GET echoes the PS3's own MAC after pairing")
}

func TestSetFeatureReportEFConfigSavedVerbatim(t *testing.T) {
	e := ds3.NewEmulator()
	payload := make([]byte, ds3.FeatureReportSize)
	payload[0] = 0x01
	payload[1] = 0xEF
	payload[2] = 0x99

	_, paired := e.SetFeatureReport(ds3.ReportIDEFConfig, payload)
	assert.False(t, paired)

	stored, ok := e.GetFeatureReport(ds3.ReportIDEFConfig)
	require.True(t, ok)
	assert.Equal(t, payload, stored)
}

func TestSetFeatureReportUnrecognizedIDIsIgnored(t *testing.T) {
	e := ds3.NewEmulator()
	before, _ := e.GetFeatureReport(ds3.ReportIDStatus)
	_, paired := e.SetFeatureReport(ds3.ReportIDStatus, make([]byte, ds3.FeatureReportSize))
	assert.False(t, paired)
	after, _ := e.GetFeatureReport(ds3.ReportIDStatus)
	assert.Equal(t, before, after)
}

func TestParseOutputReportRumbleAndLED(t *testing.T) {
	buf := make([]byte, 11)
	buf[3] = 0x01 // weak motor on
	buf[5] = 0x80 // strong motor half
	buf[10] = 0x04 // player 2

	cmd, ok := ds3.ParseOutputReport(buf)
	require.True(t, ok)
	assert.True(t, cmd.WeakMotor)
	assert.Equal(t, uint8(0x80), cmd.StrongMotor)
	assert.Equal(t, uint8(0x04), cmd.PlayerLED)
	assert.Equal(t, uint8(0x0A), cmd.DualSenseLED)
}

func TestParseOutputReportTooShort(t *testing.T) {
	_, ok := ds3.ParseOutputReport(make([]byte, 5))
	assert.False(t, ok)
}

func TestBatteryCodeBoundaries(t *testing.T) {
	cases := []struct {
		name     string
		battery  dualsense.Battery
		expected uint8
	}{
		{"empty", dualsense.Battery{Level: 0}, 0x01},
		{"dying", dualsense.Battery{Level: 15}, 0x02},
		{"low", dualsense.Battery{Level: 35}, 0x03},
		{"medium", dualsense.Battery{Level: 60}, 0x04},
		{"high", dualsense.Battery{Level: 85}, 0x05},
		{"full non-charging", dualsense.Battery{Level: 100}, 0x06},
		{"charging not full", dualsense.Battery{Level: 50, Charging: true}, 0xEE},
		{"charging and full", dualsense.Battery{Level: 100, Charging: true, Full: true}, 0xEF},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := ds3.NewEmulator()
			s := neutralSnapshot()
			s.Battery = tc.battery
			report := e.BuildInputReport(s, ds3.TransportUSB, false)
			assert.Equal(t, tc.expected, report[30])
		})
	}
}

func TestConnectionCodeByTransportAndRumble(t *testing.T) {
	e := ds3.NewEmulator()
	s := neutralSnapshot()

	usbIdle := e.BuildInputReport(s, ds3.TransportUSB, false)
	assert.Equal(t, uint8(0x12), usbIdle[31])

	usbRumble := e.BuildInputReport(s, ds3.TransportUSB, true)
	assert.Equal(t, uint8(0x10), usbRumble[31])

	btIdle := e.BuildInputReport(s, ds3.TransportBT, false)
	assert.Equal(t, uint8(0x16), btIdle[31])

	btRumble := e.BuildInputReport(s, ds3.TransportBT, true)
	assert.Equal(t, uint8(0x14), btRumble[31])
}
