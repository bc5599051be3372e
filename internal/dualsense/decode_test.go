package dualsense_test

import (
	"testing"

	"github.com/rosettapad/rosettapad/internal/dualsense"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usbReport(mutate func(b []byte)) []byte {
	b := make([]byte, dualsense.USBInputMinLen)
	b[0] = dualsense.ReportIDUSBInput
	b[1], b[2], b[3], b[4] = 128, 128, 128, 128
	if mutate != nil {
		mutate(b)
	}
	return b
}

func TestDecodeRejectsUnknownReportID(t *testing.T) {
	d := dualsense.NewDecoder(false)
	_, ok := d.Decode([]byte{0x99, 0x00}, 0)
	assert.False(t, ok)
}

func TestDecodeRejectsTruncatedBuffer(t *testing.T) {
	d := dualsense.NewDecoder(false)
	_, ok := d.Decode([]byte{dualsense.ReportIDUSBInput, 0x80}, 0)
	assert.False(t, ok)
}

func TestDecodeStickDeadzone(t *testing.T) {
	cases := []struct {
		name     string
		raw      uint8
		expected uint8
	}{
		{"neutral", 128, 128},
		{"inside deadzone positive", 134, 128},
		{"inside deadzone negative", 122, 128},
		{"just outside boundary high", 135, 135},
		{"just outside boundary low", 121, 121},
		{"full deflection", 255, 255},
		{"zero", 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, dualsense.ApplyDeadzone(tc.raw))
		})
	}
}

func TestDecodeButtonsStayWithinVocabulary(t *testing.T) {
	d := dualsense.NewDecoder(false)
	report := usbReport(func(b []byte) {
		b[8] = 0xFF // all dpad+face bits set
		b[9] = 0xFF // all shoulder/stick/select/start bits set
	})
	snap, ok := d.Decode(report, 0)
	require.True(t, ok)
	assert.Equal(t, dualsense.Button(0), snap.Buttons&^dualsense.ButtonVocabularyMask)
}

func TestDpadNibbleNeutralRange(t *testing.T) {
	d := dualsense.NewDecoder(false)
	for nibble := uint8(8); nibble <= 15; nibble++ {
		report := usbReport(func(b []byte) { b[8] = nibble })
		snap, ok := d.Decode(report, 0)
		require.True(t, ok)
		dpadBits := dualsense.ButtonDPadUp | dualsense.ButtonDPadDown | dualsense.ButtonDPadLeft | dualsense.ButtonDPadRight
		assert.Equal(t, dualsense.Button(0), snap.Buttons&dpadBits, "nibble %d should be neutral", nibble)
	}
}

func TestBatteryBoundaries(t *testing.T) {
	cases := []struct {
		name             string
		raw              uint8
		expectLevel      uint8
		expectCharging   bool
		expectFull       bool
	}{
		{"0% discharging", 0x00, 0, false, false},
		{"100% not charging", 0x0A, 100, false, false},
		{"100% charging (full)", 0x2A, 100, false, true},
		{"50% charging", 0x15, 50, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := dualsense.NewDecoder(false)
			report := usbReport(func(b []byte) {
				// battery byte needs the full-length buffer.
			})
			full := make([]byte, 54)
			copy(full, report)
			full[53] = tc.raw
			snap, ok := d.Decode(full, 0)
			require.True(t, ok)
			assert.Equal(t, tc.expectLevel, snap.Battery.Level)
			assert.Equal(t, tc.expectCharging, snap.Battery.Charging)
			assert.Equal(t, tc.expectFull, snap.Battery.Full)
		})
	}
}

func TestTouchInactiveContactIgnoresCoordinates(t *testing.T) {
	touch := []byte{0x80, 0xFF, 0xFF, 0xFF} // top bit set => inactive
	d := dualsense.NewDecoder(false)
	report := make([]byte, dualsense.BTInputMinLen)
	report[0] = dualsense.ReportIDBTInput
	report[2], report[3], report[4], report[5] = 128, 128, 128, 128
	copy(report[34:38], touch)
	snap, ok := d.Decode(report, 0)
	require.True(t, ok)
	assert.False(t, snap.Touch1.Active)
}

func TestTimestampNonDecreasing(t *testing.T) {
	d := dualsense.NewDecoder(false)
	report := usbReport(nil)
	s1, ok := d.Decode(report, 100)
	require.True(t, ok)
	s2, ok := d.Decode(report, 150)
	require.True(t, ok)
	assert.LessOrEqual(t, s1.TimestampMS, s2.TimestampMS)
}
