package dualsense_test

import (
	"hash/crc32"
	"os"
	"testing"

	"github.com/rosettapad/rosettapad/internal/dualsense"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputWriterWritesCRC32FramedReport(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	writer := dualsense.NewOutputWriter(w)
	err = writer.Write(dualsense.OutputReport{RumbleLeft: 0x80, RumbleRight: 0x40})
	require.NoError(t, err)

	buf := make([]byte, 128)
	n, err := r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 78, n)

	report := buf[:n]
	assert.EqualValues(t, 0x31, report[0])
	assert.EqualValues(t, 0x00, report[1]&0xF0) // first sequence nibble is 0
	assert.EqualValues(t, 0x10, report[2])
	assert.EqualValues(t, 0x03, report[3])
	assert.EqualValues(t, 0x40, report[5]) // weak/right motor
	assert.EqualValues(t, 0x80, report[6]) // strong/left motor

	crcBuf := append([]byte{0xA2}, report[:74]...)
	want := crc32.ChecksumIEEE(crcBuf)
	got := uint32(report[74]) | uint32(report[75])<<8 | uint32(report[76])<<16 | uint32(report[77])<<24
	assert.Equal(t, want, got)
}

func TestOutputWriterIncrementsSequenceNibble(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	writer := dualsense.NewOutputWriter(w)
	require.NoError(t, writer.Write(dualsense.OutputReport{}))
	require.NoError(t, writer.Write(dualsense.OutputReport{}))

	buf := make([]byte, 128)
	_, err = r.Read(buf)
	require.NoError(t, err)
	_, err = r.Read(buf)
	require.NoError(t, err)
	assert.EqualValues(t, 0x10, buf[1]&0xF0)
}

func TestOutputWriterWithoutSysfsLEDsStillWritesRumble(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	writer := dualsense.NewOutputWriter(w)
	// No /sys/class/leds entries will match a DualSense in this
	// environment; LED writes are a silent no-op and rumble still goes
	// out on the hidraw fd.
	err = writer.Write(dualsense.OutputReport{LEDRed: 0xFF, PlayerLEDs: 0x02})
	require.NoError(t, err)

	buf := make([]byte, 128)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 78, n)
}
