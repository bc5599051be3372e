package l2cap

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosettapad/rosettapad/internal/ds3"
	"github.com/rosettapad/rosettapad/internal/state"
)

func testManager() *Manager {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(
		state.NewConnModeHolder(),
		ds3.NewEmulator(),
		state.NewSnapshotHolder(),
		state.NewOutputHolder(),
		0,
		logger,
		nil,
	)
}

func TestNeutralSnapshotIsCenteredAndFull(t *testing.T) {
	s := neutralSnapshot()
	assert.EqualValues(t, 128, s.LX)
	assert.EqualValues(t, 128, s.LY)
	assert.EqualValues(t, 128, s.RX)
	assert.EqualValues(t, 128, s.RY)
	assert.EqualValues(t, 100, s.Battery.Level)
}

func TestHandleControlPacketGetReportKnownID(t *testing.T) {
	m := testManager()
	// Socket not connected; writeControl is a safe no-op, only the
	// dispatch logic itself is under test here.
	m.handleControlPacket([]byte{txGetReport, ds3.ReportIDCalibration})
	// No panic and no state change expected; covered implicitly by
	// reaching this point.
}

func TestHandleControlPacketSetReportCapturesHostMAC(t *testing.T) {
	m := testManager()
	payload := make([]byte, 16)
	copy(payload[2:8], []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF})

	buf := append([]byte{txSetReport, ds3.ReportIDHostMAC}, payload...)
	m.handleControlPacket(buf)

	m.mu.Lock()
	mac := m.remoteMAC
	has := m.hasRemoteMAC
	m.mu.Unlock()

	require.True(t, has)
	assert.Equal(t, [6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}, mac)
}

func TestHandleControlPacketSetReportEnableTransitionsToEnabled(t *testing.T) {
	m := testManager()
	m.connMode.Set(state.Ready)

	buf := []byte{txSetReport, ds3.ReportIDEnable}
	m.handleControlPacket(buf)

	assert.Equal(t, state.Enabled, m.Mode())
}

func TestHandleControlPacketSetProtocolDoesNotPanicWithoutSocket(t *testing.T) {
	m := testManager()
	m.handleControlPacket([]byte{txSetProtocol, 0x01})
}

func TestHandleControlPacketShortSetReportIsIgnored(t *testing.T) {
	m := testManager()
	before := m.Mode()
	m.handleControlPacket([]byte{txSetReport})
	assert.Equal(t, before, m.Mode())
}

func TestConnectWithoutPairedMACGoesToScanning(t *testing.T) {
	m := testManager()
	err := m.Connect()
	require.Error(t, err)
	assert.Equal(t, state.Scanning, m.Mode())
}

func TestDisconnectBTResetsModeAndFDs(t *testing.T) {
	m := testManager()
	m.connMode.Set(state.Enabled)
	m.ctrlFD = 99
	m.intrFD = 100

	m.DisconnectBT()

	assert.Equal(t, state.Disconnected, m.Mode())
	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, -1, m.ctrlFD)
	assert.Equal(t, -1, m.intrFD)
}
