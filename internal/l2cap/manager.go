package l2cap

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"syscall"
	"time"

	"github.com/rosettapad/rosettapad/internal/ds3"
	"github.com/rosettapad/rosettapad/internal/dualsense"
	"github.com/rosettapad/rosettapad/internal/logging"
	"github.com/rosettapad/rosettapad/internal/state"
)

var errNoRemoteMAC = errors.New("l2cap: no paired remote MAC yet")

// Manager drives the Bluetooth connection-mode state machine and owns
// the two socket file descriptors (spec.md 4.5). Socket FDs and MACs
// share one mutex; the mode enum itself lives in state.ConnModeHolder
// so other components can observe it without reaching into this
// package (spec.md 5's flat lock ordering).
type Manager struct {
	mu     sync.Mutex
	ctrlFD int
	intrFD int

	localMAC, remoteMAC [6]byte
	hasRemoteMAC        bool

	connMode  *state.ConnModeHolder
	emu       *ds3.Emulator
	snapshots *state.SnapshotHolder
	outputs   *state.OutputHolder

	maxConsecutiveDrops int
	consecutiveDrops    int

	logger    *slog.Logger
	rawLogger logging.RawLogger
}

// NewManager returns a Manager starting Disconnected, with no sockets
// open.
func NewManager(connMode *state.ConnModeHolder, emu *ds3.Emulator, snapshots *state.SnapshotHolder, outputs *state.OutputHolder, maxConsecutiveDrops int, logger *slog.Logger, rawLogger logging.RawLogger) *Manager {
	if maxConsecutiveDrops <= 0 {
		maxConsecutiveDrops = defaultMaxConsecutiveDrops
	}
	return &Manager{
		ctrlFD:              -1,
		intrFD:              -1,
		connMode:             connMode,
		emu:                  emu,
		snapshots:            snapshots,
		outputs:              outputs,
		maxConsecutiveDrops:  maxConsecutiveDrops,
		logger:               logger,
		rawLogger:            rawLogger,
	}
}

// SetLocalMAC installs the local adapter's Bluetooth MAC used to bind
// outgoing sockets.
func (m *Manager) SetLocalMAC(mac [6]byte) {
	m.mu.Lock()
	m.localMAC = mac
	m.mu.Unlock()
}

// SetRemoteMAC installs the PS3's MAC, captured via pairing, used to
// dial both PSMs.
func (m *Manager) SetRemoteMAC(mac [6]byte) {
	m.mu.Lock()
	m.remoteMAC = mac
	m.hasRemoteMAC = true
	m.mu.Unlock()
}

// Mode returns the current connection mode.
func (m *Manager) Mode() state.ConnMode {
	return m.connMode.Get()
}

// hasPairedMAC reports whether a remote MAC has been captured yet, i.e.
// whether a reconnect attempt is even worth making.
func (m *Manager) hasPairedMAC() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasRemoteMAC
}

// MACs returns the local adapter MAC, the paired remote MAC (if any),
// and whether a remote MAC has been captured yet — used to persist the
// pairing record on shutdown.
func (m *Manager) MACs() (local, remote [6]byte, hasRemote bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.localMAC, m.remoteMAC, m.hasRemoteMAC
}

// DisconnectBT tears down both sockets and returns to Disconnected; it
// implements the power.Effects interface so the power manager can call
// it directly on Active->Standby.
func (m *Manager) DisconnectBT() {
	m.mu.Lock()
	m.closeSocketsLocked()
	m.mu.Unlock()
	m.connMode.Set(state.Disconnected)
}

func (m *Manager) closeSocketsLocked() {
	if m.ctrlFD >= 0 {
		closeFD(m.ctrlFD)
		m.ctrlFD = -1
	}
	if m.intrFD >= 0 {
		closeFD(m.intrFD)
		m.intrFD = -1
	}
}

// Connect attempts the full connection sequence: Connecting ->
// ControlConnected -> InterruptConnected -> Ready, then sends the three
// session-opening neutral reports. Returns once Ready or on failure,
// leaving mode at Scanning/Error on failure.
func (m *Manager) Connect() error {
	m.mu.Lock()
	if !m.hasRemoteMAC {
		m.mu.Unlock()
		m.connMode.Set(state.Scanning)
		return errNoRemoteMAC
	}
	local, remote := m.localMAC, m.remoteMAC
	m.mu.Unlock()

	m.connMode.Set(state.Connecting)

	ctrlFD, err := dialL2CAP(local, remote, PSMControl)
	if err != nil {
		m.connMode.Set(state.ConnError)
		return err
	}
	m.mu.Lock()
	m.ctrlFD = ctrlFD
	m.mu.Unlock()
	m.connMode.Set(state.ControlConnected)

	time.Sleep(interPSMDelay)

	intrFD, err := dialL2CAP(local, remote, PSMInterrupt)
	if err != nil {
		m.mu.Lock()
		m.closeSocketsLocked()
		m.mu.Unlock()
		m.connMode.Set(state.ConnError)
		return err
	}
	m.mu.Lock()
	m.intrFD = intrFD
	m.mu.Unlock()
	m.connMode.Set(state.InterruptConnected)

	time.Sleep(postConnectSettle)
	m.connMode.Set(state.Ready)

	m.sendSessionOpeningReports()

	return nil
}

func (m *Manager) sendSessionOpeningReports() {
	neutral := neutralSnapshot()
	for i := 0; i < sessionOpenReports; i++ {
		report := m.emu.BuildInputReport(neutral, ds3.TransportBT, false)
		m.writeInterrupt(report)
		time.Sleep(sessionOpenSpacing)
	}
}

func (m *Manager) writeInterrupt(report []byte) {
	m.mu.Lock()
	fd := m.intrFD
	m.mu.Unlock()
	if fd < 0 {
		return
	}
	buf := append([]byte{prefixInterruptIn}, report...)
	if m.rawLogger != nil {
		m.rawLogger.Log(false, buf)
	}
	_ = writeNonBlocking(fd, buf)
}

// RunManagement is the BT-management thread: polls the control socket
// for HID transactions, advances Ready->Enabled on SET_REPORT 0xF4 or a
// 500ms timeout, and re-enters the connect loop whenever a disconnect
// (socket error, HANGUP) leaves it at Disconnected/ConnError
// with a paired MAC already known (spec.md 7's "management thread
// re-enters the connect loop"). Wake-on-demand owns the no-MAC-yet case
// via the power manager, so this loop only retries once a MAC exists.
func (m *Manager) RunManagement(ctx context.Context) error {
	enableDeadline := time.Time{}
	for {
		if ctx.Err() != nil {
			return nil
		}

		mode := m.Mode()
		if (mode == state.Disconnected || mode == state.ConnError) && m.hasPairedMAC() {
			if err := m.Connect(); err != nil {
				m.logger.Debug("bt: reconnect attempt failed", "error", err)
				time.Sleep(reconnectRetryInterval)
			}
			continue
		}

		if mode == state.Ready && enableDeadline.IsZero() {
			enableDeadline = time.Now().Add(enableTimeout)
		}
		if mode == state.Ready && !enableDeadline.IsZero() && time.Now().After(enableDeadline) {
			m.connMode.Set(state.Enabled)
			m.logger.Info("bt: enabled via timeout")
		}
		if mode != state.Ready {
			enableDeadline = time.Time{}
		}

		m.mu.Lock()
		fd := m.ctrlFD
		m.mu.Unlock()
		if fd < 0 {
			time.Sleep(motionPollTimeout)
			continue
		}

		buf := make([]byte, 128)
		n, err := readWithTimeout(fd, buf, motionPollTimeout)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			m.logger.Warn("bt: control socket error, disconnecting", "error", err)
			m.DisconnectBT()
			continue
		}
		if n == 0 {
			continue
		}
		if m.rawLogger != nil {
			m.rawLogger.Log(true, buf[:n])
		}
		m.handleControlPacket(buf[:n])
	}
}

func (m *Manager) handleControlPacket(buf []byte) {
	txType := buf[0] & 0xF0
	switch txType {
	case txHandshake:
		// result code from PS3; nothing to send back.
	case txGetReport:
		if len(buf) < 2 {
			m.sendHandshake(handshakeErrUnsupported)
			return
		}
		reportID := buf[1]
		report, ok := m.emu.GetFeatureReport(reportID)
		if !ok {
			m.sendHandshake(handshakeErrUnsupported)
			return
		}
		resp := append([]byte{prefixControlData}, report...)
		m.writeControl(resp)
	case txSetReport:
		if len(buf) < 2 {
			m.sendHandshake(handshakeErrUnsupported)
			return
		}
		reportID := buf[1]
		payload := buf[2:]
		mac, paired := m.emu.SetFeatureReport(reportID, payload)
		if paired {
			m.SetRemoteMAC(mac)
		}
		if reportID == ds3.ReportIDEnable {
			m.connMode.Set(state.Enabled)
			m.logger.Info("bt: enabled via SET_REPORT 0xF4")
		}
		m.sendHandshake(handshakeOK)
	case txSetProtocol:
		m.sendHandshake(handshakeOK)
	}
}

func (m *Manager) sendHandshake(code uint8) {
	m.writeControl([]byte{txHandshake | code})
}

func (m *Manager) writeControl(buf []byte) {
	m.mu.Lock()
	fd := m.ctrlFD
	m.mu.Unlock()
	if fd < 0 {
		return
	}
	if m.rawLogger != nil {
		m.rawLogger.Log(false, buf)
	}
	_ = writeNonBlocking(fd, buf)
}

// RunMotion is the BT-motion thread: sends input reports on the
// interrupt channel using the queue-aware strategy, falling back to a
// fixed 40ms rate if querying pending bytes fails (spec.md 4.5). EAGAIN
// drops on either path count against maxConsecutiveDrops; hitting the
// limit forces a disconnect so the management thread can redial. Any
// other send error disconnects at once.
func (m *Manager) RunMotion(ctx context.Context) error {
	useQueueAware := true
	lastSend := time.Time{}

	for {
		if ctx.Err() != nil {
			return nil
		}

		if m.Mode() != state.Enabled {
			time.Sleep(fallbackSendPeriod)
			continue
		}

		m.mu.Lock()
		fd := m.intrFD
		m.mu.Unlock()
		if fd < 0 {
			time.Sleep(fallbackSendPeriod)
			continue
		}

		if useQueueAware {
			pending, err := pendingOutputBytes(fd)
			if err != nil {
				useQueueAware = false
				m.logger.Debug("bt: queue-aware send unsupported, falling back to fixed rate", "error", err)
			} else if pending >= ds3.InputReportSize {
				time.Sleep(queueAwareSkipDelay)
				continue
			}
		} else if since := time.Since(lastSend); since < fallbackSendPeriod {
			time.Sleep(fallbackSendPeriod - since)
		}

		snap := m.snapshots.Load()
		out := m.outputs.Load()
		rumbleActive := out.RumbleLeft != 0 || out.RumbleRight != 0
		report := m.emu.BuildInputReport(&snap, ds3.TransportBT, rumbleActive)

		if err := m.sendInterruptTracked(report); err != nil {
			if !errors.Is(err, syscall.EAGAIN) {
				m.logger.Warn("bt: interrupt send failed, disconnecting", "error", err)
				m.DisconnectBT()
				m.consecutiveDrops = 0
			} else if m.consecutiveDrops++; m.consecutiveDrops >= m.maxConsecutiveDrops {
				m.logger.Warn("bt: too many consecutive send drops, disconnecting", "drops", m.consecutiveDrops)
				m.DisconnectBT()
				m.consecutiveDrops = 0
			}
		} else {
			m.consecutiveDrops = 0
		}
		lastSend = time.Now()

		m.pollInterruptOutput(fd)
	}
}

func (m *Manager) sendInterruptTracked(report []byte) error {
	m.mu.Lock()
	fd := m.intrFD
	m.mu.Unlock()
	if fd < 0 {
		return errNoRemoteMAC
	}
	buf := append([]byte{prefixInterruptIn}, report...)
	if m.rawLogger != nil {
		m.rawLogger.Log(false, buf)
	}
	return writeNonBlocking(fd, buf)
}

// pollInterruptOutput does a non-blocking check for an output report
// arriving on the interrupt channel (rumble/LED), handing it to the
// emulator's output parser.
func (m *Manager) pollInterruptOutput(fd int) {
	buf := make([]byte, 64)
	n, err := readNonBlocking(fd, buf)
	if err != nil || n < 2 {
		return
	}
	if buf[0] != prefixInterruptOut {
		return
	}
	if m.rawLogger != nil {
		m.rawLogger.Log(true, buf[:n])
	}
	cmd, ok := ds3.ParseOutputReport(buf[1:n])
	if !ok {
		return
	}
	weak := uint8(0)
	if cmd.WeakMotor {
		weak = 0xFF
	}
	m.outputs.SetRumble(cmd.StrongMotor, weak)
	m.outputs.SetPlayerLEDs(cmd.DualSenseLED)
}

// WakeBT implements power.Effects.WakeBT: up to five connect attempts
// spaced 1.5s apart, each that reaches the interrupt socket presses and
// releases HOME (spec.md 4.5).
func (m *Manager) WakeBT() {
	for attempt := 0; attempt < wakeAttempts; attempt++ {
		if err := m.Connect(); err != nil {
			m.logger.Warn("bt: wake attempt failed", "attempt", attempt+1, "error", err)
			time.Sleep(wakeAttemptSpacing)
			continue
		}
		m.pressAndReleaseHome()
		return
	}
	m.logger.Warn("bt: wake exhausted attempts", "attempts", wakeAttempts)
}

func (m *Manager) pressAndReleaseHome() {
	snap := m.snapshots.Load()
	snap.Buttons |= dualsense.ButtonHome
	report := m.emu.BuildInputReport(&snap, ds3.TransportBT, false)
	m.writeInterrupt(report)
	time.Sleep(wakeHomeHoldTime)

	snap.Buttons &^= dualsense.ButtonHome
	report = m.emu.BuildInputReport(&snap, ds3.TransportBT, false)
	m.writeInterrupt(report)
}

// neutralSnapshot returns a resting-pose snapshot for the session-open
// and wake-on-demand reports, which are synthesized rather than decoded
// from a live controller sample.
func neutralSnapshot() *dualsense.Snapshot {
	return &dualsense.Snapshot{
		LX: dualsense.StickNeutral, LY: dualsense.StickNeutral,
		RX: dualsense.StickNeutral, RY: dualsense.StickNeutral,
		Battery: dualsense.Battery{Level: 100},
	}
}
