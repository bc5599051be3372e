// Package l2cap implements the Bluetooth HID path: two L2CAP SEQPACKET
// sockets on PSM 0x11 (control) and 0x13 (interrupt), the connection-mode
// state machine, the HID transaction protocol, send discipline, and
// wake-on-demand (spec.md 4.5).
package l2cap

import "time"

// PSMs, per spec.md 4.5/6.
const (
	PSMControl   = 0x0011
	PSMInterrupt = 0x0013
)

// HID transaction type high nibbles on the control channel.
const (
	txHandshake   = 0x00
	txGetReport   = 0x40
	txSetReport   = 0x50
	txSetProtocol = 0x70
)

// Data-packet prefixes.
const (
	prefixControlData   = 0xA3 // DATA | FEATURE, control channel responses
	prefixInterruptIn   = 0xA1 // DATA | INPUT, interrupt channel outbound
	prefixInterruptOut  = 0xA2 // DATA | OUTPUT, interrupt channel inbound
)

// HANDSHAKE result codes (low nibble of a 0x00-type packet).
const (
	handshakeOK            = 0x00
	handshakeErrUnsupported = 0x03
)

const (
	connectTimeout       = 10 * time.Second
	interPSMDelay        = 100 * time.Millisecond
	postConnectSettle    = 500 * time.Millisecond
	sessionOpenSpacing   = 20 * time.Millisecond
	sessionOpenReports   = 3
	motionPollTimeout    = 100 * time.Millisecond

	queueAwareSkipDelay = 5 * time.Millisecond
	fallbackSendPeriod  = 40 * time.Millisecond

	wakeAttempts       = 5
	wakeAttemptSpacing = 1500 * time.Millisecond
	wakeHomeHoldTime   = 150 * time.Millisecond

	enableTimeout = 500 * time.Millisecond

	reconnectRetryInterval = 2 * time.Second

	defaultMaxConsecutiveDrops = 10
)

// L2CAP socket options, per spec.md 4.5.
const (
	l2capOMTU     = 50
	l2capIMTU     = 64
	l2capFlushTO  = 1 // 0.625ms units: "drop, don't queue stale packets"
	l2capPriority = 6
)
