//go:build linux

package l2cap

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// l2capOptions mirrors struct l2cap_options from linux/l2cap.h; only the
// fields spec.md 4.5 calls out are meaningful here, the rest keep the
// struct's real layout so setsockopt/getsockopt don't corrupt adjacent
// kernel memory.
type l2capOptions struct {
	OMTU    uint16
	IMTU    uint16
	Flush   uint16
	Mode    uint8
	FCS     uint8
	MaxTx   uint8
	TxWin   uint16
}

const (
	solL2CAP    = unix.SOL_L2CAP
	l2capOptOptions = 0x01
)

// dialL2CAP opens, binds and connects one L2CAP SEQPACKET socket to
// remote on the given PSM, applying the socket options spec.md 4.5
// mandates (omtu/imtu/flush_to, priority, SO_SNDBUF, SO_LINGER).
func dialL2CAP(localMAC, remoteMAC [6]byte, psm uint16) (int, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_SEQPACKET, unix.BTPROTO_L2CAP)
	if err != nil {
		return -1, fmt.Errorf("l2cap: socket: %w", err)
	}

	if err := unix.Bind(fd, &unix.SockaddrL2{PSM: 0, Addr: localMAC}); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("l2cap: bind: %w", err)
	}

	if err := applySocketOptions(fd); err != nil {
		unix.Close(fd)
		return -1, err
	}

	if err := connectWithTimeout(fd, remoteMAC, psm, connectTimeout); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("l2cap: connect PSM 0x%04x: %w", psm, err)
	}

	return fd, nil
}

func connectWithTimeout(fd int, remoteMAC [6]byte, psm uint16, timeout time.Duration) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return err
	}
	defer unix.SetNonblock(fd, false)

	err := unix.Connect(fd, &unix.SockaddrL2{PSM: psm, Addr: remoteMAC})
	if err == nil {
		return nil
	}
	if err != unix.EINPROGRESS {
		return err
	}

	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	n, err := unix.Poll(fds, int(timeout.Milliseconds()))
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("timed out after %s", timeout)
	}
	soErr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if soErr != 0 {
		return unix.Errno(soErr)
	}
	return nil
}

func applySocketOptions(fd int) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_PRIORITY, l2capPriority); err != nil {
		return fmt.Errorf("l2cap: SO_PRIORITY: %w", err)
	}

	sndbuf, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF)
	if err == nil {
		_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, sndbuf)
	}

	linger := unix.Linger{Onoff: 1, Linger: 0}
	if err := unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, &linger); err != nil {
		return fmt.Errorf("l2cap: SO_LINGER: %w", err)
	}

	opts := l2capOptions{
		OMTU:  l2capOMTU,
		IMTU:  l2capIMTU,
		Flush: l2capFlushTO,
	}
	if err := setL2CAPOptions(fd, &opts); err != nil {
		return fmt.Errorf("l2cap: L2CAP_OPTIONS: %w", err)
	}

	return nil
}

func setL2CAPOptions(fd int, opts *l2capOptions) error {
	size := unsafe.Sizeof(*opts)
	_, _, errno := unix.Syscall6(unix.SYS_SETSOCKOPT, uintptr(fd), uintptr(solL2CAP), uintptr(l2capOptOptions),
		uintptr(unsafe.Pointer(opts)), size, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// pendingOutputBytes queries how many bytes are still queued for send
// on fd, used by the queue-aware send strategy (spec.md 4.5).
func pendingOutputBytes(fd int) (int, error) {
	var n int
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(unix.TIOCOUTQ), uintptr(unsafe.Pointer(&n)))
	if errno != 0 {
		return 0, errno
	}
	return n, nil
}
