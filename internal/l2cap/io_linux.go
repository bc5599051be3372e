//go:build linux

package l2cap

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

func closeFD(fd int) {
	_ = unix.Close(fd)
}

// writeNonBlocking writes buf to fd, returning whatever error the
// kernel gives (including EAGAIN on a full send queue) rather than
// retrying — callers decide whether a dropped write matters.
func writeNonBlocking(fd int, buf []byte) error {
	_, err := unix.Write(fd, buf)
	return err
}

// readNonBlocking puts fd in non-blocking mode for the duration of one
// read, used by the motion thread's opportunistic output-report poll
// so it never stalls the send loop.
func readNonBlocking(fd int, buf []byte) (int, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return 0, err
	}
	defer unix.SetNonblock(fd, false)

	n, err := unix.Read(fd, buf)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// readWithTimeout polls fd for readability up to timeout, then issues
// one blocking read. Returns a timeout error (isTimeout reports true)
// if nothing arrived.
func readWithTimeout(fd int, buf []byte, timeout time.Duration) (int, error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, int(timeout.Milliseconds()))
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, errTimeout
	}
	return unix.Read(fd, buf)
}

var errTimeout = fmt.Errorf("l2cap: read timed out")

func isTimeout(err error) bool {
	return err == errTimeout
}
