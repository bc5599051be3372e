//go:build linux

package dualsense

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// hidiocgfeatureBase is _IOC(_IOC_READ|_IOC_WRITE, 'H', 0x07, 0); the actual
// request number is this OR'd with (len << 16), since HIDIOCGFEATURE is a
// length-parameterised ioctl in <linux/hidraw.h>.
const hidiocgfeatureBase = 0xC0004807

func hidiocgfeature(length int) uintptr {
	return uintptr(hidiocgfeatureBase | (length << 16))
}

// ReadFeatureReport issues HIDIOCGFEATURE for reportID against an open
// hidraw file descriptor, returning the report exactly as the kernel
// returned it (report ID included in byte 0).
func ReadFeatureReport(f *os.File, reportID byte, length int) ([]byte, error) {
	buf := make([]byte, length)
	buf[0] = reportID
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), hidiocgfeature(length), uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return nil, fmt.Errorf("HIDIOCGFEATURE report 0x%02x: %w", reportID, errno)
	}
	return buf, nil
}

// SnapshotSink receives each freshly-decoded snapshot. Implemented by
// internal/state.SnapshotHolder in production and by a test double in
// tests.
type SnapshotSink interface {
	Store(*Snapshot)
}

// Controller owns the DualSense file descriptor and is the sole writer of
// the shared snapshot holder — per spec.md 5, "the decoder owns the
// DualSense file descriptor and nothing else".
type Controller struct {
	path string
	f    *os.File

	decoder   *Decoder
	outWriter *OutputWriter
	logger    *slog.Logger

	startMonotonic time.Time
}

// Open opens the hidraw node at path, reads the calibration feature
// report, and derives the initial Calibration.
func Open(path string, touchpadAsStick bool, logger *slog.Logger) (*Controller, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	c := &Controller{
		path:           path,
		f:              f,
		decoder:        NewDecoder(touchpadAsStick),
		outWriter:      NewOutputWriter(f),
		logger:         logger,
		startMonotonic: time.Now(),
	}

	report, err := ReadFeatureReport(f, ReportIDCalibration, CalibrationReportLen)
	if err != nil {
		logger.Warn("calibration feature report read failed; motion will be raw", "error", err)
		c.decoder.SetCalibration(Calibration{Valid: false})
		return c, nil
	}
	cal := DeriveCalibration(report)
	if !cal.Valid {
		logger.Warn("calibration derivation failed on at least one axis; motion will be raw")
	}
	c.decoder.SetCalibration(cal)
	return c, nil
}

// Close releases the hidraw file descriptor.
func (c *Controller) Close() error {
	return c.f.Close()
}

// WriteOutput sends a rumble/LED command to the DualSense. The fd is
// owned by the controller-input thread (Run) but written concurrently by
// the output-dispatch thread; the kernel serialises the two (spec.md 5).
func (c *Controller) WriteOutput(cmd OutputReport) error {
	return c.outWriter.Write(cmd)
}

// Run is the controller-input thread: it blocks on reads from the
// DualSense and stores every successfully decoded snapshot into sink. It
// returns when ctx is cancelled or the device disappears.
func (c *Controller) Run(ctx context.Context, sink SnapshotSink) error {
	buf := make([]byte, BTInputMinLen)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := c.f.SetReadDeadline(time.Now().Add(20 * time.Millisecond)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}
		n, err := c.f.Read(buf)
		if err != nil {
			if os.IsTimeout(err) {
				continue
			}
			return fmt.Errorf("read %s: %w", c.path, err)
		}

		now := uint64(time.Since(c.startMonotonic).Milliseconds())
		snap, ok := c.decoder.Decode(buf[:n], now)
		if !ok {
			c.logger.Debug("dropped unparseable DualSense report", "len", n)
			continue
		}
		sink.Store(snap)
	}
}
