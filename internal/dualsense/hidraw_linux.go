//go:build linux

package dualsense

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"unsafe"

	"golang.org/x/sys/unix"
)

// SonyVendorID and DualSenseProductID identify the DualSense over both USB
// and Bluetooth hidraw nodes.
const (
	SonyVendorID      = 0x054C
	DualSenseProductID = 0x0CE6
)

// hidrawDevInfo mirrors struct hidraw_devinfo from <linux/hidraw.h>.
type hidrawDevInfo struct {
	BusType uint32
	Vendor  int16
	Product int16
}

// hidiocgrawinfo is the Linux HIDIOCGRAWINFO ioctl request number:
// _IOR('H', 0x03, struct hidraw_devinfo).
const hidiocgrawinfo = 0x80084803

// DeviceInfo identifies one candidate hidraw node.
type DeviceInfo struct {
	Path    string
	Vendor  uint16
	Product uint16
}

// IsDualSense reports whether this node's vendor/product match a Sony
// DualSense.
func (d DeviceInfo) IsDualSense() bool {
	return d.Vendor == SonyVendorID && d.Product == DualSenseProductID
}

// EnumerateHidraw lists every /dev/hidraw* node along with its reported
// vendor/product IDs, read via HIDIOCGRAWINFO. Nodes that fail to open
// (permissions, race with unplug) are silently skipped, matching spec.md
// 4.7's "device discovery scan" — a best-effort periodic probe, not a
// one-shot operation that should abort on the first unreadable node.
func EnumerateHidraw() ([]DeviceInfo, error) {
	matches, err := filepath.Glob("/dev/hidraw*")
	if err != nil {
		return nil, fmt.Errorf("glob hidraw nodes: %w", err)
	}
	sort.Strings(matches)

	var out []DeviceInfo
	for _, path := range matches {
		info, err := readHidrawInfo(path)
		if err != nil {
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

func readHidrawInfo(path string) (DeviceInfo, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return DeviceInfo{}, err
	}
	defer f.Close()

	var di hidrawDevInfo
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), uintptr(hidiocgrawinfo), uintptr(unsafe.Pointer(&di)))
	if errno != 0 {
		return DeviceInfo{}, errno
	}
	return DeviceInfo{Path: path, Vendor: uint16(di.Vendor), Product: uint16(di.Product)}, nil
}

// FindDualSense scans hidraw nodes and returns the path of the first
// DualSense found.
func FindDualSense() (string, error) {
	devs, err := EnumerateHidraw()
	if err != nil {
		return "", err
	}
	for _, d := range devs {
		if d.IsDualSense() {
			return d.Path, nil
		}
	}
	return "", fmt.Errorf("no DualSense hidraw node found")
}
