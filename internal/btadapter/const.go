// Package btadapter configures the local Bluetooth adapter (device
// class, name, page-scan connectable) and reads its MAC, over a raw
// AF_BLUETOOTH/BTPROTO_HCI socket, grounded on the same raw-ioctl idiom
// used by Linux BLE host stacks (spec.md 4.5's "adapter configuration").
package btadapter

// AF_BLUETOOTH / BTPROTO_HCI aren't in golang.org/x/sys/unix's portable
// constant set (they're Linux-Bluetooth-specific), so they're declared
// here the same way the HCI ioctl numbers are below.
const (
	afBluetooth = 31
	btProtoHCI  = 1
)

// HCI ioctl request codes (linux/hci.h's _IOR/_IOW encodings).
const (
	hciGetDeviceList = 0x800448d2 // HCIGETDEVLIST, _IOR('H', 210, int)
	hciGetDeviceInfo = 0x800448d3 // HCIGETDEVINFO, _IOR('H', 211, int)
	hciDevUp         = 0x400448c9 // HCIDEVUP, _IOW('H', 201, int)
)

const maxDevices = 16

// Device class bytes for "gamepad, peripheral" (spec.md 4.5: 0x002508).
var deviceClass = [3]byte{0x08, 0x25, 0x00}

const adapterName = "PLAYSTATION(R)3 Controller"
