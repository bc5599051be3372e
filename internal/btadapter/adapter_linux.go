//go:build linux

package btadapter

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// hciDeviceRequest mirrors linux/hci.h's hci_dev_req used by
// HCIGETDEVLIST's variable-length request array.
type hciDeviceRequest struct {
	DevID  uint16
	DevOpt uint32
}

// hciDeviceListRequest mirrors hci_dev_list_req.
type hciDeviceListRequest struct {
	DevNum  uint16
	DevReqs [maxDevices]hciDeviceRequest
}

// hciDeviceInfo mirrors hci_dev_info; only the fields this package
// needs are named, the rest are kept for correct struct layout.
type hciDeviceInfo struct {
	DevID    uint16
	Name     [8]byte
	BDAddr   [6]byte
	Flags    uint32
	Type     uint8
	Features [8]uint8

	PktType    uint32
	LinkPolicy uint32
	LinkMode   uint32

	ACLMtu  uint16
	ACLPkts uint16
	SCOMtu  uint16
	SCOPkts uint16

	Stats [10]uint32
}

// DeviceInfo is the subset of HCI adapter info the rest of the system
// needs: the kernel device index and its Bluetooth MAC.
type DeviceInfo struct {
	DevID int
	MAC   [6]byte
}

func formatMAC(b [6]byte) string {
	// HCI reports the address little-endian byte order relative to the
	// conventional colon-notation MAC string.
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", b[5], b[4], b[3], b[2], b[1], b[0])
}

// String renders the adapter's MAC in conventional colon notation.
func (d DeviceInfo) String() string {
	return formatMAC(d.MAC)
}

func openHCISocket() (int, error) {
	return unix.Socket(afBluetooth, unix.SOCK_RAW, btProtoHCI)
}

// ListDevices enumerates local Bluetooth adapters via HCIGETDEVLIST/
// HCIGETDEVINFO.
func ListDevices() ([]DeviceInfo, error) {
	fd, err := openHCISocket()
	if err != nil {
		return nil, fmt.Errorf("btadapter: open HCI socket: %w", err)
	}
	defer unix.Close(fd)

	req := hciDeviceListRequest{DevNum: maxDevices}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(hciGetDeviceList), uintptr(unsafe.Pointer(&req))); errno != 0 {
		return nil, fmt.Errorf("btadapter: HCIGETDEVLIST: %w", errno)
	}

	out := make([]DeviceInfo, 0, req.DevNum)
	for i := 0; i < int(req.DevNum); i++ {
		info := hciDeviceInfo{DevID: uint16(i)}
		if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(hciGetDeviceInfo), uintptr(unsafe.Pointer(&info))); errno != 0 {
			continue
		}
		out = append(out, DeviceInfo{DevID: i, MAC: info.BDAddr})
	}
	return out, nil
}

// BringUp issues HCIDEVUP for the given adapter index, a no-op if it is
// already up (EALREADY is swallowed).
func BringUp(devID int) error {
	fd, err := openHCISocket()
	if err != nil {
		return fmt.Errorf("btadapter: open HCI socket: %w", err)
	}
	defer unix.Close(fd)

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(hciDevUp), uintptr(devID))
	if errno != 0 && errno != unix.EALREADY {
		return fmt.Errorf("btadapter: HCIDEVUP: %w", errno)
	}
	return nil
}

// mgmt command opcodes and the HCI_CHANNEL_CONTROL constant used to
// reach the kernel's Bluetooth management socket (bluez's mgmt API).
const (
	hciChannelControl = 3

	mgmtOpSetLocalName  = 0x000F
	mgmtOpSetDeviceClass = 0x000E
	mgmtOpSetConnectable = 0x0007

	mgmtHeaderLen = 6 // opcode(2) + index(2) + length(2)
)

func mgmtSocket() (int, error) {
	fd, err := unix.Socket(afBluetooth, unix.SOCK_RAW, btProtoHCI)
	if err != nil {
		return -1, err
	}
	sa := &unix.SockaddrHCI{Dev: 0xFFFF, Channel: hciChannelControl}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

func sendMgmtCommand(fd int, opcode uint16, index uint16, payload []byte) error {
	buf := make([]byte, mgmtHeaderLen+len(payload))
	binary.LittleEndian.PutUint16(buf[0:2], opcode)
	binary.LittleEndian.PutUint16(buf[2:4], index)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(len(payload)))
	copy(buf[mgmtHeaderLen:], payload)
	_, err := unix.Write(fd, buf)
	return err
}

// Configure applies the one-shot adapter setup spec.md 4.5 requires:
// device class 0x002508, the DS3's advertised name, and page-scan
// connectable so the PS3 can find and pair with it.
func Configure(devIndex int) error {
	fd, err := mgmtSocket()
	if err != nil {
		return fmt.Errorf("btadapter: mgmt socket: %w", err)
	}
	defer unix.Close(fd)

	idx := uint16(devIndex)

	namePayload := make([]byte, 260) // 249 name + 11 short name, per mgmt spec
	copy(namePayload, adapterName)
	if err := sendMgmtCommand(fd, mgmtOpSetLocalName, idx, namePayload); err != nil {
		return fmt.Errorf("btadapter: set local name: %w", err)
	}

	// Set Device Class takes {major, minor}; the kernel owns the
	// service-class bits of the class of device.
	classPayload := []byte{deviceClass[1] & 0x1F, deviceClass[0]}
	if err := sendMgmtCommand(fd, mgmtOpSetDeviceClass, idx, classPayload); err != nil {
		return fmt.Errorf("btadapter: set device class: %w", err)
	}

	if err := sendMgmtCommand(fd, mgmtOpSetConnectable, idx, []byte{0x01}); err != nil {
		return fmt.Errorf("btadapter: set connectable: %w", err)
	}

	return nil
}
