// Package usbgadget presents the DS3 to the PS3 over a Linux FunctionFS
// gadget: one HID interface with two interrupt endpoints, an ep0 control
// event loop, a periodic ep1 input thread, and a blocking ep2 output
// reader (spec.md 4.4).
package usbgadget

// FunctionFS descriptor-blob header magic and flags (linux/usb/functionfs.h).
const (
	descriptorsMagicV2 = 0x3
	flagsFSDesc        = 0x1
	flagsHSDesc        = 0x2
	flagsHasOSDesc     = 0 // not used; PS3 doesn't query MS OS descriptors
)

// usb_functionfs_event.type values.
const (
	EventBind     = 0
	EventUnbind   = 1
	EventEnable   = 2
	EventDisable  = 3
	EventSetup    = 4
	EventSuspend  = 5
	EventResume   = 6
)

// eventSize is sizeof(struct usb_functionfs_event): an 8-byte setup union
// followed by a type byte and 3 bytes of padding.
const eventSize = 12

// Standard HID class control requests, per spec.md 4.4/6.
const (
	bRequestGetReport = 0x01
	bRequestSetReport = 0x09
	bRequestSetIdle   = 0x0A
)

const (
	reportTypeFeature = 0x03
)

// Device identity presented to the PS3 (spec.md 4.4/6).
const (
	VendorID     = 0x054C
	ProductID    = 0x0268
	BCDDevice    = 0x0100
	ProductName  = "PLAYSTATION(R)3 Controller"
	Manufacturer = "Sony"
	SerialNumber = "123456"
	ConfigName   = "DS3 Config"
	MaxPowerMA   = 500

	EndpointIn  = 0x81
	EndpointOut = 0x02

	EndpointMaxPacket = 64
	InputInterval     = 1 // bInterval, shared by the full- and high-speed descriptor sets

	inputThreadPeriodMS = 4
)
