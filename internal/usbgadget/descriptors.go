package usbgadget

import (
	"bytes"
	"encoding/binary"

	rosettausb "github.com/rosettapad/rosettapad/usb"
)

// hidReportDescriptor is the DS3's HID report descriptor: a single
// gamepad application collection carrying one opaque 49-byte input report
// (spec.md 6's bit-exact layout) and one opaque 49-byte output report, as
// 8-bit array fields. It declares no individual stick axes or buttons.
var hidReportDescriptor = []byte{
	0x05, 0x01, // usage page (generic desktop)
	0x09, 0x05, // usage (gamepad)
	0xA1, 0x01, // collection (application)
	0x15, 0x00, //   logical minimum 0
	0x26, 0xFF, 0x00, //   logical maximum 255
	0x75, 0x08, //   report size 8
	0x95, 0x31, //   report count 49 (whole input report, opaque)
	0x09, 0x01, //   usage (pointer)
	0x81, 0x00, //   input (data, array)
	0x09, 0x02, //   usage (mouse; output report for rumble/LED)
	0x75, 0x08,
	0x95, 0x31,
	0x91, 0x00, //   output (data, array)
	0xC0, // end collection
}

func writeHIDDescriptor(b *bytes.Buffer, reportLen int) {
	b.WriteByte(9) // bLength
	b.WriteByte(rosettausb.HIDDescType)
	_ = binary.Write(b, binary.LittleEndian, uint16(0x0111)) // bcdHID
	b.WriteByte(0x00)                                        // country code
	b.WriteByte(0x01)                                        // num descriptors
	b.WriteByte(rosettausb.ReportDescType)
	_ = binary.Write(b, binary.LittleEndian, uint16(reportLen))
}

func writeInterfaceAndEndpoints(b *bytes.Buffer) {
	iface := rosettausb.InterfaceDescriptor{
		BInterfaceNumber:   0,
		BAlternateSetting:  0,
		BNumEndpoints:      2,
		BInterfaceClass:    0x03, // HID
		BInterfaceSubClass: 0x00,
		BInterfaceProtocol: 0x00,
		IInterface:         0,
	}
	iface.Write(b)
	writeHIDDescriptor(b, len(hidReportDescriptor))

	in := rosettausb.EndpointDescriptor{
		BEndpointAddress: EndpointIn,
		BMAttributes:     0x03, // interrupt
		WMaxPacketSize:   EndpointMaxPacket,
		BInterval:        InputInterval,
	}
	out := rosettausb.EndpointDescriptor{
		BEndpointAddress: EndpointOut,
		BMAttributes:     0x03,
		WMaxPacketSize:   EndpointMaxPacket,
		BInterval:        InputInterval,
	}
	in.Write(b)
	out.Write(b)
}

// interfaceBlockBytes renders one interface+HID+endpoints block and
// reports its length, needed twice (FS and HS descriptor sets use the
// same bytes here since nothing varies by speed for a full/high-speed
// interrupt gadget at this packet size).
func interfaceBlockBytes() []byte {
	var b bytes.Buffer
	writeInterfaceAndEndpoints(&b)
	return b.Bytes()
}

// BuildDescriptors renders the full FunctionFS descriptor blob written
// to ep0 once at startup: a v2 header (magic, length, flags, per-speed
// descriptor counts) followed by the full-speed and high-speed
// descriptor sets back to back.
func BuildDescriptors() []byte {
	block := interfaceBlockBytes()

	var body bytes.Buffer
	body.Write(block) // FS descriptors
	body.Write(block) // HS descriptors (identical interface layout)

	var head bytes.Buffer
	_ = binary.Write(&head, binary.LittleEndian, uint32(descriptorsMagicV2))
	totalLen := uint32(4 + 4 + 4 + 4 + 4 + body.Len()) // magic+len+flags+fs_count+hs_count+body
	_ = binary.Write(&head, binary.LittleEndian, totalLen)
	_ = binary.Write(&head, binary.LittleEndian, uint32(flagsFSDesc|flagsHSDesc))
	const descsPerBlock = 4 // interface, HID, IN endpoint, OUT endpoint
	_ = binary.Write(&head, binary.LittleEndian, uint32(descsPerBlock)) // fs descriptor count
	_ = binary.Write(&head, binary.LittleEndian, uint32(descsPerBlock)) // hs descriptor count

	head.Write(body.Bytes())
	return head.Bytes()
}

// BuildStrings renders the FunctionFS string-descriptors blob: a small
// header (magic, length, language count) followed by one language block
// with the product/manufacturer/serial strings in interface order.
func BuildStrings() []byte {
	var block bytes.Buffer
	block.WriteString(Manufacturer)
	block.WriteByte(0)
	block.WriteString(ProductName)
	block.WriteByte(0)
	block.WriteString(SerialNumber)
	block.WriteByte(0)
	block.WriteString(ConfigName)
	block.WriteByte(0)

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, uint32(descriptorsMagicV2))
	totalLen := uint32(4+4+4) + 2 /* language code */ + uint32(block.Len())
	_ = binary.Write(&buf, binary.LittleEndian, totalLen)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(1)) // string count
	_ = binary.Write(&buf, binary.LittleEndian, uint16(0x0409)) // en-US
	buf.Write(block.Bytes())
	return buf.Bytes()
}

// ReportDescriptor returns the HID report descriptor bytes served for
// GET_DESCRIPTOR(Report) on the control endpoint.
func ReportDescriptor() []byte {
	out := make([]byte, len(hidReportDescriptor))
	copy(out, hidReportDescriptor)
	return out
}
