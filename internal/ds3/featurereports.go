package ds3

import "sync"

// Verbatim prefixes captured from real DS3 hardware traces, per spec.md 6.
// Every report is padded to FeatureReportSize with zero bytes; the PS3
// validates only the leading, documented bytes, but the full 64-byte
// length itself is load-bearing (spec.md 8 scenario 4).
var (
	capabilitiesPrefix = []byte{0x00, 0x01, 0x04, 0x00, 0x08, 0x0C, 0x01, 0x02}
	controllerMACPrefix = []byte{0xF2, 0xFF, 0xFF, 0x00} // MAC follows at offset 4
	controllerMACSuffix = []byte{0x00, 0x03, 0x50, 0x81, 0xD8, 0x01, 0x8A, 0x13}
	hostMACPrefix        = []byte{0x01, 0x00} // MAC follows at offset 2
	hostMACSuffix        = []byte{0x00, 0x03, 0x50, 0x81, 0xD8, 0x01}
	calibrationPrefix    = []byte{0x02, 0x01, 0xF8, 0x02, 0x07, 0x02, 0xEF, 0xFF, 0x14, 0x33, 0x00}
	statusPrefix         = []byte{0x00, 0x02, 0x00, 0x00, 0x08, 0x00, 0x03, 0x01}
	efConfigPrefix       = []byte{0x00, 0xEF, 0x04, 0x00, 0x08, 0x00, 0x03, 0x01}
)

// offsets of the mutable MAC field within reports 0xF2 / 0xF5.
const (
	controllerMACOffset = 4
	hostMACOffset       = 2
	macLen              = 6
)

func newReportFromPrefix(prefix []byte) []byte {
	b := make([]byte, FeatureReportSize)
	copy(b, prefix)
	return b
}

func newControllerMACReport() []byte {
	b := newReportFromPrefix(controllerMACPrefix)
	copy(b[controllerMACOffset+macLen:], controllerMACSuffix)
	return b
}

func newHostMACReport() []byte {
	b := newReportFromPrefix(hostMACPrefix)
	copy(b[hostMACOffset+macLen:], hostMACSuffix)
	return b
}

// FeatureReportTable holds the six fixed DS3 feature reports. Three are
// mutated at runtime (0xF2, 0xF5, 0xEF); the rest never change after
// construction. All mutation goes through the table's mutex so a GET on
// one thread never observes a torn write from a concurrent SET on another.
type FeatureReportTable struct {
	mu      sync.RWMutex
	reports map[uint8][]byte
}

// NewFeatureReportTable builds the table seeded with the fixed capture
// bytes from spec.md 6.
func NewFeatureReportTable() *FeatureReportTable {
	return &FeatureReportTable{
		reports: map[uint8][]byte{
			ReportIDCapabilities:  newReportFromPrefix(capabilitiesPrefix),
			ReportIDControllerMAC: newControllerMACReport(),
			ReportIDHostMAC:       newHostMACReport(),
			ReportIDCalibration:   newReportFromPrefix(calibrationPrefix),
			ReportIDStatus:        newReportFromPrefix(statusPrefix),
			ReportIDEFConfig:      newReportFromPrefix(efConfigPrefix),
		},
	}
}

// Get returns a copy of the feature report for id, and whether it exists.
func (t *FeatureReportTable) Get(id uint8) ([]byte, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.reports[id]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(r))
	copy(out, r)
	return out, true
}

// SetControllerMAC writes the local Bluetooth MAC into report 0xF2's
// offset 4-9, and seeds report 0xF5's offset 2-7 with the same value —
// both reports carry the local MAC until the PS3 overwrites 0xF5 with its
// own address via SET_REPORT.
func (t *FeatureReportTable) SetControllerMAC(mac [6]byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	copy(t.reports[ReportIDControllerMAC][controllerMACOffset:controllerMACOffset+macLen], mac[:])
	copy(t.reports[ReportIDHostMAC][hostMACOffset:hostMACOffset+macLen], mac[:])
}

// SetHostMAC overwrites report 0xF5's mutable MAC field with the PS3's own
// address, captured from SET_REPORT 0xF5 (spec.md 4.3/4.5).
func (t *FeatureReportTable) SetHostMAC(mac [6]byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	copy(t.reports[ReportIDHostMAC][hostMACOffset:hostMACOffset+macLen], mac[:])
}

// SetEFConfig overwrites report 0xEF's full payload verbatim, so a
// subsequent GET returns exactly what the PS3 last wrote (spec.md 4.3).
func (t *FeatureReportTable) SetEFConfig(payload []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	dst := t.reports[ReportIDEFConfig]
	n := copy(dst, payload)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}
