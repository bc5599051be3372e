//go:build linux

package dualsense

import (
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// BT-framed output report, grounded on original_source's
// adapter/src/controllers/dualsense/dualsense.c dualsense_send_output:
// report ID 0x31, 78 bytes, trailing CRC32 over a virtual 0xA2-prefixed
// buffer. The original always frames rumble this way regardless of the
// controller's actual transport, so we do too.
const (
	btOutputReportID   = 0x31
	btOutputSize       = 78
	btOutputCRCPrefix  = 0xA2
	btOutputCRCSpan    = 74 // bytes 0..73 covered by the CRC, prefixed with btOutputCRCPrefix
	btOutputTag        = 0x10
	btOutputValidFlags = 0x03 // rumble + haptics
)

// ledRefreshEvery forces a lightbar/player-LED resend every N output
// writes even without a change, to fight the kernel hid-playstation
// driver's own default blue/player-1 reset (dualsense.c's
// led_refresh_counter).
const ledRefreshEvery = 10

// OutputReport is the rumble/LED command written back to the physical
// DualSense. It mirrors state.OutputCommand's fields without importing
// internal/state: the writer is driven by the output-dispatch thread,
// not by the decoder this package otherwise centers on.
type OutputReport struct {
	RumbleLeft, RumbleRight   uint8
	LEDRed, LEDGreen, LEDBlue uint8
	PlayerLEDs                uint8 // DualSense 5-bit player mask, already translated
	PlayerBrightness          uint8
}

// OutputWriter drives rumble over the DualSense's hidraw fd and the
// lightbar/player LEDs over sysfs, since the kernel driver owns the LEDs
// once bound and ignores any LED bits in the output report.
type OutputWriter struct {
	f   *os.File
	mu  sync.Mutex
	seq uint8

	lightbarPath string
	playerPaths  [5]string

	lastR, lastG, lastB uint8
	lastPlayerMask      uint8
	refreshCount        int
}

// NewOutputWriter wraps an already-open DualSense hidraw fd. LED state is
// seeded to 0xFF (white lightbar, all player-LED bits), so the first Write
// refreshes sysfs for any other LED command.
func NewOutputWriter(f *os.File) *OutputWriter {
	return &OutputWriter{f: f, lastR: 0xFF, lastG: 0xFF, lastB: 0xFF, lastPlayerMask: 0xFF}
}

// Write applies one output command: lightbar/player LEDs via sysfs
// (refreshed on change or every ledRefreshEvery calls) and rumble via a
// CRC32-framed hidraw write. Safe to call concurrently with Controller.Run
// reading the same fd — the kernel serialises HID reads/writes.
func (w *OutputWriter) Write(cmd OutputReport) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.refreshCount++
	force := w.refreshCount >= ledRefreshEvery
	if force {
		w.refreshCount = 0
	}

	if force || cmd.LEDRed != w.lastR || cmd.LEDGreen != w.lastG || cmd.LEDBlue != w.lastB {
		w.setLightbar(cmd.LEDRed, cmd.LEDGreen, cmd.LEDBlue)
		w.lastR, w.lastG, w.lastB = cmd.LEDRed, cmd.LEDGreen, cmd.LEDBlue
	}
	if force || cmd.PlayerLEDs != w.lastPlayerMask {
		w.setPlayerLEDs(cmd.PlayerLEDs)
		w.lastPlayerMask = cmd.PlayerLEDs
	}

	return w.writeRumble(cmd.RumbleLeft, cmd.RumbleRight)
}

func (w *OutputWriter) writeRumble(left, right uint8) error {
	report := make([]byte, btOutputSize)
	report[0] = btOutputReportID
	report[1] = (w.seq << 4) & 0xF0
	w.seq = (w.seq + 1) & 0x0F
	report[2] = btOutputTag
	report[3] = btOutputValidFlags
	report[5] = right // weak/high-frequency motor
	report[6] = left  // strong/low-frequency motor

	crcBuf := make([]byte, 1+btOutputCRCSpan)
	crcBuf[0] = btOutputCRCPrefix
	copy(crcBuf[1:], report[:btOutputCRCSpan])
	crc := crc32.ChecksumIEEE(crcBuf)
	report[74] = byte(crc)
	report[75] = byte(crc >> 8)
	report[76] = byte(crc >> 16)
	report[77] = byte(crc >> 24)

	_, err := w.f.Write(report)
	return err
}

// discoverLEDPaths scans /sys/class/leds for entries whose device symlink
// identifies a DualSense (vendor 054C, product 0CE6), caching the
// lightbar and per-player brightness paths by name suffix.
func (w *OutputWriter) discoverLEDPaths() {
	w.lightbarPath = ""
	for i := range w.playerPaths {
		w.playerPaths[i] = ""
	}

	const ledDir = "/sys/class/leds"
	entries, err := os.ReadDir(ledDir)
	if err != nil {
		return
	}

	for _, e := range entries {
		name := e.Name()
		target, err := os.Readlink(filepath.Join(ledDir, name))
		if err != nil {
			continue
		}
		if !strings.Contains(strings.ToUpper(target), "054C") || !strings.Contains(strings.ToUpper(target), "0CE6") {
			continue
		}

		switch {
		case strings.Contains(name, "rgb:indicator"):
			w.lightbarPath = filepath.Join(ledDir, name)
		case strings.Contains(name, ":white:player-"):
			idx := strings.Index(name, "player-")
			n, err := strconv.Atoi(name[idx+len("player-"):])
			if err == nil && n >= 1 && n <= 5 {
				w.playerPaths[n-1] = filepath.Join(ledDir, name)
			}
		}
	}
}

func (w *OutputWriter) setLightbar(r, g, b uint8) {
	if w.lightbarPath == "" {
		w.discoverLEDPaths()
		if w.lightbarPath == "" {
			return
		}
	}

	intensity := fmt.Sprintf("%d %d %d", r, g, b)
	if err := os.WriteFile(filepath.Join(w.lightbarPath, "multi_intensity"), []byte(intensity), 0o644); err != nil {
		w.lightbarPath = "" // path stale (device re-enumerated), search again next call
		return
	}
	_ = os.WriteFile(filepath.Join(w.lightbarPath, "brightness"), []byte("255"), 0o644)
}

func (w *OutputWriter) setPlayerLEDs(mask uint8) {
	if w.allPlayerPathsEmpty() {
		w.discoverLEDPaths()
	}

	for i, path := range w.playerPaths {
		if path == "" {
			continue
		}
		on := "0"
		if mask&(1<<uint(i)) != 0 {
			on = "255"
		}
		if err := os.WriteFile(filepath.Join(path, "brightness"), []byte(on), 0o644); err != nil {
			w.playerPaths[i] = "" // path stale (device re-enumerated), search again next call
		}
	}
}

func (w *OutputWriter) allPlayerPathsEmpty() bool {
	for _, p := range w.playerPaths {
		if p != "" {
			return false
		}
	}
	return true
}
