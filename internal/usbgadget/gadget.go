package usbgadget

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rosettapad/rosettapad/internal/ds3"
	"github.com/rosettapad/rosettapad/internal/logging"
	"github.com/rosettapad/rosettapad/internal/power"
	"github.com/rosettapad/rosettapad/internal/state"
)

// Gadget owns the three FunctionFS endpoint files and runs the control,
// input and output threads spec.md 4.4 describes. Each Run* method is
// meant to be its own goroutine; Gadget has no internal goroutines of
// its own.
type Gadget struct {
	ep0, ep1, ep2 *os.File

	logger    *slog.Logger
	rawLogger logging.RawLogger

	emu        *ds3.Emulator
	snapshots  *state.SnapshotHolder
	outputs    *state.OutputHolder
	powerMgr   *power.Manager

	enabled atomic.Bool
}

// Open mounts the three FunctionFS endpoint files under dir (as created
// by the ConfigFS/FunctionFS shell setup this spec treats as a
// collaborator contract) and writes the descriptor and string blobs to
// ep0, completing the FunctionFS bind handshake.
func Open(dir string, emu *ds3.Emulator, snapshots *state.SnapshotHolder, outputs *state.OutputHolder, powerMgr *power.Manager, logger *slog.Logger, rawLogger logging.RawLogger) (*Gadget, error) {
	ep0, err := os.OpenFile(filepath.Join(dir, "ep0"), os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open ep0: %w", err)
	}
	if _, err := ep0.Write(BuildDescriptors()); err != nil {
		ep0.Close()
		return nil, fmt.Errorf("write descriptors: %w", err)
	}
	if _, err := ep0.Write(BuildStrings()); err != nil {
		ep0.Close()
		return nil, fmt.Errorf("write strings: %w", err)
	}

	ep1, err := os.OpenFile(filepath.Join(dir, "ep1"), os.O_WRONLY, 0)
	if err != nil {
		ep0.Close()
		return nil, fmt.Errorf("open ep1: %w", err)
	}
	ep2, err := os.OpenFile(filepath.Join(dir, "ep2"), os.O_RDONLY, 0)
	if err != nil {
		ep0.Close()
		ep1.Close()
		return nil, fmt.Errorf("open ep2: %w", err)
	}

	return &Gadget{
		ep0: ep0, ep1: ep1, ep2: ep2,
		logger: logger, rawLogger: rawLogger,
		emu: emu, snapshots: snapshots, outputs: outputs, powerMgr: powerMgr,
	}, nil
}

// Close releases all three endpoint files.
func (g *Gadget) Close() error {
	g.ep1.Close()
	g.ep2.Close()
	return g.ep0.Close()
}

// Enabled reports whether the PS3 has issued ENABLE and not since
// DISABLE (SUSPEND leaves it set) — the input thread gates on this.
func (g *Gadget) Enabled() bool {
	return g.enabled.Load()
}

// RunControl is the ep0 blocking event loop (spec.md 4.4).
func (g *Gadget) RunControl(ctx context.Context, unbind func()) error {
	buf := make([]byte, eventSize)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := g.ep0.Read(buf)
		if err != nil {
			return fmt.Errorf("ep0 read: %w", err)
		}
		if n < eventSize {
			continue
		}
		g.handleEvent(buf, unbind)
	}
}

func (g *Gadget) handleEvent(buf []byte, unbind func()) {
	evType := buf[8]
	switch evType {
	case EventSetup:
		g.handleSetup(buf[:8])
	case EventEnable:
		g.enabled.Store(true)
		g.logger.Info("usb: enabled")
		g.powerMgr.OnUSBEnable()
	case EventDisable:
		g.enabled.Store(false)
		g.outputs.ZeroRumble()
		g.logger.Info("usb: disabled")
	case EventSuspend:
		g.logger.Info("usb: suspended")
		g.powerMgr.OnUSBSuspend()
	case EventUnbind:
		g.logger.Info("usb: unbind")
		unbind()
	case EventBind, EventResume:
		// no action required.
	}
}

func (g *Gadget) handleSetup(setup []byte) {
	bmRequestType := setup[0]
	bRequest := setup[1]
	wValue := binary.LittleEndian.Uint16(setup[2:4])
	wLength := binary.LittleEndian.Uint16(setup[6:8])

	reportType := uint8(wValue >> 8)
	reportID := uint8(wValue & 0xFF)

	switch {
	case bRequest == bRequestSetIdle:
		// status stage only; nothing to read or write back.
		return

	case bRequest == bRequestGetReport && reportType == reportTypeFeature:
		report, ok := g.emu.GetFeatureReport(reportID)
		if !ok {
			g.stall()
			return
		}
		if int(wLength) < len(report) {
			report = report[:wLength]
		}
		if _, err := g.ep0.Write(report); err != nil {
			g.logger.Warn("ep0: failed writing feature report", "id", reportID, "error", err)
		}
		if g.rawLogger != nil {
			g.rawLogger.Log(false, report)
		}

	case bRequest == bRequestSetReport && reportType == reportTypeFeature:
		payload := make([]byte, wLength)
		n, err := g.ep0.Read(payload)
		if err != nil {
			g.logger.Warn("ep0: failed reading SET_REPORT payload", "error", err)
			return
		}
		payload = payload[:n]
		if g.rawLogger != nil {
			g.rawLogger.Log(true, payload)
		}
		g.emu.SetFeatureReport(reportID, payload)

	default:
		g.stall()
	}
}

func (g *Gadget) stall() {
	// Writing a zero-length response to ep0 during an unrecognised SETUP
	// is how FunctionFS signals -EL2HLT (stall) to the host.
	_, _ = g.ep0.Write(nil)
}

// RunInput is the ep1 periodic input thread: every 4ms, while enabled
// and not in Standby, build a fresh report from the latest snapshot and
// send it (spec.md 4.4). Short writes are simply retried next tick.
func (g *Gadget) RunInput(ctx context.Context) error {
	ticker := time.NewTicker(inputThreadPeriodMS * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if !g.enabled.Load() || g.powerMgr.State() == power.Standby {
			continue
		}

		snap := g.snapshots.Load()
		out := g.outputs.Load()
		rumbleActive := out.RumbleLeft != 0 || out.RumbleRight != 0
		report := g.emu.BuildInputReport(&snap, ds3.TransportUSB, rumbleActive)

		if _, err := g.ep1.Write(report); err != nil {
			g.logger.Debug("ep1: short or failed write, retrying next tick", "error", err)
		}
	}
}

// RunOutput is the ep2 blocking output reader: hand whole buffers of
// length >= 6 to the DS3 output parser (spec.md 4.4).
func (g *Gadget) RunOutput(ctx context.Context) error {
	buf := make([]byte, 64)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := g.ep2.Read(buf)
		if err != nil {
			return fmt.Errorf("ep2 read: %w", err)
		}
		if n < 6 {
			continue
		}
		if g.rawLogger != nil {
			g.rawLogger.Log(true, buf[:n])
		}
		cmd, ok := ds3.ParseOutputReport(buf[:n])
		if !ok {
			continue
		}
		weak := uint8(0)
		if cmd.WeakMotor {
			weak = 0xFF
		}
		g.outputs.SetRumble(cmd.StrongMotor, weak)
		g.outputs.SetPlayerLEDs(cmd.DualSenseLED)
	}
}
