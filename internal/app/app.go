// Package app wires every component together and runs the seven
// threads spec.md 4.7 names: controller-input, output-dispatch,
// USB-ep0/ep1/ep2, BT-management, BT-motion.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rosettapad/rosettapad/internal/btadapter"
	"github.com/rosettapad/rosettapad/internal/config"
	"github.com/rosettapad/rosettapad/internal/ds3"
	"github.com/rosettapad/rosettapad/internal/dualsense"
	"github.com/rosettapad/rosettapad/internal/l2cap"
	"github.com/rosettapad/rosettapad/internal/lightbar"
	"github.com/rosettapad/rosettapad/internal/logging"
	"github.com/rosettapad/rosettapad/internal/power"
	"github.com/rosettapad/rosettapad/internal/state"
	"github.com/rosettapad/rosettapad/internal/usbgadget"
)

const (
	discoveryRetryInterval = 2 * time.Second
	outputDispatchInterval = 10 * time.Millisecond
)

// effectsAdapter satisfies power.Effects by fanning out to the pieces
// that actually own each side effect, since internal/power has no
// direct dependency on internal/l2cap or internal/state.
type effectsAdapter struct {
	bt      *l2cap.Manager
	outputs *state.OutputHolder
}

func (e *effectsAdapter) DisconnectBT()    { e.bt.DisconnectBT() }
func (e *effectsAdapter) ZeroRumble()      { e.outputs.ZeroRumble() }
func (e *effectsAdapter) SetDimAmber()     { e.outputs.SetLightbar(0x40, 0x20, 0x00) }
func (e *effectsAdapter) RestoreLightbar() { e.outputs.SetLightbar(0xFF, 0x00, 0x00) }
func (e *effectsAdapter) WakeBT()          { go e.bt.WakeBT() }

// Orchestrator owns every long-lived component and the goroutines that
// drive them.
type Orchestrator struct {
	cli    config.CLI
	logger *slog.Logger
	raw    logging.RawLogger

	emu       *ds3.Emulator
	snapshots *state.SnapshotHolder
	outputs   *state.OutputHolder
	connMode  *state.ConnModeHolder

	controller *dualsense.Controller
	gadget     *usbgadget.Gadget
	btMgr      *l2cap.Manager
	powerMgr   *power.Manager
	lbReader   *lightbar.Reader
}

// New builds every component but does not yet open any device or
// socket; call Run to do that.
func New(cli config.CLI, logger *slog.Logger, raw logging.RawLogger) *Orchestrator {
	emu := ds3.NewEmulator()
	snapshots := state.NewSnapshotHolder()
	outputs := state.NewOutputHolder()
	connMode := state.NewConnModeHolder()

	btMgr := l2cap.NewManager(connMode, emu, snapshots, outputs, cli.BT.MaxConsecutiveDrops, logger, raw)

	o := &Orchestrator{
		cli:       cli,
		logger:    logger,
		raw:       raw,
		emu:       emu,
		snapshots: snapshots,
		outputs:   outputs,
		connMode:  connMode,
		btMgr:     btMgr,
		lbReader:  lightbar.NewReader(cli.Lightbar.File, cli.Lightbar.PollInterval, outputs, logger),
	}
	o.powerMgr = power.NewManager(&effectsAdapter{bt: btMgr, outputs: outputs}, logger)
	return o
}

// Run opens the DualSense, the USB gadget and the Bluetooth adapter,
// then blocks running every thread until ctx is cancelled. It returns
// the first unrecoverable setup error, or nil on clean shutdown.
func (o *Orchestrator) Run(ctx context.Context) error {
	dsPath, err := o.resolveDualSensePath(ctx)
	if err != nil {
		return err
	}
	o.controller, err = dualsense.Open(dsPath, o.cli.TouchpadAsRightStick, o.logger)
	if err != nil {
		return fmt.Errorf("app: open DualSense: %w", err)
	}
	defer o.controller.Close()

	o.gadget, err = usbgadget.Open(o.cli.USB.FFSDir, o.emu, o.snapshots, o.outputs, o.powerMgr, o.logger, o.raw)
	if err != nil {
		return fmt.Errorf("app: open USB gadget: %w", err)
	}
	defer o.gadget.Close()

	if err := btadapter.BringUp(o.cli.BT.AdapterIndex); err != nil {
		o.logger.Warn("app: bring up BT adapter failed", "error", err)
	}
	if err := btadapter.Configure(o.cli.BT.AdapterIndex); err != nil {
		o.logger.Warn("app: configure BT adapter failed", "error", err)
	}
	if devs, err := btadapter.ListDevices(); err == nil {
		for _, d := range devs {
			if d.DevID == o.cli.BT.AdapterIndex {
				o.btMgr.SetLocalMAC(d.MAC)
				o.emu.SetLocalMAC(d.MAC)
			}
		}
	}

	pairing, err := state.LoadPairingRecord(o.cli.Pairing.File)
	if err != nil {
		o.logger.Warn("app: load pairing record failed", "error", err)
	} else if pairing.Loaded {
		o.btMgr.SetRemoteMAC(pairing.ConsoleMAC)
		o.logger.Info("app: loaded pairing record", "fingerprint", pairing.Fingerprint())
	}

	var wg sync.WaitGroup
	threadCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(threadCtx); err != nil && !errors.Is(err, context.Canceled) {
				o.logger.Error("thread exited with error", "thread", name, "error", err)
			}
		}()
	}

	unbind := func() {
		o.logger.Info("app: USB unbind received, shutting down")
		cancel()
	}

	run("controller-input", func(ctx context.Context) error { return o.controller.Run(ctx, o.snapshots) })
	run("output-dispatch", o.runOutputDispatch)
	run("usb-ep0", func(ctx context.Context) error { return o.gadget.RunControl(ctx, unbind) })
	run("usb-ep1", o.gadget.RunInput)
	run("usb-ep2", o.gadget.RunOutput)
	run("bt-management", o.btMgr.RunManagement)
	run("bt-motion", o.btMgr.RunMotion)

	wg.Add(1)
	go func() {
		defer wg.Done()
		done := make(chan struct{})
		go func() {
			<-threadCtx.Done()
			close(done)
		}()
		o.lbReader.Run(done)
	}()

	select {
	case <-ctx.Done():
	case <-threadCtx.Done():
	}
	cancel()
	o.shutdown()
	wg.Wait()
	return nil
}

// shutdown runs the unbind/disconnect sequence spec.md 7 describes:
// tear down the Bluetooth session and persist the pairing record so the
// next run can reconnect without the PS3 re-pairing.
func (o *Orchestrator) shutdown() {
	local, remote, hasRemote := o.btMgr.MACs()
	if hasRemote {
		rec := state.PairingRecord{ConsoleMAC: remote, LocalMAC: local, Loaded: true}
		if err := state.SavePairingRecord(o.cli.Pairing.File, rec); err != nil {
			o.logger.Warn("app: save pairing record failed", "error", err)
		}
	}

	o.btMgr.DisconnectBT()
	o.outputs.ZeroRumble()

	o.logger.Info("app: shutdown complete")
}

// runOutputDispatch is the output-dispatch thread (spec.md 2/4.7/5): it
// polls the output holder every 10ms and writes changed rumble/LED state
// back to the DualSense. While the power manager is in Standby it also
// samples the latest snapshot for a home-button press, the trigger for
// the Standby->Waking transition (spec.md 4.6/8) — there is no separate
// watcher thread for a single bit test.
func (o *Orchestrator) runOutputDispatch(ctx context.Context) error {
	ticker := time.NewTicker(outputDispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if o.powerMgr.State() == power.Standby {
			if snap := o.snapshots.Load(); snap.Buttons&dualsense.ButtonHome != 0 {
				o.powerMgr.OnHomePressed()
			}
		}

		cmd, changed := o.outputs.LoadIfChanged()
		if !changed {
			continue
		}
		err := o.controller.WriteOutput(dualsense.OutputReport{
			RumbleLeft:       cmd.RumbleLeft,
			RumbleRight:      cmd.RumbleRight,
			LEDRed:           cmd.LEDRed,
			LEDGreen:         cmd.LEDGreen,
			LEDBlue:          cmd.LEDBlue,
			PlayerLEDs:       cmd.PlayerLEDs,
			PlayerBrightness: cmd.PlayerBrightness,
		})
		if err != nil {
			o.logger.Warn("app: DualSense output write failed", "error", err)
		}
	}
}

// resolveDualSensePath honors an explicit --dualsense-path, otherwise
// retries autodiscovery every 2s until found or ctx is cancelled
// (spec.md 4.7's "device discovery scan").
func (o *Orchestrator) resolveDualSensePath(ctx context.Context) (string, error) {
	if o.cli.DualSense.Path != "" {
		return o.cli.DualSense.Path, nil
	}
	if !o.cli.DualSense.Autodiscover {
		return "", errors.New("app: no DualSense path given and autodiscovery disabled")
	}

	ticker := time.NewTicker(discoveryRetryInterval)
	defer ticker.Stop()
	for {
		if path, err := dualsense.FindDualSense(); err == nil {
			return path, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}
