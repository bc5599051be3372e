package power_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/rosettapad/rosettapad/internal/power"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEffects struct {
	disconnectCount int
	zeroRumbleCount int
	dimAmberCount   int
	restoreCount    int
	wakeCount       int
}

func (f *fakeEffects) DisconnectBT()     { f.disconnectCount++ }
func (f *fakeEffects) ZeroRumble()       { f.zeroRumbleCount++ }
func (f *fakeEffects) SetDimAmber()      { f.dimAmberCount++ }
func (f *fakeEffects) RestoreLightbar()  { f.restoreCount++ }
func (f *fakeEffects) WakeBT()           { f.wakeCount++ }

func nullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestActiveToStandbyOnSuspend(t *testing.T) {
	fx := &fakeEffects{}
	m := power.NewManager(fx, nullLogger())

	m.OnUSBSuspend()

	assert.Equal(t, power.Standby, m.State())
	assert.Equal(t, 1, fx.disconnectCount)
	assert.Equal(t, 1, fx.zeroRumbleCount)
	assert.Equal(t, 1, fx.dimAmberCount)
}

func TestStandbyTransitionDebounced(t *testing.T) {
	fx := &fakeEffects{}
	m := power.NewManager(fx, nullLogger())

	m.OnUSBSuspend()
	m.OnUSBSuspend() // immediate second SUSPEND should be ignored - not Active anymore anyway

	assert.Equal(t, 1, fx.disconnectCount)

	// Back to Active via Waking; a SUSPEND within 2s of that transition is
	// dropped by the debounce even though the state is Active again.
	time.Sleep(510 * time.Millisecond)
	m.OnHomePressed()
	m.OnUSBEnable()
	require.Equal(t, power.Active, m.State())
	m.OnUSBSuspend()
	assert.Equal(t, power.Active, m.State())
	assert.Equal(t, 1, fx.disconnectCount)
}

func TestHomePressedIgnoredOutsideStandby(t *testing.T) {
	fx := &fakeEffects{}
	m := power.NewManager(fx, nullLogger())

	require.Equal(t, power.Active, m.State())
	m.OnHomePressed()

	assert.Equal(t, power.Active, m.State())
	assert.Equal(t, 0, fx.wakeCount)
}

func TestWakingToActiveOnUSBEnable(t *testing.T) {
	fx := &fakeEffects{}
	m := power.NewManager(fx, nullLogger())

	m.OnUSBSuspend()
	assert.Equal(t, power.Standby, m.State())

	time.Sleep(510 * time.Millisecond)
	m.OnHomePressed()
	require.Equal(t, power.Waking, m.State())
	assert.Equal(t, 1, fx.wakeCount)
	assert.Equal(t, 1, fx.restoreCount)

	m.OnUSBEnable()
	assert.Equal(t, power.Active, m.State())
}

func TestUSBEnableIgnoredOutsideWaking(t *testing.T) {
	fx := &fakeEffects{}
	m := power.NewManager(fx, nullLogger())

	m.OnUSBEnable()
	assert.Equal(t, power.Active, m.State())
}
