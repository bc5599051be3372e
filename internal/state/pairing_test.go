package state_test

import (
	"path/filepath"
	"testing"

	"github.com/rosettapad/rosettapad/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPairingRecordMissingFileIsNotLoaded(t *testing.T) {
	rec, err := state.LoadPairingRecord(filepath.Join(t.TempDir(), "nope.conf"))
	require.NoError(t, err)
	assert.False(t, rec.Loaded)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairing.conf")
	want := state.PairingRecord{
		ConsoleMAC: [6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF},
		LocalMAC:   [6]byte{0x00, 0x1B, 0xDC, 0x0F, 0x11, 0x22},
	}

	require.NoError(t, state.SavePairingRecord(path, want))

	got, err := state.LoadPairingRecord(path)
	require.NoError(t, err)
	assert.True(t, got.Loaded)
	assert.Equal(t, want.ConsoleMAC, got.ConsoleMAC)
	assert.Equal(t, want.LocalMAC, got.LocalMAC)
}

func TestFingerprintIsStableAndShort(t *testing.T) {
	rec := state.PairingRecord{
		ConsoleMAC: [6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF},
		LocalMAC:   [6]byte{0x00, 0x1B, 0xDC, 0x0F, 0x11, 0x22},
	}
	fp1 := rec.Fingerprint()
	fp2 := rec.Fingerprint()
	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 8)
	assert.NotContains(t, fp1, "aa:bb")
}
