// Package state holds the mutex-guarded shared records that sit between
// the controller decoder, the two transports, and the power manager:
// the controller snapshot, the output command, the connection-mode state
// machine, and the persisted pairing record. Every holder follows the
// same shape — one mutex, copy-in/copy-out critical sections, no holder
// ever taken while another is held (spec.md 5's flat lock ordering).
package state

import (
	"sync"

	"github.com/rosettapad/rosettapad/internal/dualsense"
)

// SnapshotHolder is written by the decoder thread and read by both
// transports' input threads. Readers get a full copy under the lock so
// they never observe a partially written record.
type SnapshotHolder struct {
	mu  sync.Mutex
	cur dualsense.Snapshot
}

// NewSnapshotHolder returns a holder whose initial value is the zero
// Snapshot: sticks read 0, not the 128 resting value, until the first Store.
func NewSnapshotHolder() *SnapshotHolder {
	return &SnapshotHolder{}
}

// Store replaces the current snapshot wholesale.
func (h *SnapshotHolder) Store(s *dualsense.Snapshot) {
	h.mu.Lock()
	h.cur = *s
	h.mu.Unlock()
}

// Load returns a copy of the current snapshot.
func (h *SnapshotHolder) Load() dualsense.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cur
}
