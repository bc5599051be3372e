// Package lightbar polls the optional lightbar IPC JSON file and
// applies it to the shared output record (spec.md 6's "collaborator
// interfaces (out-of-scope but consumed)").
package lightbar

import (
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/rosettapad/rosettapad/internal/state"
)

// fileState is the on-disk JSON shape: r/g/b 0-255, player_leds a 5-bit
// mask, player_led_brightness a 0.0-1.0 float.
type fileState struct {
	R                  uint8   `json:"r"`
	G                  uint8   `json:"g"`
	B                  uint8   `json:"b"`
	PlayerLEDs         uint8   `json:"player_leds"`
	PlayerLEDBrightness float64 `json:"player_led_brightness"`
}

// Reader polls Path every Interval and, on a successful parse whose
// content differs from the last applied one, writes the new values
// into Outputs. A missing or malformed file is not an error; it just
// means no update this tick, matching a collaborator file that may not
// exist yet.
type Reader struct {
	Path     string
	Interval time.Duration
	Outputs  *state.OutputHolder
	Logger   *slog.Logger

	lastRaw []byte
}

// NewReader returns a Reader with its fields set from the given
// arguments; Interval defaults to 500ms if zero.
func NewReader(path string, interval time.Duration, outputs *state.OutputHolder, logger *slog.Logger) *Reader {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Reader{Path: path, Interval: interval, Outputs: outputs, Logger: logger}
}

// Run polls until ctx-like shutdown is requested via the done channel;
// call from its own goroutine.
func (r *Reader) Run(done <-chan struct{}) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			r.pollOnce()
		}
	}
}

func (r *Reader) pollOnce() {
	raw, err := os.ReadFile(r.Path)
	if err != nil {
		return // file absent is normal; nothing to apply
	}
	if string(raw) == string(r.lastRaw) {
		return
	}

	var fs fileState
	if err := json.Unmarshal(raw, &fs); err != nil {
		if r.Logger != nil {
			r.Logger.Warn("lightbar: malformed IPC file, ignoring", "path", r.Path, "error", err)
		}
		return
	}
	r.lastRaw = raw

	r.Outputs.SetLightbar(fs.R, fs.G, fs.B)
	r.Outputs.SetPlayerLEDs(fs.PlayerLEDs)
	r.Outputs.SetPlayerLEDBrightness(clampBrightness(fs.PlayerLEDBrightness))
}

func clampBrightness(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v * 255)
}
