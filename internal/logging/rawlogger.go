package logging

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"
)

// RawLogger hex-dumps every packet crossing a transport boundary, for
// post-mortem analysis of protocol mismatches against real PS3 captures.
type RawLogger interface {
	Log(fromConsole bool, data []byte)
}

type rawLogger struct {
	w  io.Writer
	mu sync.Mutex
}

// NewRaw creates a RawLogger writing to w. If w is nil, Log is a no-op —
// callers don't need to branch on whether raw logging is enabled.
func NewRaw(w io.Writer) RawLogger {
	return &rawLogger{w: w}
}

// Log emits one line: timestamp, direction, length, hex bytes.
// fromConsole=true means PS3->us, false means us->PS3.
func (r *rawLogger) Log(fromConsole bool, data []byte) {
	if len(data) == 0 || r.w == nil {
		return
	}

	dir := "US->PS3"
	if fromConsole {
		dir = "PS3->US"
	}

	var hexbuf bytes.Buffer
	const hexdigits = "0123456789abcdef"
	for i, b := range data {
		if i > 0 {
			hexbuf.WriteByte(' ')
		}
		hexbuf.WriteByte(hexdigits[b>>4])
		hexbuf.WriteByte(hexdigits[b&0x0f])
	}

	line := fmt.Sprintf("%s %s chunk: %d bytes, hex: %s\n",
		time.Now().Format("2006/01/02 15:04:05.000"),
		dir,
		len(data),
		hexbuf.String())

	r.mu.Lock()
	_, _ = r.w.Write([]byte(line))
	r.mu.Unlock()
}
