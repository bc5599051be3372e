// Package logging provides the application's slog.Logger setup and a
// hex-dump raw packet logger, shared by every transport.
//
// When a log file path is not given, logs go to stdout for non-error
// levels and to stderr for errors, so stderr redirection alone surfaces
// failures without splitting normal logs across two streams.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// LevelTrace sits below Debug for per-packet / per-tick tracing that would
// otherwise drown out everything else at Debug.
const LevelTrace slog.Level = -8

// ParseLevel maps the CLI/config log-level string onto an slog.Level.
func ParseLevel(s string) slog.Level {
	switch s {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MultiHandler fans a record out to every handler in hs.
type MultiHandler struct{ hs []slog.Handler }

func (m MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.hs {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.hs {
		_ = h.Handle(ctx, r)
	}
	return nil
}

func (m MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(m.hs))
	for i, h := range m.hs {
		out[i] = h.WithAttrs(attrs)
	}
	return MultiHandler{hs: out}
}

func (m MultiHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(m.hs))
	for i, h := range m.hs {
		out[i] = h.WithGroup(name)
	}
	return MultiHandler{hs: out}
}

// LevelFilter wraps a handler so only records matching pass reach it.
type LevelFilter struct {
	pass func(slog.Level) bool
	h    slog.Handler
}

func (f LevelFilter) Enabled(ctx context.Context, level slog.Level) bool {
	if !f.pass(level) {
		return false
	}
	return f.h.Enabled(ctx, level)
}

func (f LevelFilter) Handle(ctx context.Context, r slog.Record) error {
	if !f.pass(r.Level) {
		return nil
	}
	return f.h.Handle(ctx, r)
}

func (f LevelFilter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return LevelFilter{pass: f.pass, h: f.h.WithAttrs(attrs)}
}

func (f LevelFilter) WithGroup(name string) slog.Handler {
	return LevelFilter{pass: f.pass, h: f.h.WithGroup(name)}
}

// newConsoleHandler picks text output for an interactive terminal and
// JSON for a redirected/piped stream, so a systemd journal or log
// aggregator sees structured records while an interactive session sees
// the readable form.
func newConsoleHandler(w *os.File, opts *slog.HandlerOptions) slog.Handler {
	if term.IsTerminal(int(w.Fd())) {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// Setup builds a slog.Logger with console and optional file handlers. The
// returned closers must be closed on shutdown.
func Setup(level, logFile string) (*slog.Logger, []io.Closer, error) {
	lvl := ParseLevel(level)
	var handlers []slog.Handler

	if logFile == "" {
		stdoutHandler := newConsoleHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
		handlers = append(handlers, LevelFilter{pass: func(l slog.Level) bool { return l < slog.LevelError }, h: stdoutHandler})

		stderrHandler := newConsoleHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})
		handlers = append(handlers, LevelFilter{pass: func(l slog.Level) bool { return l >= slog.LevelError }, h: stderrHandler})
	} else {
		handlers = append(handlers, newConsoleHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	}

	var closers []io.Closer
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, f)
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: lvl}))
	}

	logger := slog.New(MultiHandler{hs: handlers})
	return logger, closers, nil
}
