package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelTrace, ParseLevel("trace"))
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestSetupWithLogFileWritesRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, closers, err := Setup("debug", path)
	require.NoError(t, err)
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	logger.Info("hello", "key", "value")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "key=value")
}

func TestLevelFilterOnlyPassesMatchingLevels(t *testing.T) {
	ctx := context.Background()
	base := slog.NewTextHandler(os.Stdout, nil)
	f := LevelFilter{pass: func(l slog.Level) bool { return l >= slog.LevelWarn }, h: base}

	assert.False(t, f.Enabled(ctx, slog.LevelInfo))
	assert.True(t, f.Enabled(ctx, slog.LevelWarn))
}

func TestMultiHandlerEnabledIfAnySubHandlerEnabled(t *testing.T) {
	ctx := context.Background()
	quiet := LevelFilter{pass: func(l slog.Level) bool { return l >= slog.LevelError }, h: slog.NewTextHandler(os.Stdout, nil)}
	verbose := LevelFilter{pass: func(l slog.Level) bool { return true }, h: slog.NewTextHandler(os.Stdout, nil)}
	m := MultiHandler{hs: []slog.Handler{quiet, verbose}}

	assert.True(t, m.Enabled(ctx, slog.LevelInfo))
}
