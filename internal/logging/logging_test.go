package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewFormats(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, slog.LevelInfo, FormatJSON)
	require.NoError(t, err)
	Component(l, "bridge").Info("hello", "n", 1)
	assert.Contains(t, buf.String(), `"component":"bridge"`)
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	l, err = New(&buf, slog.LevelWarn, FormatText)
	require.NoError(t, err)
	l.Info("dropped")
	assert.Empty(t, buf.String())

	_, err = New(&buf, slog.LevelInfo, "xml")
	assert.Error(t, err)
}

func TestComponentNil(t *testing.T) {
	l := Component(nil, "x")
	require.NotNil(t, l)
	l.Error("not written anywhere")
}
