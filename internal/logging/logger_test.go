package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewWithSinks_FansOut(t *testing.T) {
	var text bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "turing.log")

	fileHandler, closer, err := FileHandler(path, slog.LevelDebug)
	require.NoError(t, err)

	logger := NewWithSinks(slog.LevelInfo, &text, fileHandler)
	logger.Debug("only in file")
	logger.Info("machine created", "machine_id", "m-1", "error", errors.New("boom"))
	require.NoError(t, closer.Close())

	assert.Contains(t, text.String(), "machine created")
	assert.Contains(t, text.String(), "err=boom", "error key is renamed")
	assert.NotContains(t, text.String(), "only in file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &entry))
	assert.Equal(t, "m-1", entry["machine_id"])
	assert.Equal(t, "boom", entry["err"])
}
