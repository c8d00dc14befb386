package logs

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanout(t *testing.T) {
	var term, file bytes.Buffer
	log := New(&term, &file, slog.LevelInfo)

	log.Info("epoch end", "epoch", 3, "loss", 0.25)

	assert.Contains(t, term.String(), `msg="epoch end"`)
	assert.Contains(t, term.String(), "epoch=3")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &rec))
	assert.Equal(t, "epoch end", rec["msg"])
	assert.Equal(t, 0.25, rec["loss"])
}

func TestLevelFilter(t *testing.T) {
	var term bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	log := New(&term, nil, level)

	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, term.String(), "hidden")
	assert.Contains(t, term.String(), "shown")

	level.Set(slog.LevelDebug)
	log.Debug("now visible")
	assert.Contains(t, term.String(), "now visible")
}

func TestOpenFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	for i := 0; i < 2; i++ {
		f, err := OpenFile(path)
		require.NoError(t, err)
		New(&bytes.Buffer{}, f, slog.LevelInfo).Info("line")
		require.NoError(t, f.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), `"msg":"line"`))

	_, err = OpenFile(filepath.Join(t.TempDir(), "no", "such", "dir.log"))
	assert.Error(t, err)
}
