package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_PointsAtDefaultLogPath(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, DefaultLogPath(), cfg.FilePath)
	assert.True(t, cfg.WriteToStderr)
}

func TestDebugConfig_SetsDebugLevel(t *testing.T) {
	cfg := DebugConfig()

	assert.Equal(t, "debug", cfg.Level)
}

func TestSetup_WritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ctx.log")

	cfg := Config{Level: "info", FilePath: path, MaxSizeMB: 10, MaxFiles: 3, WriteToStderr: false}
	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	defer cleanup()

	logger.Info("chunk_embed_failed", slog.String("file", "a.go"))
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "chunk_embed_failed")
	assert.Contains(t, string(data), `"file":"a.go"`)
}

func TestSetup_CreatesLogDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "ctx.log")

	cfg := Config{Level: "info", FilePath: path, MaxSizeMB: 10, MaxFiles: 3}
	_, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	defer cleanup()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestParseLevel_KnownLevels(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
}

func TestParseLevel_UnknownDefaultsToInfo(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, parseLevel("trace"))
}

func TestLevelFromString_MatchesParseLevel(t *testing.T) {
	assert.Equal(t, parseLevel("debug"), LevelFromString("debug"))
}

func TestDefaultLogPath_EndsUnderCtxLogs(t *testing.T) {
	path := DefaultLogPath()

	assert.Equal(t, "ctx.log", filepath.Base(path))
	assert.Equal(t, "logs", filepath.Base(filepath.Dir(path)))
	assert.Equal(t, ".ctx", filepath.Base(filepath.Dir(filepath.Dir(path))))
}

func TestEnsureLogDir_CreatesDirectory(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	require.NoError(t, EnsureLogDir())

	info, err := os.Stat(DefaultLogDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRotatingWriter_RotatesPastMaxSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ctx.log")

	w, err := NewRotatingWriter(path, 0, 2) // maxSizeMB=0 forces rotation on first write
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("first line\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("second line\n"))
	require.NoError(t, err)

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err)
}

func TestRotatingWriter_WriteAppendsToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ctx.log")

	w, err := NewRotatingWriter(path, 10, 3)
	require.NoError(t, err)
	defer w.Close()

	n, err := w.Write([]byte("hello\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestRotatingWriter_SetImmediateSync(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ctx.log")

	w, err := NewRotatingWriter(path, 10, 3)
	require.NoError(t, err)
	defer w.Close()

	w.SetImmediateSync(false)
	_, err = w.Write([]byte("buffered\n"))
	require.NoError(t, err)
	assert.NoError(t, w.Sync())
}
