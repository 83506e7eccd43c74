package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ctxhq/ctx/internal/ctxconfig"
	"github.com/ctxhq/ctx/internal/store"
	"github.com/ctxhq/ctx/internal/ui"
)

// newTestApp builds an App with an isolated temp dir, an open SQLite store
// and a static embedder forced via CTX_EMBEDDER, so tests never dial out
// to Ollama.
func newTestApp(t *testing.T) *App {
	t.Helper()
	t.Setenv("CTX_EMBEDDER", "static")

	dir := t.TempDir()
	cfg := ctxconfig.Default()
	cfg.Embedding.Provider = "ollama"

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
	s, err := store.Open(filepath.Join(dir, "data", "context.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	return &App{
		Dir:    dir,
		Config: cfg,
		Store:  s,
		Styles: ui.NoColorStyles(),
		Out:    buf,
		ErrOut: errBuf,
	}
}

func seedProject(t *testing.T, app *App, name string) *store.Project {
	t.Helper()
	p := &store.Project{
		ID:         "proj-" + name,
		Name:       name,
		Path:       t.TempDir(),
		FileCount:  3,
		ChunkCount: 12,
		IndexedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	require.NoError(t, app.Store.UpsertProject(t.Context(), p))
	return p
}
