package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCmd_Empty(t *testing.T) {
	// Given: a fresh store with no projects
	app := newTestApp(t)
	cmd := newStatusCmd(app)

	// When: running status
	err := cmd.Execute()

	// Then: reports zero projects and chunks
	require.NoError(t, err)
	out := app.Out.(*bytes.Buffer).String()
	assert.Contains(t, out, "projects:  0")
	assert.Contains(t, out, "chunks:    0")
}

func TestStatusCmd_WithProjects(t *testing.T) {
	// Given: two indexed projects with chunks
	app := newTestApp(t)
	seedProject(t, app, "alpha")
	seedProject(t, app, "beta")

	// When: running status
	cmd := newStatusCmd(app)
	err := cmd.Execute()

	// Then: chunk counts are summed across projects
	require.NoError(t, err)
	out := app.Out.(*bytes.Buffer).String()
	assert.Contains(t, out, "projects:  2")
	assert.Contains(t, out, "chunks:    24")
}

func TestStatusCmd_JSON(t *testing.T) {
	// Given: one indexed project and --json
	app := newTestApp(t)
	seedProject(t, app, "alpha")
	app.JSON = true

	// When: running status
	cmd := newStatusCmd(app)
	err := cmd.Execute()

	// Then: output is JSON with the expected keys
	require.NoError(t, err)
	out := app.Out.(*bytes.Buffer).String()
	assert.Contains(t, out, `"projectCount": 1`)
	assert.Contains(t, out, `"totalChunks": 12`)
}
