package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCmd_Empty(t *testing.T) {
	// Given: an app with no indexed projects
	app := newTestApp(t)
	cmd := newListCmd(app)

	// When: running list
	err := cmd.Execute()

	// Then: prints the empty-state hint rather than an empty table
	require.NoError(t, err)
	assert.Contains(t, app.Out.(*bytes.Buffer).String(), "no projects indexed yet")
}

func TestListCmd_WithProjects(t *testing.T) {
	// Given: two indexed projects
	app := newTestApp(t)
	seedProject(t, app, "alpha")
	seedProject(t, app, "beta")

	// When: running list
	cmd := newListCmd(app)
	err := cmd.Execute()

	// Then: both names show up in the rendered table
	require.NoError(t, err)
	out := app.Out.(*bytes.Buffer).String()
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "beta")
	assert.Contains(t, out, "NAME")
}

func TestListCmd_JSON(t *testing.T) {
	// Given: one indexed project and --json
	app := newTestApp(t)
	seedProject(t, app, "alpha")
	app.JSON = true

	// When: running list
	cmd := newListCmd(app)
	err := cmd.Execute()

	// Then: output is JSON containing the project name
	require.NoError(t, err)
	assert.Contains(t, app.Out.(*bytes.Buffer).String(), `"Name": "alpha"`)
}
