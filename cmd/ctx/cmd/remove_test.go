package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveCmd_Unknown(t *testing.T) {
	// Given: an app with no projects
	app := newTestApp(t)
	cmd := newRemoveCmd(app)
	cmd.SetArgs([]string{"ghost"})

	// When: removing a project that was never indexed
	err := cmd.Execute()

	// Then: returns the shared "no project named" validation error
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no project named ghost")
}

func TestRemoveCmd_Existing(t *testing.T) {
	// Given: an indexed project
	app := newTestApp(t)
	seedProject(t, app, "alpha")

	// When: removing it by name
	cmd := newRemoveCmd(app)
	cmd.SetArgs([]string{"alpha"})
	err := cmd.Execute()

	// Then: it disappears from the store
	require.NoError(t, err)
	assert.Contains(t, app.Out.(*bytes.Buffer).String(), "Removed")

	got, err := app.Store.GetProjectByName(t.Context(), "alpha")
	require.NoError(t, err)
	assert.Nil(t, got)
}
