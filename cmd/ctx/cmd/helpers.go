package cmd

import (
	"context"

	"github.com/ctxhq/ctx/internal/errorkit"
	"github.com/ctxhq/ctx/internal/store"
)

func storageErr(message string, cause error) error {
	return errorkit.Storage(message, cause)
}

// resolveProject looks a project up by name, returning a validation error
// (not a bare nil) when it doesn't exist, since every command that takes
// a project name wants the same "no such project" message.
func resolveProject(ctx context.Context, app *App, name string) (*store.Project, error) {
	p, err := app.Store.GetProjectByName(ctx, name)
	if err != nil {
		return nil, storageErr("failed to look up project", err)
	}
	if p == nil {
		return nil, errorkit.Validation(
			"no project named "+name, nil,
		).WithSuggestion("run `ctx list` to see indexed projects")
	}
	return p, nil
}
