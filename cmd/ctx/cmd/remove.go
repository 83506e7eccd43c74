package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRemoveCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove an indexed project and its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			project, err := resolveProject(cmd.Context(), app, name)
			if err != nil {
				return err
			}

			if err := app.Store.DeleteProject(cmd.Context(), project.ID); err != nil {
				return storageErr("failed to remove project", err)
			}

			if app.Vectors != nil {
				app.Vectors.Invalidate(project.ID)
			}
			if app.Lexicon != nil {
				app.Lexicon.Invalidate(project.ID)
			}

			if app.JSON {
				return app.outputJSON(map[string]string{"removed": name})
			}
			fmt.Fprintf(app.Out, "%s %s\n", app.Styles.Success.Render("Removed"), name)
			return nil
		},
	}
	return cmd
}
