package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ctxhq/ctx/internal/store"
)

func newListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List indexed projects",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := app.Store.ListProjects(cmd.Context())
			if err != nil {
				return storageErr("failed to list projects", err)
			}
			return renderProjectList(app, projects)
		},
	}
	return cmd
}

func renderProjectList(app *App, projects []*store.Project) error {
	if app.JSON {
		return app.outputJSON(projects)
	}

	if len(projects) == 0 {
		fmt.Fprintln(app.Out, "no projects indexed yet. run: ctx index <path>")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tFILES\tCHUNKS\tINDEXED\tPATH")
	for _, p := range projects {
		indexed := "never"
		if !p.IndexedAt.IsZero() {
			indexed = p.IndexedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", p.Name, p.FileCount, p.ChunkCount, indexed, p.Path)
	}
	return w.Flush()
}
