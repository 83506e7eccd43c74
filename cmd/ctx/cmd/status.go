package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ctxhq/ctx/internal/ui"
)

func newStatusCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show storage and project statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := app.Store.ListProjects(cmd.Context())
			if err != nil {
				return storageErr("failed to list projects", err)
			}

			size, err := app.Store.SizeOnDisk()
			if err != nil {
				return storageErr("failed to read store size", err)
			}

			totalChunks := 0
			for _, p := range projects {
				totalChunks += p.ChunkCount
			}

			if app.JSON {
				return app.outputJSON(map[string]any{
					"projectCount": len(projects),
					"totalChunks": totalChunks,
					"storageBytes": size,
					"dataDir": app.Dir,
				})
			}

			fmt.Fprintf(app.Out, "%s\n", app.Styles.Header.Render("ctx status"))
			fmt.Fprintf(app.Out, "  data dir:  %s\n", app.Dir)
			fmt.Fprintf(app.Out, "  projects:  %d\n", len(projects))
			fmt.Fprintf(app.Out, "  chunks:    %d\n", totalChunks)
			fmt.Fprintf(app.Out, "  on disk:   %s\n", ui.FormatBytes(size))
			return nil
		},
	}
	return cmd
}
