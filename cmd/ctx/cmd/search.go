package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ctxhq/ctx/internal/assembler"
	"github.com/ctxhq/ctx/internal/errorkit"
)

type searchOptions struct {
	project  string
	fileType string
	topK     int
}

// newSearchCmd is retrieval only (spec.md §6: "search ... retrieval
// only"): the retrieval chain still assembles a context artifact, but
// search prints only its ranked sources, not the context blob ask prints.
func newSearchCmd(app *App) *cobra.Command {
	opts := searchOptions{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed projects without assembling LLM context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.retrievalStack(cmd.Context()); err != nil {
				return err
			}

			query := args[0]
			if query == "" {
				return errorkit.Validation("query must not be empty", nil)
			}

			artifact, hits, err := retrieve(cmd.Context(), app, retrieveOptions{
				query:    query,
				project:  opts.project,
				fileType: opts.fileType,
				topK:     opts.topK,
			})
			if err != nil {
				return err
			}

			return renderSearchResults(app, artifact, len(hits))
		},
	}

	cmd.Flags().StringVar(&opts.project, "project", "", "restrict search to one project by name")
	cmd.Flags().StringVar(&opts.fileType, "type", "", "restrict search to one file type (code|docs|config|style|data)")
	cmd.Flags().IntVar(&opts.topK, "top-k", 0, "number of fused results to return (default 10)")

	return cmd
}

func renderSearchResults(app *App, artifact assembler.Artifact, hitCount int) error {
	if app.JSON {
		return app.outputJSON(map[string]any{
			"sourceCount": len(artifact.Sources),
			"sources":     artifact.Sources,
		})
	}

	if len(artifact.Sources) == 0 {
		fmt.Fprintln(app.Out, "no results")
		return nil
	}

	for _, s := range artifact.Sources {
		fmt.Fprintf(app.Out, "%s %s%s%s  %s  score=%.3f\n",
			app.Styles.Label.Render(fmt.Sprintf("[%d]", s.Index)),
			app.Styles.Dim.Render(s.FilePath), app.Styles.Dim.Render(":"), s.LineRange,
			s.FileType, s.Score)
	}
	return nil
}
