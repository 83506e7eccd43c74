package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ctxhq/ctx/internal/errorkit"
)

type askOptions struct {
	project string
	topK    int
}

// newAskCmd performs retrieval only. spec.md's Non-goals explicitly
// exclude "LLM provider clients (chat, streaming, tool-calling); the
// core exposes retrieval to them as a tool" — so ask assembles the same
// <sources> context artifact the retrieve_knowledge tool would return and
// prints it for an external collaborator (a human, or an agent piping
// ctx's output into its own LLM call) rather than calling a model itself.
func newAskCmd(app *App) *cobra.Command {
	opts := askOptions{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Assemble retrieved context for a question, for an external LLM to answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.retrievalStack(cmd.Context()); err != nil {
				return err
			}

			question := args[0]
			if question == "" {
				return errorkit.Validation("question must not be empty", nil)
			}

			artifact, _, err := retrieve(cmd.Context(), app, retrieveOptions{
				query:   question,
				project: opts.project,
				topK:    opts.topK,
			})
			if err != nil {
				return err
			}

			if app.JSON {
				return app.outputJSON(map[string]any{
					"question":        question,
					"context":         artifact.Text,
					"sourceCount":     len(artifact.Sources),
					"estimatedTokens": artifact.EstimatedTokens,
					"sources":         artifact.Sources,
				})
			}

			if artifact.Text == "" {
				fmt.Fprintln(app.Out, "no relevant context found")
				return nil
			}
			fmt.Fprintln(app.Out, artifact.Text)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.project, "project", "", "restrict retrieval to one project by name")
	cmd.Flags().IntVar(&opts.topK, "top-k", 0, "number of fused results to feed the assembler (default 10)")

	return cmd
}
