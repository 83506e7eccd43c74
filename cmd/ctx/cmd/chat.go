package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type chatOptions struct {
	project string
	topK    int
}

// newChatCmd is a REPL wrapper around ask's retrieval-only turn. Like
// ask, it never calls an LLM itself (spec.md's Non-goals exclude LLM
// provider clients); each turn prints the assembled context for the
// external collaborator driving the conversation to read.
func newChatCmd(app *App) *cobra.Command {
	opts := chatOptions{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Multi-turn REPL that assembles retrieved context per question",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.retrievalStack(cmd.Context()); err != nil {
				return err
			}
			return runChatLoop(cmd, app, opts)
		},
	}

	cmd.Flags().StringVar(&opts.project, "project", "", "restrict retrieval to one project by name")
	cmd.Flags().IntVar(&opts.topK, "top-k", 0, "number of fused results to feed the assembler (default 10)")

	return cmd
}

func runChatLoop(cmd *cobra.Command, app *App, opts chatOptions) error {
	fmt.Fprintln(app.Out, "ctx chat — type a question, or :q to exit.")
	scanner := bufio.NewScanner(cmd.InOrStdin())

	for {
		fmt.Fprint(app.Out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == ":q" || line == ":quit" || line == ":exit" {
			return nil
		}

		artifact, _, err := retrieve(cmd.Context(), app, retrieveOptions{
			query:   line,
			project: opts.project,
			topK:    opts.topK,
		})
		if err != nil {
			fmt.Fprintf(app.ErrOut, "%s %s\n", app.Styles.Error.Render("Error:"), err)
			continue
		}

		if artifact.Text == "" {
			fmt.Fprintln(app.Out, "no relevant context found")
			continue
		}
		fmt.Fprintln(app.Out, artifact.Text)
	}
}
