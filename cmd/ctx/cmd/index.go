package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ctxhq/ctx/internal/chunk"
	"github.com/ctxhq/ctx/internal/embed"
	"github.com/ctxhq/ctx/internal/errorkit"
	"github.com/ctxhq/ctx/internal/pipeline"
	"github.com/ctxhq/ctx/internal/preflight"
	"github.com/ctxhq/ctx/internal/scanner"
	"github.com/ctxhq/ctx/internal/ui"
)

type indexOptions struct {
	name        string
	description string
	tags        []string
	extraIgnore []string
	force       bool
}

// newIndexCmd wraps pipeline.Runner in the flags-struct-plus-RunE shape
// every command in this package follows.
func newIndexCmd(app *App) *cobra.Command {
	opts := indexOptions{}

	cmd := &cobra.Command{
		Use:   "index <path>",
		Short: "Index a project's files for retrieval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(args[0])
			if err != nil {
				return errorkit.Validation(fmt.Sprintf("invalid path %q", args[0]), err)
			}

			name := opts.name
			if name == "" {
				name = filepath.Base(root)
			}

			if err := preflight.CheckDiskSpace(app.Dir); err != nil {
				return errorkit.Storage("insufficient disk space to index", err).
					WithSuggestion("free up space under " + app.Dir + " and try again")
			}

			if err := app.retrievalStack(cmd.Context()); err != nil {
				return err
			}

			sc := scanner.New()
			ch := chunk.New(chunk.Options{})
			defer ch.Close()
			runner := pipeline.NewRunner(app.Store, sc, ch, app.Embedder, app.Vectors, app.Lexicon)

			var renderer ui.Renderer
			if !app.JSON {
				renderer = ui.NewRenderer(ui.NewConfig(app.Out,
					ui.WithNoColor(app.NoColor),
					ui.WithProjectDir(root),
				))
				_ = renderer.Start(cmd.Context())
				defer renderer.Stop()
			}

			result, err := runner.Run(cmd.Context(), pipeline.Options{
				ProjectName: name,
				RootPath:    root,
				Description: opts.description,
				Tags:        opts.tags,
				ExtraIgnore: opts.extraIgnore,
				Force:       opts.force,
				OnStageStart: func(stage pipeline.Stage) {
					if renderer != nil {
						renderer.UpdateProgress(ui.ProgressEvent{Stage: uiStageFor(stage)})
					}
				},
				OnProgress: func(p pipeline.Progress) {
					if renderer != nil {
						renderer.UpdateProgress(ui.ProgressEvent{
							Stage:   uiStageFor(p.Stage),
							Current: p.Completed,
							Total:   p.Total,
						})
					}
				},
			})
			if err != nil {
				return err
			}

			if renderer != nil {
				for _, w := range result.Warnings {
					renderer.AddError(ui.ErrorEvent{Err: fmt.Errorf("%s", w), IsWarn: true})
				}
				for _, e := range result.Errors {
					renderer.AddError(ui.ErrorEvent{Err: fmt.Errorf("%s", e)})
				}
				renderer.Complete(ui.CompletionStats{
					Files:    result.FilesScanned,
					Chunks:   result.ChunksStored,
					Duration: result.Duration,
					Errors:   len(result.Errors),
					Warnings: len(result.Warnings),
				})
				return nil
			}

			return renderIndexResult(app, name, result)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "project name (defaults to the directory's base name)")
	cmd.Flags().StringVar(&opts.description, "description", "", "human-readable project description")
	cmd.Flags().StringSliceVar(&opts.tags, "tags", nil, "comma-separated tags used by router heuristics")
	cmd.Flags().StringSliceVar(&opts.extraIgnore, "ignore", nil, "additional gitignore-style patterns to exclude")
	cmd.Flags().BoolVar(&opts.force, "force", false, "re-index an existing project, replacing all chunks")

	return cmd
}

// uiStageFor maps pipeline.Stage's store-checkpoint vocabulary onto
// ui.Stage's display vocabulary; pipeline has no "contextual" or
// "indexing" stage of its own, so those ui.Stage values go unused here.
func uiStageFor(s pipeline.Stage) ui.Stage {
	switch s {
	case pipeline.StageScanning:
		return ui.StageScanning
	case pipeline.StageChunking:
		return ui.StageChunking
	case pipeline.StageEmbedding:
		return ui.StageEmbedding
	case pipeline.StageStoring:
		return ui.StageIndexing
	default:
		return ui.StageComplete
	}
}

// renderIndexResult handles the --json path; text-mode output goes through
// the ui.Renderer built in newIndexCmd's RunE instead.
func renderIndexResult(app *App, name string, result *pipeline.Result) error {
	return app.outputJSON(result)
}

// embedderProviderFor maps ctxconfig's three-way embedding.provider enum
// onto embed.ProviderType's two implemented backends. huggingface and
// openai embedding providers aren't implemented; they fall back to
// ollama the same way embed.ParseProvider's default case does, but we
// surface that explicitly here instead of silently delegating, since a
// config author choosing "huggingface" deserves to know it isn't wired.
func embedderProviderFor(name string) (embed.ProviderType, string) {
	p := embed.ParseProvider(name)
	switch strings.ToLower(name) {
	case "huggingface", "openai":
		return p, fmt.Sprintf("embedding provider %q has no dedicated backend yet; using ollama", name)
	default:
		return p, ""
	}
}
