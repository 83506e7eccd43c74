// Package cmd provides the CLI commands for ctx.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ctxhq/ctx/internal/agent"
	"github.com/ctxhq/ctx/internal/coordinator"
	"github.com/ctxhq/ctx/internal/ctxconfig"
	"github.com/ctxhq/ctx/internal/embed"
	"github.com/ctxhq/ctx/internal/errorkit"
	"github.com/ctxhq/ctx/internal/lexical"
	"github.com/ctxhq/ctx/internal/logging"
	"github.com/ctxhq/ctx/internal/rerank"
	"github.com/ctxhq/ctx/internal/router"
	"github.com/ctxhq/ctx/internal/store"
	"github.com/ctxhq/ctx/internal/ui"
	"github.com/ctxhq/ctx/internal/vectorindex"
	"github.com/ctxhq/ctx/pkg/version"
)

// App carries every command's shared dependencies. Store and Config are
// opened eagerly in PersistentPreRunE; the heavier retrieval stack
// (embedder, indices, coordinator, agent) is built lazily by
// retrievalStack so commands like `config` and `list` never pay for an
// Ollama dial they don't need.
type App struct {
	Dir       string
	Config    *ctxconfig.Config
	Providers ctxconfig.ProviderSet
	Store     store.Store

	Embedder    embed.Embedder
	Vectors     *vectorindex.Manager
	Lexicon     *lexical.Manager
	Coordinator *coordinator.Coordinator
	Reranker    rerank.Reranker
	Classifier  router.Classifier
	Agent       *agent.Service

	JSON    bool
	Verbose bool
	NoColor bool
	Styles  ui.Styles

	Out    io.Writer
	ErrOut io.Writer

	logCleanup func()
}

// outputJSON marshals v as indented JSON to a.Out.
func (a *App) outputJSON(v any) error {
	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// retrievalStack lazily builds the embedder/index/coordinator/agent chain,
// memoizing on a.Agent. The reranker and LLM classifier degrade to nil
// rather than failing the command, per internal/rerank and internal/router's
// own graceful-degradation conventions.
func (a *App) retrievalStack(ctx context.Context) error {
	if a.Agent != nil {
		return nil
	}

	provider, warning := embedderProviderFor(a.Config.Embedding.Provider)
	if warning != "" {
		fmt.Fprintf(a.ErrOut, "%s %s\n", a.Styles.Warning.Render("Warning:"), warning)
	}
	embedder, err := embed.NewEmbedder(ctx, provider, a.Config.Embedding.Model)
	if err != nil {
		return errorkit.Provider("failed to initialize embedder", err).
			WithSuggestion("start ollama, or set CTX_EMBEDDER=static")
	}

	vectors := vectorindex.NewManager(a.Store)
	lexicon := lexical.NewManager(a.Store)
	coord := coordinator.New(a.Store, vectors, lexicon)

	var reranker rerank.Reranker
	if a.Config.Search.Rerank {
		reranker, err = rerank.NewReranker(ctx, rerank.ProviderHTTP, rerank.DefaultConfig())
		if err != nil {
			reranker = nil
		}
	}

	classifier := router.Classifier(router.NewOllamaClassifier(router.DefaultLLMConfig()))

	a.Embedder = embedder
	a.Vectors = vectors
	a.Lexicon = lexicon
	a.Coordinator = coord
	a.Reranker = reranker
	a.Classifier = classifier
	a.Agent = agent.NewService(a.Store, coord, embedder, reranker, classifier, nil)
	return nil
}

// Close releases the store and any built indices. Safe to call even if
// retrievalStack was never invoked.
func (a *App) Close() error {
	if a.logCleanup != nil {
		a.logCleanup()
	}
	if a.Vectors != nil {
		_ = a.Vectors.Close()
	}
	if a.Lexicon != nil {
		_ = a.Lexicon.Close()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// NewRootCmd builds the ctx command tree around a fresh App.
func NewRootCmd() *cobra.Command {
	app := &App{Out: os.Stdout, ErrOut: os.Stderr}
	return newRootCmd(app)
}

func newRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "ctx",
		Short:         "Local-first hybrid retrieval over your codebases and docs",
		Long:          `ctx indexes one or more projects into a local SQLite store and answers queries with hybrid (BM25 + semantic) search, fused by reciprocal rank and optionally reranked.`,
		Version:       version.Short(),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap(cmd.Context(), app)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	root.PersistentFlags().StringVar(&app.Dir, "dir", "", "override ~/.ctx config/data directory")
	root.PersistentFlags().BoolVar(&app.JSON, "json", false, "emit machine-readable JSON instead of text")
	root.PersistentFlags().BoolVar(&app.Verbose, "verbose", false, "include causes and stack-adjacent detail in error output")
	root.PersistentFlags().BoolVar(&app.NoColor, "no-color", false, "disable ANSI color even on a TTY")

	root.AddCommand(
		newIndexCmd(app),
		newListCmd(app),
		newRemoveCmd(app),
		newSearchCmd(app),
		newAskCmd(app),
		newChatCmd(app),
		newCheckCmd(app),
		newEvalCmd(app),
		newStatusCmd(app),
		newConfigCmd(app),
		newVersionCmd(app),
	)

	return root
}

// bootstrap resolves app.Dir, loads config.toml and providers.json, and
// opens the SQLite store. It does not build the retrieval stack; commands
// that need it call app.retrievalStack themselves.
func bootstrap(ctx context.Context, app *App) error {
	if app.Dir == "" {
		dir, err := ctxconfig.DefaultDir()
		if err != nil {
			return err
		}
		app.Dir = dir
	}

	cfg, err := ctxconfig.Load(app.Dir)
	if err != nil {
		return err
	}
	app.Config = cfg

	providers, err := ctxconfig.LoadProviders(app.Dir)
	if err != nil {
		return err
	}
	app.Providers = providers

	noColor := app.NoColor || !isatty.IsTerminal(os.Stdout.Fd()) || os.Getenv("NO_COLOR") != ""
	color.NoColor = noColor
	app.Styles = ui.GetStyles(noColor)

	if app.Verbose {
		logCfg := logging.DebugConfig()
		logCfg.WriteToStderr = false
		logger, cleanup, err := logging.Setup(logCfg)
		if err != nil {
			return errorkit.Storage("failed to set up verbose logging", err)
		}
		slog.SetDefault(logger)
		app.logCleanup = cleanup
	}

	if err := os.MkdirAll(filepath.Join(app.Dir, "data"), 0o755); err != nil {
		return errorkit.Storage("failed to create data directory", err).WithDetail("path", app.Dir)
	}

	dbPath := filepath.Join(app.Dir, "data", "context.db")
	s, err := store.Open(dbPath)
	if err != nil {
		return errorkit.Storage("failed to open context store", err).WithDetail("path", dbPath)
	}
	app.Store = s

	return nil
}

// Execute runs the ctx CLI and returns the process exit code spec.md §6
// assigns to the error's Kind.
func Execute() int {
	app := &App{Out: os.Stdout, ErrOut: os.Stderr}
	root := newRootCmd(app)

	err := root.Execute()
	if err == nil {
		return errorkit.ExitOK
	}
	return renderError(app, err)
}

// renderError prints err per spec.md §7: colored "Error: ... / Hint: ..."
// in text mode, {error, code, hint?} JSON on stderr in --json mode, with
// causes shown only under --verbose. It returns the exit code for Execute.
func renderError(app *App, err error) int {
	ce, ok := err.(*errorkit.CtxError)
	if !ok {
		ce = errorkit.New(errorkit.KindInternal, err.Error(), err)
	}

	if app != nil && app.JSON {
		payload := map[string]any{
			"error": ce.Message,
			"code":  errorkit.ExitCode(ce.Kind),
		}
		if ce.Suggestion != "" {
			payload["hint"] = ce.Suggestion
		}
		enc := json.NewEncoder(os.Stderr)
		enc.SetIndent("", "  ")
		_ = enc.Encode(payload)
	} else {
		styles := ui.NoColorStyles()
		if app != nil {
			styles = app.Styles
		}
		fmt.Fprintf(os.Stderr, "%s %s\n", styles.Error.Render("Error:"), ce.Message)
		if ce.Suggestion != "" {
			fmt.Fprintf(os.Stderr, "%s %s\n", styles.Dim.Render("Hint:"), ce.Suggestion)
		}
		if app != nil && app.Verbose && ce.Cause != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", styles.Dim.Render("Cause:"), ce.Cause)
		}
	}

	return errorkit.ExitCode(ce.Kind)
}
