package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ctxhq/ctx/internal/errorkit"
	"github.com/ctxhq/ctx/internal/scanner"
	"github.com/ctxhq/ctx/internal/store"
)

// checkResult mirrors spec.md §6's check severities: missing path and no
// chunks are errors (exit 1), model mismatch and staleness are warnings.
type checkResult struct {
	Name       string   `json:"name"`
	PathExists bool     `json:"pathExists"`
	ChunkCount int      `json:"chunkCount"`
	Errors     []string `json:"errors,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

func newCheckCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <name>",
		Short: "Check an indexed project's health",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := resolveProject(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}

			result := checkResult{Name: project.Name}

			_, statErr := os.Stat(project.Path)
			result.PathExists = statErr == nil
			if !result.PathExists {
				result.Errors = append(result.Errors, fmt.Sprintf("project path %q no longer exists", project.Path))
			}

			count, err := app.Store.CountChunks(cmd.Context(), project.ID)
			if err != nil {
				return storageErr("failed to count chunks", err)
			}
			result.ChunkCount = count
			if count == 0 {
				result.Errors = append(result.Errors, "project has no indexed chunks")
			}

			if err := app.retrievalStack(cmd.Context()); err == nil && app.Embedder != nil {
				if project.EmbeddingModel != "" && project.EmbeddingModel != app.Embedder.ModelName() {
					result.Warnings = append(result.Warnings, fmt.Sprintf(
						"indexed with model %q, current default is %q", project.EmbeddingModel, app.Embedder.ModelName()))
				}
			}

			if result.PathExists {
				newest, walkErr := newestModTime(project.Path)
				if walkErr == nil && newest.After(project.UpdatedAt) {
					result.Warnings = append(result.Warnings, fmt.Sprintf(
						"files under %q changed after the last index (%s); re-index with --force",
						project.Path, project.UpdatedAt.Format("2006-01-02 15:04")))
				}
			}

			result.Warnings = append(result.Warnings, checkIndexDrift(cmd.Context(), app, project)...)

			if result.PathExists {
				result.Warnings = append(result.Warnings, checkGitignoreStaleness(cmd.Context(), app, project)...)
			}

			if app.JSON {
				if err := app.outputJSON(result); err != nil {
					return err
				}
			} else {
				renderCheckResult(app, result)
			}

			if len(result.Errors) > 0 {
				return errorkit.New(errorkit.KindInternal, fmt.Sprintf("project %q failed health check", project.Name), nil)
			}
			return nil
		},
	}
	return cmd
}

func renderCheckResult(app *App, r checkResult) {
	status := app.Styles.Success.Render("OK")
	if len(r.Errors) > 0 {
		status = app.Styles.Error.Render("FAIL")
	} else if len(r.Warnings) > 0 {
		status = app.Styles.Warning.Render("WARN")
	}
	fmt.Fprintf(app.Out, "%s %s (%d chunks)\n", status, r.Name, r.ChunkCount)
	for _, e := range r.Errors {
		fmt.Fprintf(app.Out, "  %s %s\n", app.Styles.Error.Render("error:"), e)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(app.Out, "  %s %s\n", app.Styles.Warning.Render("warn:"), w)
	}
}

// checkIndexDrift compares AllIDs() across the vector index, the lexical
// index, and the store's chunk table, surfacing any disagreement as a
// warning. The vector/lexical managers build their indices fresh from the
// store on first Get, so in this CLI's single-invocation lifetime the three
// sets will usually agree; the check still runs so a discrepancy introduced
// by a partial write or a corrupted on-disk index is never silently missed.
func checkIndexDrift(ctx context.Context, app *App, project *store.Project) []string {
	if err := app.retrievalStack(ctx); err != nil || app.Vectors == nil || app.Lexicon == nil {
		return nil
	}

	storeIDs, err := chunkIDSet(ctx, app.Store, project.ID)
	if err != nil {
		return []string{fmt.Sprintf("drift check: failed to list store chunks: %v", err)}
	}

	vecIdx, err := app.Vectors.Get(ctx, project.ID, project.Dimensions)
	if err != nil {
		return []string{fmt.Sprintf("drift check: failed to load vector index: %v", err)}
	}
	vectorIDs := toSet(vecIdx.AllIDs())

	lexIdx, err := app.Lexicon.Get(ctx, project.ID)
	if err != nil {
		return []string{fmt.Sprintf("drift check: failed to load lexical index: %v", err)}
	}
	lexicalIDs, err := lexIdx.AllIDs()
	if err != nil {
		return []string{fmt.Sprintf("drift check: failed to list lexical index ids: %v", err)}
	}

	var warnings []string
	if missing := setDiff(storeIDs, vectorIDs); len(missing) > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"vector index is missing %d chunk(s) present in the store", len(missing)))
	}
	if extra := setDiff(vectorIDs, storeIDs); len(extra) > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"vector index has %d chunk(s) no longer present in the store", len(extra)))
	}
	if missing := setDiff(storeIDs, toSet(lexicalIDs)); len(missing) > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"lexical index is missing %d chunk(s) present in the store", len(missing)))
	}
	if extra := setDiff(toSet(lexicalIDs), storeIDs); len(extra) > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"lexical index has %d chunk(s) no longer present in the store", len(extra)))
	}
	return warnings
}

// checkGitignoreStaleness re-scans the project root with its recorded
// ignore patterns and reports any currently-indexed file that the current
// gitignore rules would now exclude. FileHash rows aren't populated by the
// indexing pipeline (there is no incremental-reindex path that writes
// them), so this diffs against store.Chunk.FilePath instead — the field
// the pipeline does populate for every indexed chunk.
func checkGitignoreStaleness(ctx context.Context, app *App, project *store.Project) []string {
	indexedPaths, err := chunkFilePathSet(ctx, app.Store, project.ID)
	if err != nil || len(indexedPaths) == 0 {
		return nil
	}

	scanResult, err := scanner.New().Scan(ctx, project.Path, scanner.Options{
		ExtraIgnore: project.IgnorePatterns,
	})
	if err != nil {
		return nil
	}

	surviving := make(map[string]struct{}, len(scanResult.Files))
	for _, f := range scanResult.Files {
		surviving[f.RelPath] = struct{}{}
	}

	var stale []string
	for path := range indexedPaths {
		if _, ok := surviving[path]; !ok {
			if _, err := os.Stat(filepath.Join(project.Path, path)); err != nil {
				continue
			}
			stale = append(stale, path)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	sort.Strings(stale)

	const showMax = 5
	shown := stale
	if len(shown) > showMax {
		shown = shown[:showMax]
	}
	return []string{fmt.Sprintf(
		"%d indexed file(s) are now excluded by .gitignore and are stale: %v; re-index with --force",
		len(stale), shown)}
}

func chunkIDSet(ctx context.Context, s store.Store, projectID string) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	batches, err := s.IterChunksBatched(ctx, projectID, 1000)
	if err != nil {
		return nil, err
	}
	for batch := range batches {
		if batch.Err != nil {
			return nil, batch.Err
		}
		for _, c := range batch.Chunks {
			ids[c.ID] = struct{}{}
		}
	}
	return ids, nil
}

func chunkFilePathSet(ctx context.Context, s store.Store, projectID string) (map[string]struct{}, error) {
	paths := make(map[string]struct{})
	batches, err := s.IterChunksBatched(ctx, projectID, 1000)
	if err != nil {
		return nil, err
	}
	for batch := range batches {
		if batch.Err != nil {
			return nil, batch.Err
		}
		for _, c := range batch.Chunks {
			paths[c.FilePath] = struct{}{}
		}
	}
	return paths, nil
}

func toSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func setDiff(a, b map[string]struct{}) []string {
	var out []string
	for id := range a {
		if _, ok := b[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// newestModTime walks root and returns the most recent modification time
// among its files, bounding the staleness check to a plain directory walk
// rather than reusing the full gitignore-aware scanner.
func newestModTime(root string) (time.Time, error) {
	var newest time.Time
	err := filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if fi.IsDir() {
			if fi.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if fi.ModTime().After(newest) {
			newest = fi.ModTime()
		}
		return nil
	})
	return newest, err
}
