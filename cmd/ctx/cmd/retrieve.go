package cmd

import (
	"context"

	"github.com/ctxhq/ctx/internal/assembler"
	"github.com/ctxhq/ctx/internal/coordinator"
	"github.com/ctxhq/ctx/internal/errorkit"
	"github.com/ctxhq/ctx/internal/rerank"
)

// retrieveOptions configures a direct coordinator query, bypassing
// agent.Service's router so search/ask can honor an explicit --project
// or --type filter the agent tool's fixed Input schema has no room for.
type retrieveOptions struct {
	query     string
	project   string
	fileType  string
	topK      int
	budget    int
}

// retrieve runs Coordinator.Search -> resolve -> rerank -> Assemble,
// the same chain agent.Service.retrieve runs internally (spec.md §4.14),
// generalized here to accept an explicit project/type filter.
func retrieve(ctx context.Context, app *App, opts retrieveOptions) (assembler.Artifact, []coordinator.Hit, error) {
	var filter coordinator.Filter
	if opts.project != "" {
		p, err := resolveProject(ctx, app, opts.project)
		if err != nil {
			return assembler.Artifact{}, nil, err
		}
		filter.ProjectIDs = []string{p.ID}
	}
	if opts.fileType != "" {
		filter.FileType = &coordinator.MatchValue{Equals: opts.fileType}
	}

	vectors, err := app.Embedder.EmbedBatch(ctx, []string{opts.query})
	if err != nil {
		return assembler.Artifact{}, nil, errorkit.Provider("failed to embed query", err)
	}
	vec := vectors[0]

	topK := opts.topK
	if topK <= 0 {
		topK = coordinator.DefaultTopK
	}

	hits, err := app.Coordinator.Search(ctx, coordinator.SearchRequest{
		Query:          opts.query,
		QueryVector:    vec,
		Filter:         filter,
		Weights:        coordinator.DefaultWeights(),
		TopKPerProject: coordinator.DefaultTopKPerProject,
		TopK:           topK,
	})
	if err != nil {
		return assembler.Artifact{}, nil, errorkit.Storage("search failed", err)
	}

	resolved, err := resolveHits(ctx, app, hits)
	if err != nil {
		return assembler.Artifact{}, nil, errorkit.Storage("failed to resolve search results", err)
	}

	if app.Reranker != nil && app.Reranker.Available(ctx) {
		resolved = rerankHits(ctx, app, opts.query, resolved)
	}

	budget := opts.budget
	if budget <= 0 {
		budget = assembler.DefaultTokenBudget
	}
	artifact := assembler.Assemble(resolved, budget, assembler.PolicySandwich)
	return artifact, hits, nil
}

func resolveHits(ctx context.Context, app *App, hits []coordinator.Hit) ([]assembler.Hit, error) {
	out := make([]assembler.Hit, 0, len(hits))
	for _, h := range hits {
		c, err := app.Store.GetChunk(ctx, h.ChunkID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			continue
		}
		out = append(out, assembler.Hit{
			ChunkID:   c.ID,
			FilePath:  c.FilePath,
			Content:   c.Content,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
			Language:  c.Language,
			FileType:  string(c.FileType),
			Score:     h.RRFScore,
		})
	}
	return out, nil
}

func rerankHits(ctx context.Context, app *App, query string, hits []assembler.Hit) []assembler.Hit {
	candidates := make([]rerank.Candidate, len(hits))
	byID := make(map[string]assembler.Hit, len(hits))
	for i, h := range hits {
		candidates[i] = rerank.Candidate{ID: h.ChunkID, Content: h.Content, PriorRank: i}
		byID[h.ChunkID] = h
	}

	results, err := app.Reranker.Rerank(ctx, query, candidates)
	if err != nil {
		return hits
	}

	normalized := rerank.Normalize(results)
	reordered := make([]assembler.Hit, 0, len(normalized))
	for _, r := range normalized {
		h, ok := byID[r.ID]
		if !ok {
			continue
		}
		h.Score = r.Score
		reordered = append(reordered, h)
	}
	return reordered
}
