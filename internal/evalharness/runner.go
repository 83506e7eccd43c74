package evalharness

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ctxhq/ctx/internal/coordinator"
	"github.com/ctxhq/ctx/internal/embed"
	"github.com/ctxhq/ctx/internal/errorkit"
	"github.com/ctxhq/ctx/internal/store"
)

// Runner executes golden-dataset eval runs against the full retrieval
// pipeline (spec.md §4.12). Grounded on internal/coordinator's Search as
// the "full retrieval pipeline" entry point: each golden query is
// embedded, fanned out across the project's dense/lexical indices, fused,
// and the fused chunk IDs resolved back to file paths for scoring.
type Runner struct {
	store       store.Store
	coordinator *coordinator.Coordinator
	embedder    embed.Embedder
}

func NewRunner(s store.Store, c *coordinator.Coordinator, embedder embed.Embedder) *Runner {
	return &Runner{store: s, coordinator: c, embedder: embedder}
}

// Run validates and filters the dataset, executes every entry's query,
// scores it, persists an eval_run with its eval_result rows, and compares
// against the project's previous run (spec.md §4.12 steps 1-8).
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*store.EvalRun, []Delta, error) {
	if err := ValidateDataset(opts.Dataset); err != nil {
		return nil, nil, err
	}

	entries := FilterByTags(opts.Dataset.Entries, opts.Tags)
	topK := opts.topK()

	run := &store.EvalRun{
		ID:             uuid.NewString(),
		ProjectID:      opts.ProjectID,
		Timestamp:      time.Now().UTC(),
		DatasetVersion: opts.Dataset.Version,
		QueryCount:     len(entries),
		Status:         "running",
	}
	if err := r.store.InsertEvalRun(ctx, run); err != nil {
		return nil, nil, err
	}

	previous, _ := r.store.GetLatestEvalRun(ctx, opts.ProjectID, run.Timestamp)

	results := make([]EntryResult, 0, len(entries))
	for _, entry := range entries {
		res := r.runEntry(ctx, entry, opts.ProjectID, topK)
		results = append(results, res)
		if res.Err != nil {
			_ = r.store.UpdateEvalRunStatus(ctx, run.ID, "failed")
			return nil, nil, errorkit.Eval(errorkit.EvalRunFailed, "eval entry failed: "+entry.ID, res.Err)
		}
	}

	summary := aggregate(results)
	if err := r.store.InsertEvalResults(ctx, toStoreResults(run.ID, results)); err != nil {
		_ = r.store.UpdateEvalRunStatus(ctx, run.ID, "failed")
		return nil, nil, err
	}
	if err := r.store.UpdateEvalRun(ctx, run.ID, summary.asMap(), ""); err != nil {
		return nil, nil, err
	}
	run.AggregateMetrics = summary.asMap()
	run.Status = "completed"

	var deltas []Delta
	if previous != nil {
		deltas = compareRuns(previous.AggregateMetrics, run.AggregateMetrics)
	}

	return run, deltas, nil
}

func (r *Runner) runEntry(ctx context.Context, entry GoldenEntry, projectID string, topK int) EntryResult {
	start := time.Now()

	vec, err := r.embedder.EmbedBatch(ctx, []string{entry.Query})
	if err != nil {
		return EntryResult{Entry: entry, Err: err}
	}

	hits, err := r.coordinator.Search(ctx, coordinator.SearchRequest{
		Query:          entry.Query,
		QueryVector:    vec[0],
		Filter:         coordinator.Filter{ProjectIDs: []string{projectID}},
		TopKPerProject: topK,
		TopK:           topK,
	})
	if err != nil {
		return EntryResult{Entry: entry, Err: err}
	}

	paths := make([]string, 0, len(hits))
	for _, h := range hits {
		c, err := r.store.GetChunk(ctx, h.ChunkID)
		if err != nil || c == nil {
			continue
		}
		paths = append(paths, c.FilePath)
	}
	paths = dedupePreservingOrder(paths)

	metrics := computeMetrics(paths, entry.ExpectedFilePaths, topK)

	return EntryResult{
		Entry:          entry,
		RetrievedFiles: paths,
		LatencyMS:      time.Since(start).Milliseconds(),
		Metrics:        metrics,
		Passed:         metrics.HitRate > 0,
	}
}

func toStoreResults(runID string, results []EntryResult) []*store.EvalResult {
	out := make([]*store.EvalResult, 0, len(results))
	for _, r := range results {
		out = append(out, &store.EvalResult{
			ID:             uuid.NewString(),
			EvalRunID:      runID,
			Query:          r.Entry.Query,
			ExpectedFiles:  r.Entry.ExpectedFilePaths,
			RetrievedFiles: r.RetrievedFiles,
			LatencyMS:      r.LatencyMS,
			PerQueryMetrics: map[string]float64{
				"reciprocal_rank": r.Metrics.ReciprocalRank,
				"precision":       r.Metrics.PrecisionAtK,
				"recall":          r.Metrics.RecallAtK,
				"hit_rate":        r.Metrics.HitRate,
				"ndcg":            r.Metrics.NDCG,
				"ap":              r.Metrics.AP,
			},
			Passed: r.Passed,
		})
	}
	return out
}

// compareRuns computes spec.md §4.12 step 8's per-metric deltas against
// the previous run for the same project.
func compareRuns(previous, current map[string]float64) []Delta {
	deltas := make([]Delta, 0, len(current))
	for metric, curVal := range current {
		prevVal := previous[metric]
		deltas = append(deltas, Delta{
			Metric:   metric,
			Previous: prevVal,
			Current:  curVal,
			Change:   curVal - prevVal,
		})
	}
	return deltas
}
