package coordinator

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ctxhq/ctx/internal/lexical"
	"github.com/ctxhq/ctx/internal/store"
	"github.com/ctxhq/ctx/internal/vectorindex"
)

// Coordinator fans a query out across every targeted project's dense and
// lexical indices and merges the results with two-stage RRF (spec.md
// §4.7).
type Coordinator struct {
	store   store.Store
	vectors *vectorindex.Manager
	lexicon *lexical.Manager

	k int
}

func New(s store.Store, vectors *vectorindex.Manager, lexicon *lexical.Manager) *Coordinator {
	return &Coordinator{store: s, vectors: vectors, lexicon: lexicon, k: DefaultRRFConstant}
}

// projectFuse is one project's stage-1 fused result, carried alongside
// its projectID so stage 2 can attribute origin correctly even for
// projects that returned zero hits.
type projectFuse struct {
	projectID string
	hits      []Hit
}

// Search resolves req's target projects, searches each one's dense and
// lexical indices in parallel, fuses dense+lexical per project (stage 1),
// then fuses the per-project lists across projects (stage 2).
func (c *Coordinator) Search(ctx context.Context, req SearchRequest) ([]Hit, error) {
	topKPerProject := req.TopKPerProject
	if topKPerProject <= 0 {
		topKPerProject = DefaultTopKPerProject
	}
	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	weights := req.Weights
	if weights.BM25 == 0 && weights.Semantic == 0 {
		weights = DefaultWeights()
	}

	projects, err := c.resolveProjects(ctx, req.Filter.ProjectIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve projects: %w", err)
	}

	fused := make([]projectFuse, len(projects))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range projects {
		i, p := i, p
		g.Go(func() error {
			hits, err := c.searchProject(gctx, p, req, topKPerProject, weights)
			if err != nil {
				return fmt.Errorf("search project %s: %w", p.ID, err)
			}
			fused[i] = projectFuse{projectID: p.ID, hits: hits}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stage2 := make([]rankedList, 0, len(fused))
	for _, pf := range fused {
		if len(pf.hits) == 0 {
			continue
		}
		stage2 = append(stage2, hitsToRankedList(pf.projectID, pf.hits, 1.0))
	}
	merged := fuse(stage2, c.k)

	merged = filterByMinScore(merged, req.Filter.MinScore)

	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged, nil
}

// searchProject runs a project's dense and lexical search concurrently
// (grounded on the teacher's Engine.parallelSearch: each branch captures
// its own error so one failing retriever doesn't cancel the other; the
// project only fails if both do) and stage-1 fuses their results.
func (c *Coordinator) searchProject(ctx context.Context, p *store.Project, req SearchRequest, topKPerProject int, weights Weights) ([]Hit, error) {
	var (
		denseResults []vectorindex.Result
		lexResults   []lexical.Result
		denseErr     error
		lexErr       error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		idx, err := c.vectors.Get(gctx, p.ID, p.Dimensions)
		if err != nil {
			denseErr = fmt.Errorf("get vector index: %w", err)
			return nil
		}
		denseResults, denseErr = idx.Search(gctx, req.QueryVector, topKPerProject, toVectorFilter(req.Filter))
		return nil
	})
	g.Go(func() error {
		idx, err := c.lexicon.Get(gctx, p.ID)
		if err != nil {
			lexErr = fmt.Errorf("get lexical index: %w", err)
			return nil
		}
		lexResults, lexErr = idx.Search(gctx, req.Query, topKPerProject, toLexicalFilter(req.Filter))
		return nil
	})
	_ = g.Wait()

	if denseErr != nil && lexErr != nil {
		return nil, fmt.Errorf("dense: %v, lexical: %v", denseErr, lexErr)
	}

	items := make([]rankedItem, 0, len(denseResults))
	for _, r := range denseResults {
		items = append(items, rankedItem{id: r.ID, vecScore: float64(r.Score), isVector: true})
	}
	denseList := rankedList{projectID: p.ID, weight: weights.Semantic, items: items}

	lexItems := make([]rankedItem, 0, len(lexResults))
	for _, r := range lexResults {
		lexItems = append(lexItems, rankedItem{id: r.ID, bm25Score: r.Score, matchedTerms: r.MatchedTerms, isBM25: true})
	}
	lexList := rankedList{projectID: p.ID, weight: weights.BM25, items: lexItems}

	return fuse([]rankedList{denseList, lexList}, c.k), nil
}

// resolveProjects returns the target projects for a query: the named
// projectIDs in sorted order, or every project in the store when
// projectIDs is empty (spec.md §4.7: "an empty projectIds means 'no
// filter'"). Sorted order keeps stage 2's origin-project attribution
// deterministic across runs.
func (c *Coordinator) resolveProjects(ctx context.Context, projectIDs []string) ([]*store.Project, error) {
	all, err := c.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	if len(projectIDs) == 0 {
		sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
		return all, nil
	}

	byID := make(map[string]*store.Project, len(all))
	for _, p := range all {
		byID[p.ID] = p
	}

	wanted := append([]string(nil), projectIDs...)
	sort.Strings(wanted)

	out := make([]*store.Project, 0, len(wanted))
	for _, id := range wanted {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// filterByMinScore re-applies the minScore threshold after fusion
// (spec.md §4.7: "Filters ... re-checked after merge"). fileType,
// language and projectId are already enforced at each retriever, and each
// retriever also applies minScore to its own raw score; the RRF score only
// exists post-fuse, so this re-check compares minScore against it.
func filterByMinScore(hits []Hit, minScore float64) []Hit {
	if minScore <= 0 {
		return hits
	}
	out := hits[:0]
	for _, h := range hits {
		if h.RRFScore >= minScore {
			out = append(out, h)
		}
	}
	return out
}
