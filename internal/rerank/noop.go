package rerank

import "context"

// NoOpReranker returns candidates in their prior order, assigning
// decreasing raw scores so Normalize's min-max path preserves that order
// when no cross-encoder is configured or reachable.
type NoOpReranker struct{}

var _ Reranker = (*NoOpReranker)(nil)

func (NoOpReranker) Rerank(_ context.Context, _ string, candidates []Candidate) ([]Result, error) {
	results := make([]Result, len(candidates))
	for i, c := range candidates {
		results[i] = Result{
			ID:        c.ID,
			Score:     1.0 - float64(i)*0.001,
			PriorRank: c.PriorRank,
		}
	}
	return results, nil
}

func (NoOpReranker) Available(_ context.Context) bool { return true }

func (NoOpReranker) Close() error { return nil }
