// Package rerank is the cross-encoder reranking stage (spec.md §4.8):
// scores the top fused candidates against the query, then normalizes the
// raw model scores into a deterministic [0, 1] ranking.
package rerank

import "context"

// DefaultCandidateCount is how many fused results get reranked (spec.md
// §4.8: "top candidateCount (default 50)").
const DefaultCandidateCount = 50

// Epsilon is the minimum score range required to min-max normalize
// (spec.md §4.8). Below it, scores are treated as collapsed and replaced
// with rank-based pseudo-scores instead.
const Epsilon = 1e-6

// Candidate is one (query, document) pair to score, carrying its rank
// prior to reranking for the final tie-break.
type Candidate struct {
	ID        string
	Content   string
	PriorRank int
}

// Result is a single reranked score, in the model's raw [0, 1] output
// range until Normalize replaces it.
type Result struct {
	ID        string
	Score     float64
	PriorRank int
}

// Reranker scores (query, document) pairs with a cross-encoder model.
// Implementations return raw, unnormalized scores — Normalize is applied
// by the caller once, after scoring.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Candidate) ([]Result, error)
	Available(ctx context.Context) bool
	Close() error
}
