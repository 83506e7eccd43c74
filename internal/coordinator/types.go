// Package coordinator is the multi-project query fan-out (spec.md §4.7):
// for each query, resolve the target projects, fan out dense and lexical
// searches in parallel, and merge with two-stage Reciprocal Rank Fusion.
package coordinator

import (
	"github.com/ctxhq/ctx/internal/lexical"
	"github.com/ctxhq/ctx/internal/vectorindex"
)

// Weights controls each retriever's contribution to the per-project RRF
// fuse (spec.md §4.7 stage 1).
type Weights struct {
	BM25     float64
	Semantic float64
}

// DefaultWeights returns the default BM25/semantic split.
func DefaultWeights() Weights {
	return Weights{BM25: 0.35, Semantic: 0.65}
}

const (
	// DefaultTopKPerProject is how many candidates each retriever returns
	// per project before fusion (spec.md §4.7).
	DefaultTopKPerProject = 20
	// DefaultTopK is how many fused results are returned after the final
	// merge (spec.md §4.7).
	DefaultTopK = 10
)

// MatchValue is either a single equality value or a set of acceptable
// values ($in semantics), the coordinator's copy of vectorindex.MatchValue
// / lexical.MatchValue so callers don't need to import either subpackage
// just to build a filter.
type MatchValue struct {
	Equals string
	In     []string
}

// Filter restricts which chunks a query considers (spec.md §4.7:
// "fileType, language, projectIds, minScore ... applied at each retriever
// and re-checked after merge"). An empty ProjectIDs means no project
// restriction — search every project the caller has access to.
type Filter struct {
	FileType  *MatchValue
	Language  *MatchValue
	ProjectIDs []string
	MinScore  float64
}

// Hit is a single fused search result, attributed to its origin project.
type Hit struct {
	ChunkID   string
	ProjectID string

	RRFScore float64
	// MinRank is the lowest (best) rank this chunk achieved across any
	// list it was fused from, used as the spec's tie-break (spec.md §4.7:
	// "ties broken by lower minimum rank, then by lexicographic id").
	MinRank int

	BM25Score    float64
	BM25Rank     int
	VecScore     float64
	VecRank      int
	MatchedTerms []string
}

// SearchRequest is one coordinator query. QueryVector is precomputed by
// the caller (the router/CLI layer owns the embedder) so the coordinator
// itself has no embedding dependency.
type SearchRequest struct {
	Query       string
	QueryVector []float32

	Filter Filter
	Weights Weights

	TopKPerProject int
	TopK           int
}

func toVectorFilter(f Filter) vectorindex.Filter {
	return vectorindex.Filter{
		FileType: toVectorMatchValue(f.FileType),
		Language: toVectorMatchValue(f.Language),
		MinScore: f.MinScore,
	}
}

func toVectorMatchValue(mv *MatchValue) *vectorindex.MatchValue {
	if mv == nil {
		return nil
	}
	return &vectorindex.MatchValue{Equals: mv.Equals, In: mv.In}
}

func toLexicalFilter(f Filter) lexical.Filter {
	return lexical.Filter{
		FileType: toLexicalMatchValue(f.FileType),
		Language: toLexicalMatchValue(f.Language),
		MinScore: f.MinScore,
	}
}

func toLexicalMatchValue(mv *MatchValue) *lexical.MatchValue {
	if mv == nil {
		return nil
	}
	return &lexical.MatchValue{Equals: mv.Equals, In: mv.In}
}
