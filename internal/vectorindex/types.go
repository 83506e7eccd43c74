// Package vectorindex is the per-project lazy ANN index (spec.md §4.5):
// an HNSW graph by default, or a brute-force chromem-go backend for tiny
// projects or when explicitly disabled. Indices are pure caches over the
// store — they may be discarded and rebuilt at any time.
package vectorindex

import (
	"context"
	"fmt"
)

// Config tunes an index build (spec.md §4.5: "M=16, efConstruction=200,
// efSearch=100, cosine distance, float32").
type Config struct {
	Dimensions int

	// Metric is the distance metric: "cos" (cosine) or "l2" (euclidean).
	Metric string

	// M is HNSW max connections per layer.
	M int

	// EfConstruction is HNSW build-time search width. coder/hnsw does not
	// expose a separate construction-time knob (see hnsw.go) — this is
	// carried on Config for the record and for brute-force parity, and
	// documented as a known limitation in DESIGN.md.
	EfConstruction int

	// EfSearch is HNSW query-time search width.
	EfSearch int

	// BruteForce forces the chromem-go brute-force backend regardless of
	// project size — used for tiny projects and explicit `disabled` mode
	// (spec.md §4.5 "brute force for tiny projects or when disabled").
	BruteForce bool
}

// DefaultConfig returns spec.md §4.5's default HNSW parameters for the
// given embedding dimensionality.
func DefaultConfig(dimensions int) Config {
	return Config{
		Dimensions:     dimensions,
		Metric:         "cos",
		M:              16,
		EfConstruction: 200,
		EfSearch:       100,
	}
}

// BruteForceThreshold is the chunk count below which the manager builds a
// brute-force index instead of HNSW — ANN overhead isn't worth it for a
// handful of vectors, and brute force gives exact recall.
const BruteForceThreshold = 500

// Result is a single vector search hit.
type Result struct {
	ID       string
	Distance float32
	Score    float32
}

// Filter restricts search results to chunks whose metadata matches.
// Per spec.md §4.5, each key maps to either an equality value or an
// `{$in: [...]}` set; supported keys are fileType, language, projectId.
type Filter struct {
	FileType  *MatchValue
	Language  *MatchValue
	ProjectID *MatchValue

	// MinScore drops results scoring below this threshold before they ever
	// leave the retriever, so the coordinator's post-merge minScore check
	// (spec.md §4.7) isn't the only place low-scoring hits get cut.
	MinScore float64
}

// MatchValue is either a single equality value or a set of acceptable
// values ($in semantics).
type MatchValue struct {
	Equals string
	In     []string
}

// Matches reports whether v satisfies this MatchValue.
func (m *MatchValue) Matches(v string) bool {
	if m == nil {
		return true
	}
	if len(m.In) > 0 {
		for _, candidate := range m.In {
			if candidate == v {
				return true
			}
		}
		return false
	}
	return m.Equals == v
}

// Meta is the subset of chunk metadata a Filter matches against.
type Meta struct {
	FileType  string
	Language  string
	ProjectID string
}

func (f Filter) matches(m Meta) bool {
	return f.FileType.Matches(m.FileType) && f.Language.Matches(m.Language) && f.ProjectID.Matches(m.ProjectID)
}

// Store is the per-project vector index contract (spec.md §4.5:
// `VectorStore { insert(chunks[]), search(query_vec, topK, filter?) →
// Vec<Hit> }`).
type Store interface {
	Add(ctx context.Context, ids []string, vectors [][]float32, meta []Meta) error
	Search(ctx context.Context, query []float32, topK int, filter Filter) ([]Result, error)
	Delete(ctx context.Context, ids []string) error
	AllIDs() []string
	Contains(id string) bool
	Count() int
	Save(path string) error
	Load(path string) error
	Close() error
}

// ErrDimensionMismatch is returned when an inserted or queried vector's
// length doesn't match the index's configured dimensions.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
