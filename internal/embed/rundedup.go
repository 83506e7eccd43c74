package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/maypok86/otter"
)

// DefaultRunDedupCapacity bounds the run-scoped dedup cache by estimated
// byte weight, not entry count — a 64MB budget comfortably holds the
// embeddings of a single large indexing run.
const DefaultRunDedupCapacity = 64 * 1024 * 1024

// RunDedupEmbedder wraps an Embedder with a cache scoped to one indexing
// run: identical chunk content (license headers, boilerplate, generated
// code) is embedded once even across many EmbedBatch calls within the run
// (spec.md §4.4: "deduplicates identical inputs within a single batch call
// and across calls within a run"). Construct a fresh instance per run and
// discard it afterward — unlike CachedEmbedder, this cache is not meant to
// outlive the pipeline invocation that created it.
//
// Grounded on mvp-joe-project-cortex's otter.Cache usage in
// internal/graph/searcher.go (weight-based Builder, Cost/Get/Set/Close).
type RunDedupEmbedder struct {
	inner Embedder
	cache otter.Cache[string, []float32]
}

func NewRunDedupEmbedder(inner Embedder, capacityBytes int) (*RunDedupEmbedder, error) {
	if capacityBytes <= 0 {
		capacityBytes = DefaultRunDedupCapacity
	}
	cache, err := otter.MustBuilder[string, []float32](capacityBytes).
		Cost(func(_ string, v []float32) uint32 { return uint32(len(v)*4) + 32 }).
		Build()
	if err != nil {
		return nil, err
	}
	return &RunDedupEmbedder{inner: inner, cache: cache}, nil
}

func (r *RunDedupEmbedder) dedupKey(text string) string {
	combined := text + "\x00" + r.inner.ModelName()
	sum := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(sum[:])
}

func (r *RunDedupEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		if vec, ok := r.cache.Get(r.dedupKey(text)); ok {
			results[i] = vec
		} else {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, text)
		}
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	embedded, err := r.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, idx := range missIdx {
		results[idx] = embedded[j]
		r.cache.Set(r.dedupKey(texts[idx]), embedded[j])
	}

	return results, nil
}

func (r *RunDedupEmbedder) Dimensions() int { return r.inner.Dimensions() }

func (r *RunDedupEmbedder) ModelName() string { return r.inner.ModelName() }

func (r *RunDedupEmbedder) Available(ctx context.Context) error { return r.inner.Available(ctx) }

// Close closes the dedup cache and the inner embedder. Call this once at
// the end of the indexing run that created this wrapper.
func (r *RunDedupEmbedder) Close() error {
	r.cache.Close()
	return r.inner.Close()
}
