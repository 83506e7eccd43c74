package embed

import (
	"context"
	"math"
	"time"
)

// Batching and timeout defaults (spec.md §4.4).
const (
	MinBatchSize = 1

	// MaxBatchSize prevents memory exhaustion on pathologically large batches.
	MaxBatchSize = 256

	// DefaultBatchSize is the pipeline's fixed batch size.
	DefaultBatchSize = 32

	// DefaultWarmTimeout applies once the provider has served a request.
	DefaultWarmTimeout = 30 * time.Second

	// DefaultColdTimeout applies to the first request, covering model load.
	DefaultColdTimeout = 60 * time.Second

	DefaultMaxRetries = 3
)

// DefaultDimensions is the fallback dimension when a provider can't report
// one up front (nomic-embed-text family, grounded on the teacher's default).
const DefaultDimensions = 768

// StaticDimensions is the output width of the hash-based fallback embedder.
const StaticDimensions = 256

// Embedder generates vector embeddings for text, in batches (spec.md §4.4
// trait: `embed(texts) -> Vec<Vec<f32>>`, `dimensions()`, `is_available()`).
type Embedder interface {
	// EmbedBatch returns one vector per input text, in order. Failures
	// within a batch are returned as an error for the whole call; the
	// pipeline (§4.11) is responsible for splitting and retrying at
	// chunk granularity when a batch fails.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is fixed for the lifetime of the instance.
	Dimensions() int

	// ModelName identifies the concrete model, persisted as part of a
	// project's embedding contract (provider, model, dimensions).
	ModelName() string

	// Available reports whether the provider can currently serve requests.
	Available(ctx context.Context) error

	Close() error
}

// Contract is the (provider, model, dimensions) triple persisted on a
// project row at index time (spec.md §4.4: "the chosen provider's
// (name, dimensions) is persisted on the project row and becomes the
// project's embedding contract"). Searches must use an embedder whose
// Contract matches, or fail hard.
type Contract struct {
	Provider   string
	Model      string
	Dimensions int
}

func (c Contract) Matches(other Contract) bool {
	return c.Provider == other.Provider && c.Model == other.Model && c.Dimensions == other.Dimensions
}

// normalizeVector returns a unit-length copy of v (v itself when it is all
// zeros); used by the static and Ollama embedders so cosine and
// dot-product vector indexes agree.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
