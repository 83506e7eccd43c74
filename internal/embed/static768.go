package embed

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Static768Dimensions matches the default Ollama embedding model's output
// width, so StaticEmbedder768 can stand in as a same-dimension fallback
// without forcing a re-index (spec.md §4.4: "a declared fallback may be
// used only if dimensions() matches").
const Static768Dimensions = 768

// StaticEmbedder768 is StaticEmbedder's hash-based algorithm at 768
// dimensions instead of 256, for dimension-compatible fallback.
type StaticEmbedder768 struct {
	mu     sync.RWMutex
	closed bool
}

func NewStaticEmbedder768() *StaticEmbedder768 {
	return &StaticEmbedder768{}
}

func (e *StaticEmbedder768) embedOne(text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, Static768Dimensions), nil
	}

	vector := e.generateVector(trimmed)
	return normalizeVector(vector), nil
}

func (e *StaticEmbedder768) generateVector(text string) []float32 {
	vector := make([]float32, Static768Dimensions)

	tokens := filterStopWords(tokenize(text))
	for _, token := range tokens {
		index := hashToIndex(token, Static768Dimensions)
		vector[index] += tokenWeight
	}

	normalized := normalizeForNgrams(text)
	for _, ngram := range extractNgrams(normalized, ngramSize) {
		index := hashToIndex(ngram, Static768Dimensions)
		vector[index] += ngramWeight
	}

	return vector
}

func (e *StaticEmbedder768) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.embedOne(text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		results[i] = emb
	}

	return results, nil
}

func (e *StaticEmbedder768) Dimensions() int { return Static768Dimensions }

func (e *StaticEmbedder768) ModelName() string { return "static768" }

func (e *StaticEmbedder768) Available(_ context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return fmt.Errorf("static768 embedder is closed")
	}
	return nil
}

func (e *StaticEmbedder768) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
