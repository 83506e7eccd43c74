package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDedupEmbedderDeduplicatesWithinBatch(t *testing.T) {
	inner := &countingEmbedder{Embedder: NewStaticEmbedder768()}
	dedup, err := NewRunDedupEmbedder(inner, 0)
	require.NoError(t, err)
	defer dedup.Close()

	vecs, err := dedup.EmbedBatch(context.Background(), []string{"license header", "license header", "unique text"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	assert.Equal(t, vecs[0], vecs[1])
	assert.Equal(t, 2, inner.calls, "duplicate text within one batch should be embedded only once")
}

func TestRunDedupEmbedderDeduplicatesAcrossCalls(t *testing.T) {
	inner := &countingEmbedder{Embedder: NewStaticEmbedder768()}
	dedup, err := NewRunDedupEmbedder(inner, 0)
	require.NoError(t, err)
	defer dedup.Close()

	_, err = dedup.EmbedBatch(context.Background(), []string{"boilerplate"})
	require.NoError(t, err)
	_, err = dedup.EmbedBatch(context.Background(), []string{"boilerplate"})
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
}

func TestRunDedupEmbedderEmptyBatch(t *testing.T) {
	dedup, err := NewRunDedupEmbedder(NewStaticEmbedder768(), 0)
	require.NoError(t, err)
	defer dedup.Close()

	vecs, err := dedup.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestRunDedupEmbedderDelegatesMetadata(t *testing.T) {
	inner := NewStaticEmbedder768()
	dedup, err := NewRunDedupEmbedder(inner, 0)
	require.NoError(t, err)
	defer dedup.Close()

	assert.Equal(t, inner.Dimensions(), dedup.Dimensions())
	assert.Equal(t, inner.ModelName(), dedup.ModelName())
}

func TestRunDedupEmbedderCloseClosesInner(t *testing.T) {
	inner := NewStaticEmbedder768()
	dedup, err := NewRunDedupEmbedder(inner, 0)
	require.NoError(t, err)

	require.NoError(t, dedup.Close())
	assert.Error(t, inner.Available(context.Background()))
}
