package vectorindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHNSWStore(t *testing.T, dims int) *HNSWStore {
	t.Helper()
	s, err := NewHNSWStore(DefaultConfig(dims))
	require.NoError(t, err)
	return s
}

func TestHNSWStoreAddAndSearch(t *testing.T) {
	s := newTestHNSWStore(t, 3)
	ctx := context.Background()

	err := s.Add(ctx, []string{"a", "b", "c"}, [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.9, 0.1, 0},
	}, []Meta{{FileType: "code"}, {FileType: "code"}, {FileType: "code"}})
	require.NoError(t, err)

	results, err := s.Search(ctx, []float32{1, 0, 0}, 2, Filter{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
}

func TestHNSWStoreSearchAppliesMinScore(t *testing.T) {
	s := newTestHNSWStore(t, 3)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []string{"a", "b"}, [][]float32{
		{1, 0, 0}, // identical to the query: score 1.0
		{0, 1, 0}, // orthogonal: score 0.5
	}, []Meta{{}, {}}))

	results, err := s.Search(ctx, []float32{1, 0, 0}, 5, Filter{MinScore: 0.9})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestHNSWStoreAddDimensionMismatch(t *testing.T) {
	s := newTestHNSWStore(t, 3)
	err := s.Add(context.Background(), []string{"a"}, [][]float32{{1, 0}}, []Meta{{}})
	assert.ErrorAs(t, err, &ErrDimensionMismatch{})
}

func TestHNSWStoreSearchDimensionMismatch(t *testing.T) {
	s := newTestHNSWStore(t, 3)
	_, err := s.Search(context.Background(), []float32{1, 0}, 5, Filter{})
	assert.ErrorAs(t, err, &ErrDimensionMismatch{})
}

func TestHNSWStoreSearchEmptyIndex(t *testing.T) {
	s := newTestHNSWStore(t, 3)
	results, err := s.Search(context.Background(), []float32{1, 0, 0}, 5, Filter{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWStoreReAddReplacesVector(t *testing.T) {
	s := newTestHNSWStore(t, 3)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []string{"a"}, [][]float32{{1, 0, 0}}, []Meta{{}}))
	require.NoError(t, s.Add(ctx, []string{"a"}, [][]float32{{0, 1, 0}}, []Meta{{}}))

	assert.Equal(t, 1, s.Count())
	results, err := s.Search(ctx, []float32{0, 1, 0}, 1, Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestHNSWStoreDelete(t *testing.T) {
	s := newTestHNSWStore(t, 3)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []string{"a", "b"}, [][]float32{{1, 0, 0}, {0, 1, 0}}, []Meta{{}, {}}))
	require.NoError(t, s.Delete(ctx, []string{"a"}))

	assert.False(t, s.Contains("a"))
	assert.True(t, s.Contains("b"))
	assert.Equal(t, 1, s.Count())
}

func TestHNSWStoreFilterMatching(t *testing.T) {
	s := newTestHNSWStore(t, 3)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []string{"a", "b"}, [][]float32{{1, 0, 0}, {0.9, 0.1, 0}}, []Meta{
		{FileType: "code", Language: "go"},
		{FileType: "docs", Language: ""},
	}))

	results, err := s.Search(ctx, []float32{1, 0, 0}, 5, Filter{
		FileType: &MatchValue{Equals: "docs"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestHNSWStoreFilterIn(t *testing.T) {
	s := newTestHNSWStore(t, 3)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []string{"a", "b", "c"}, [][]float32{{1, 0, 0}, {0.9, 0.1, 0}, {0, 0, 1}}, []Meta{
		{Language: "go"},
		{Language: "python"},
		{Language: "rust"},
	}))

	results, err := s.Search(ctx, []float32{1, 0, 0}, 5, Filter{
		Language: &MatchValue{In: []string{"go", "python"}},
	})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestHNSWStoreSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.hnsw")

	s := newTestHNSWStore(t, 3)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, []string{"a", "b"}, [][]float32{{1, 0, 0}, {0, 1, 0}}, []Meta{
		{FileType: "code"}, {FileType: "docs"},
	}))
	require.NoError(t, s.Save(path))

	loaded := newTestHNSWStore(t, 3)
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, 2, loaded.Count())
	assert.True(t, loaded.Contains("a"))
	results, err := loaded.Search(ctx, []float32{1, 0, 0}, 1, Filter{FileType: &MatchValue{Equals: "code"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestReadDimensionsMissingFile(t *testing.T) {
	dims, err := ReadDimensions(filepath.Join(t.TempDir(), "missing.hnsw"))
	require.NoError(t, err)
	assert.Equal(t, 0, dims)
}

func TestReadDimensionsAfterSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.hnsw")

	s := newTestHNSWStore(t, 5)
	require.NoError(t, s.Add(context.Background(), []string{"a"}, [][]float32{{1, 0, 0, 0, 0}}, []Meta{{}}))
	require.NoError(t, s.Save(path))

	dims, err := ReadDimensions(path)
	require.NoError(t, err)
	assert.Equal(t, 5, dims)
}

func TestHNSWStoreCloseRejectsOperations(t *testing.T) {
	s := newTestHNSWStore(t, 3)
	require.NoError(t, s.Close())

	err := s.Add(context.Background(), []string{"a"}, [][]float32{{1, 0, 0}}, []Meta{{}})
	assert.Error(t, err)
}

func TestDistanceToScoreCosine(t *testing.T) {
	assert.InDelta(t, 1.0, distanceToScore(0, "cos"), 1e-6)
	assert.InDelta(t, 0.0, distanceToScore(2, "cos"), 1e-6)
}

func TestDistanceToScoreL2(t *testing.T) {
	assert.InDelta(t, 1.0, distanceToScore(0, "l2"), 1e-6)
	assert.InDelta(t, 0.5, distanceToScore(1, "l2"), 1e-6)
}

func TestNormalizeVectorInPlaceZeroVector(t *testing.T) {
	v := []float32{0, 0, 0}
	normalizeVectorInPlace(v)
	assert.Equal(t, []float32{0, 0, 0}, v)
}

func TestNormalizeVectorInPlaceUnitLength(t *testing.T) {
	v := []float32{3, 4, 0}
	normalizeVectorInPlace(v)
	assert.InDelta(t, 1.0, float64(v[0]*v[0]+v[1]*v[1]+v[2]*v[2]), 1e-5)
}
