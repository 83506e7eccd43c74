package coordinator

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxhq/ctx/internal/lexical"
	"github.com/ctxhq/ctx/internal/store"
	"github.com/ctxhq/ctx/internal/vectorindex"
)

const testDims = 4

func newTestCoordinatorStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedProject(t *testing.T, s *store.SQLiteStore, name string, docs []struct {
	content string
	vec     []float32
}) string {
	t.Helper()
	projectID := uuid.NewString()
	require.NoError(t, s.UpsertProject(context.Background(), &store.Project{
		ID: projectID, Name: name, Path: "/tmp/" + name, Dimensions: testDims,
	}))

	chunks := make([]*store.Chunk, 0, len(docs))
	for _, d := range docs {
		chunks = append(chunks, &store.Chunk{
			ID:        uuid.NewString(),
			FilePath:  "a.go",
			Content:   d.content,
			Embedding: store.VecToBlob(d.vec),
			FileType:  store.FileTypeCode,
			StartLine: 1,
			EndLine:   1,
		})
	}
	require.NoError(t, s.InsertChunks(context.Background(), projectID, chunks))
	return projectID
}

func newTestCoordinator(s *store.SQLiteStore) *Coordinator {
	return New(s, vectorindex.NewManager(s), lexical.NewManager(s))
}

func TestCoordinatorSearchFusesAcrossProjects(t *testing.T) {
	s := newTestCoordinatorStore(t)
	alpha := seedProject(t, s, "alpha", []struct {
		content string
		vec     []float32
	}{
		{content: "alpha search handler implementation", vec: []float32{1, 0, 0, 0}},
	})
	beta := seedProject(t, s, "beta", []struct {
		content string
		vec     []float32
	}{
		{content: "beta unrelated database migration", vec: []float32{0, 1, 0, 0}},
	})

	c := newTestCoordinator(s)
	req := SearchRequest{
		Query:       "alpha search handler",
		QueryVector: []float32{1, 0, 0, 0},
	}

	hits, err := c.Search(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, alpha, hits[0].ProjectID)

	sawBeta := false
	for _, h := range hits {
		if h.ProjectID == beta {
			sawBeta = true
		}
	}
	assert.True(t, sawBeta, "beta's chunk should still appear, ranked lower")
}

func TestCoordinatorSearchRestrictsToRequestedProjects(t *testing.T) {
	s := newTestCoordinatorStore(t)
	alpha := seedProject(t, s, "alpha", []struct {
		content string
		vec     []float32
	}{
		{content: "alpha content", vec: []float32{1, 0, 0, 0}},
	})
	_ = seedProject(t, s, "beta", []struct {
		content string
		vec     []float32
	}{
		{content: "beta content", vec: []float32{0, 1, 0, 0}},
	})

	c := newTestCoordinator(s)
	req := SearchRequest{
		Query:       "content",
		QueryVector: []float32{1, 0, 0, 0},
		Filter:      Filter{ProjectIDs: []string{alpha}},
	}

	hits, err := c.Search(context.Background(), req)
	require.NoError(t, err)
	for _, h := range hits {
		assert.Equal(t, alpha, h.ProjectID)
	}
}

func TestCoordinatorSearchAppliesMinScoreAfterMerge(t *testing.T) {
	s := newTestCoordinatorStore(t)
	seedProject(t, s, "alpha", []struct {
		content string
		vec     []float32
	}{
		// matches both the dense query vector and every lexical query term:
		// rank 1 in both retrievers, so it carries the highest two-stage
		// RRF score.
		{content: "alpha search handler implementation token", vec: []float32{1, 0, 0, 0}},
		// orthogonal vector and no lexical term overlap: rank 2 in dense,
		// absent from the lexical list entirely, so it carries the lowest
		// RRF score.
		{content: "unrelated filler text about nothing", vec: []float32{0, 1, 0, 0}},
	})

	c := newTestCoordinator(s)
	baseReq := SearchRequest{
		Query:       "alpha search handler implementation token",
		QueryVector: []float32{1, 0, 0, 0},
	}

	unfiltered, err := c.Search(context.Background(), baseReq)
	require.NoError(t, err)
	require.Len(t, unfiltered, 2, "both hits should appear without a minScore filter")

	// The weaker hit's fused score is 1/62 (~0.01613) and the stronger
	// hit's is 1/61 (~0.01639); a threshold between
	// the two should keep only the stronger hit.
	filteredReq := baseReq
	filteredReq.Filter = Filter{MinScore: 0.0162}

	filtered, err := c.Search(context.Background(), filteredReq)
	require.NoError(t, err)
	require.Len(t, filtered, 1, "a reachable minScore threshold should drop only the lower-scoring hit")
	assert.Equal(t, unfiltered[0].ChunkID, filtered[0].ChunkID)
}

func TestCoordinatorSearchRespectsTopK(t *testing.T) {
	s := newTestCoordinatorStore(t)
	docs := make([]struct {
		content string
		vec     []float32
	}, 0, 5)
	for i := 0; i < 5; i++ {
		vec := make([]float32, testDims)
		vec[i%testDims] = 1
		docs = append(docs, struct {
			content string
			vec     []float32
		}{content: "shared content token", vec: vec})
	}
	seedProject(t, s, "alpha", docs)

	c := newTestCoordinator(s)
	req := SearchRequest{
		Query:       "shared content",
		QueryVector: []float32{1, 0, 0, 0},
		TopK:        2,
	}

	hits, err := c.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestCoordinatorSearchNoProjectsReturnsEmpty(t *testing.T) {
	s := newTestCoordinatorStore(t)
	c := newTestCoordinator(s)

	hits, err := c.Search(context.Background(), SearchRequest{Query: "anything", QueryVector: []float32{1, 0, 0, 0}})
	require.NoError(t, err)
	assert.Empty(t, hits)
}
