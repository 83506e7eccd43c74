package evalharness

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxhq/ctx/internal/coordinator"
	"github.com/ctxhq/ctx/internal/embed"
	"github.com/ctxhq/ctx/internal/lexical"
	"github.com/ctxhq/ctx/internal/store"
	"github.com/ctxhq/ctx/internal/vectorindex"
)

func newTestRunner(t *testing.T) (*Runner, store.Store, string) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	emb := embed.NewStaticEmbedder()
	vectors := vectorindex.NewManager(s)
	lexicon := lexical.NewManager(s)
	coord := coordinator.New(s, vectors, lexicon)

	projectID := "proj-1"
	require.NoError(t, s.UpsertProject(t.Context(), &store.Project{
		ID: projectID, Name: "demo", Path: "/demo", Dimensions: emb.Dimensions(),
	}))

	chunks := []*store.Chunk{
		{ID: "c1", ProjectID: projectID, FilePath: "auth/login.go", Content: "func Login handles user authentication and session creation"},
		{ID: "c2", ProjectID: projectID, FilePath: "billing/invoice.go", Content: "func Invoice generates a billing invoice for the account"},
	}
	for _, c := range chunks {
		vec, err := emb.EmbedBatch(t.Context(), []string{c.Content})
		require.NoError(t, err)
		c.Embedding = float32sToBlob(vec[0])
	}
	require.NoError(t, s.InsertChunks(t.Context(), projectID, chunks))
	vectors.Invalidate(projectID)
	lexicon.Invalidate(projectID)

	return NewRunner(s, coord, emb), s, projectID
}

func float32sToBlob(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		bits := math.Float32bits(f)
		buf[i*4] = byte(bits)
		buf[i*4+1] = byte(bits >> 8)
		buf[i*4+2] = byte(bits >> 16)
		buf[i*4+3] = byte(bits >> 24)
	}
	return buf
}

func TestRunScoresQueriesAndPersistsRun(t *testing.T) {
	runner, s, projectID := newTestRunner(t)

	dataset := Dataset{
		Version: DatasetVersion,
		Entries: []GoldenEntry{
			{ID: "q1", Query: "authentication session login", ExpectedFilePaths: []string{"auth/login.go"}},
			{ID: "q2", Query: "billing invoice account", ExpectedFilePaths: []string{"billing/invoice.go"}},
		},
	}

	run, deltas, err := runner.Run(t.Context(), RunOptions{ProjectID: projectID, Dataset: dataset, TopK: 5})
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, 2, run.QueryCount)
	assert.Nil(t, deltas, "first run for a project has no predecessor to diff against")
	assert.Contains(t, run.AggregateMetrics, "mrr")

	previous, err := s.GetLatestEvalRun(t.Context(), projectID, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, previous)
	assert.Equal(t, run.ID, previous.ID)
}

func TestRunRejectsInvalidDatasetBeforeCreatingRun(t *testing.T) {
	runner, s, projectID := newTestRunner(t)

	_, _, err := runner.Run(t.Context(), RunOptions{
		ProjectID: projectID,
		Dataset:   Dataset{Version: "bogus"},
	})
	require.Error(t, err)

	previous, err := s.GetLatestEvalRun(t.Context(), projectID, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Nil(t, previous, "no eval_run row should be written when dataset validation fails")
}

func TestRunFiltersEntriesByTag(t *testing.T) {
	runner, _, projectID := newTestRunner(t)

	dataset := Dataset{
		Version: DatasetVersion,
		Entries: []GoldenEntry{
			{ID: "q1", Query: "authentication session login", ExpectedFilePaths: []string{"auth/login.go"}, Tags: []string{"auth"}},
			{ID: "q2", Query: "billing invoice account", ExpectedFilePaths: []string{"billing/invoice.go"}, Tags: []string{"billing"}},
		},
	}

	run, _, err := runner.Run(t.Context(), RunOptions{ProjectID: projectID, Dataset: dataset, TopK: 5, Tags: []string{"auth"}})
	require.NoError(t, err)
	assert.Equal(t, 1, run.QueryCount)
}

func TestRunComputesDeltaAgainstPreviousRun(t *testing.T) {
	runner, _, projectID := newTestRunner(t)

	dataset := Dataset{
		Version: DatasetVersion,
		Entries: []GoldenEntry{
			{ID: "q1", Query: "authentication session login", ExpectedFilePaths: []string{"auth/login.go"}},
		},
	}

	first, _, err := runner.Run(t.Context(), RunOptions{ProjectID: projectID, Dataset: dataset, TopK: 5})
	require.NoError(t, err)

	second, deltas, err := runner.Run(t.Context(), RunOptions{ProjectID: projectID, Dataset: dataset, TopK: 5})
	require.NoError(t, err)
	require.NotEmpty(t, deltas)

	for _, d := range deltas {
		assert.Equal(t, first.AggregateMetrics[d.Metric], d.Previous)
		assert.Equal(t, second.AggregateMetrics[d.Metric], d.Current)
		assert.InDelta(t, d.Current-d.Previous, d.Change, 0.0001)
	}
}
