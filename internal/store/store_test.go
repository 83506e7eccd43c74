package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestProject(t *testing.T, s *SQLiteStore, dims int) *Project {
	t.Helper()
	p := &Project{
		ID:             uuid.NewString(),
		Name:           "demo-" + uuid.NewString()[:8],
		Path:           "/tmp/demo",
		EmbeddingModel: "static-768",
		Dimensions:     dims,
	}
	require.NoError(t, s.UpsertProject(context.Background(), p))
	return p
}

func TestEmbeddingBlobRoundTrip(t *testing.T) {
	v := make([]float32, 1024)
	for i := range v {
		v[i] = 0.5
	}
	got := BlobToVec(VecToBlob(v))
	require.Equal(t, v, got)
}

func TestProjectUniqueNameInvariant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &Project{ID: uuid.NewString(), Name: "dup", Path: "/a", Dimensions: 8}
	require.NoError(t, s.UpsertProject(ctx, p))

	// Re-upserting the same id under the same name is allowed (update path).
	p.Path = "/a2"
	require.NoError(t, s.UpsertProject(ctx, p))

	got, err := s.GetProjectByName(ctx, "dup")
	require.NoError(t, err)
	require.Equal(t, "/a2", got.Path)
}

func TestInsertChunksRejectsDimensionMismatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newTestProject(t, s, 8)

	bad := &Chunk{
		ID:        "c1",
		FilePath:  "a.go",
		Content:   "func a() {}",
		Embedding: VecToBlob(make([]float32, 4)), // wrong size
		FileType:  FileTypeCode,
		StartLine: 1,
		EndLine:   1,
	}
	err := s.InsertChunks(ctx, p.ID, []*Chunk{bad})
	require.Error(t, err)
	var mismatch *ErrDimensionMismatch
	require.ErrorAs(t, err, &mismatch)
}

func TestInsertChunksUpdatesProjectCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newTestProject(t, s, 4)

	chunks := []*Chunk{
		{ID: "c1", FilePath: "a.go", Content: "a", Embedding: VecToBlob(make([]float32, 4)), FileType: FileTypeCode, StartLine: 1, EndLine: 2},
		{ID: "c2", FilePath: "a.go", Content: "b", Embedding: VecToBlob(make([]float32, 4)), FileType: FileTypeCode, StartLine: 3, EndLine: 4},
		{ID: "c3", FilePath: "b.go", Content: "c", Embedding: VecToBlob(make([]float32, 4)), FileType: FileTypeCode, StartLine: 1, EndLine: 1},
	}
	require.NoError(t, s.InsertChunks(ctx, p.ID, chunks))

	updated, err := s.GetProjectByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, 2, updated.FileCount)
	require.Equal(t, 3, updated.ChunkCount)
}

func TestReplaceProjectChunksIsAllOrNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newTestProject(t, s, 4)

	require.NoError(t, s.InsertChunks(ctx, p.ID, []*Chunk{
		{ID: "c1", FilePath: "a.go", Content: "a", Embedding: VecToBlob(make([]float32, 4)), FileType: FileTypeCode, StartLine: 1, EndLine: 1},
	}))

	// One bad chunk among good ones must roll back the whole replace.
	err := s.ReplaceProjectChunks(ctx, p.ID, []*Chunk{
		{ID: "c2", FilePath: "b.go", Content: "b", Embedding: VecToBlob(make([]float32, 4)), FileType: FileTypeCode, StartLine: 1, EndLine: 1},
		{ID: "c3", FilePath: "c.go", Content: "c", Embedding: VecToBlob(make([]float32, 2)), FileType: FileTypeCode, StartLine: 1, EndLine: 1},
	})
	require.Error(t, err)

	n, err := s.CountChunks(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n, "original chunk c1 must survive a failed replace")
}

func TestIterChunksBatchedPagesAllChunks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newTestProject(t, s, 4)

	var chunks []*Chunk
	for i := 0; i < 25; i++ {
		chunks = append(chunks, &Chunk{
			ID: uuid.NewString(), FilePath: "a.go", Content: "x",
			Embedding: VecToBlob(make([]float32, 4)), FileType: FileTypeCode, StartLine: i, EndLine: i,
		})
	}
	require.NoError(t, s.InsertChunks(ctx, p.ID, chunks))

	out, err := s.IterChunksBatched(ctx, p.ID, 10)
	require.NoError(t, err)

	var total int
	for batch := range out {
		require.NoError(t, batch.Err)
		total += len(batch.Chunks)
	}
	require.Equal(t, 25, total)
}

func TestChunkIDStableForIdenticalInputs(t *testing.T) {
	id1 := ChunkID("demo", "src/auth/login.go", 10, 20, "hash-abc")
	id2 := ChunkID("demo", "src/auth/login.go", 10, 20, "hash-abc")
	require.Equal(t, id1, id2)

	id3 := ChunkID("demo", "src/auth/login.go", 10, 21, "hash-abc")
	require.NotEqual(t, id1, id3)
}
