// Package store is the persistent on-disk store: projects, chunks (with
// embeddings as fixed-width blobs), file hashes, eval runs, and eval
// results, behind a single sqlite database with schema migrations and
// transactional writes. It is the sole owner of all persisted data
// (spec.md §3 "Ownership").
package store

import (
	"context"
	"time"
)

// FileType classifies a chunk's originating file for filtering (spec.md §3).
type FileType string

const (
	FileTypeCode   FileType = "code"
	FileTypeDocs   FileType = "docs"
	FileTypeConfig FileType = "config"
	FileTypeStyle  FileType = "style"
	FileTypeData   FileType = "data"
)

// Project is a single indexed source tree (spec.md §3).
type Project struct {
	ID         string
	Name       string
	Path       string
	Description string
	Tags       []string
	IgnorePatterns []string
	EmbeddingModel string
	Dimensions int
	FileCount  int
	ChunkCount int
	IndexedAt  time.Time
	UpdatedAt  time.Time
}

// Chunk is a retrievable unit of content (spec.md §3).
type Chunk struct {
	ID          string
	ProjectID   string
	FilePath    string
	Content     string
	Embedding   []byte // little-endian float32 blob, len == 4*project.Dimensions
	FileType    FileType
	Language    string // nullable enum: empty string means unset
	StartLine   int
	EndLine     int
	Metadata    map[string]string
	ContentHash string
	CreatedAt   time.Time
}

// FileHash tracks the last indexed content hash for a project file, used
// for staleness checks and future incremental re-index (spec.md §3).
type FileHash struct {
	ProjectID   string
	FilePath    string
	ContentHash string
	IndexedAt   time.Time
}

// IndexCheckpoint is the resumable-indexing state for a project (SPEC_FULL §C.1).
type IndexCheckpoint struct {
	ProjectID     string
	Stage         string // scanning|chunking|embedding|storing|complete
	Total         int
	Embedded      int
	EmbedderModel string
	UpdatedAt     time.Time
}

// EvalRun is one execution of the eval harness against a golden dataset (spec.md §3).
type EvalRun struct {
	ID               string
	ProjectID        string
	Timestamp        time.Time
	DatasetVersion   string
	QueryCount       int
	AggregateMetrics map[string]float64
	Config           map[string]any
	Notes            string
	Status           string // running|completed|failed
}

// EvalResult is a single golden-query outcome within an EvalRun (spec.md §3).
type EvalResult struct {
	ID              string
	EvalRunID       string
	Query           string
	ExpectedFiles   []string
	RetrievedFiles  []string
	LatencyMS       int64
	PerQueryMetrics map[string]float64
	Passed          bool
}

// ChunkBatch is one page from IterChunksBatched.
type ChunkBatch struct {
	Chunks []*Chunk
	Err    error
}

// Store is the persistence contract described in spec.md §4.1.
type Store interface {
	UpsertProject(ctx context.Context, p *Project) error
	GetProjectByName(ctx context.Context, name string) (*Project, error)
	GetProjectByID(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	DeleteProject(ctx context.Context, id string) error

	InsertChunks(ctx context.Context, projectID string, chunks []*Chunk) error
	ReplaceProjectChunks(ctx context.Context, projectID string, chunks []*Chunk) error
	IterChunksBatched(ctx context.Context, projectID string, batchSize int) (<-chan ChunkBatch, error)
	GetChunk(ctx context.Context, id string) (*Chunk, error)
	CountChunks(ctx context.Context, projectID string) (int, error)

	UpsertFileHash(ctx context.Context, fh *FileHash) error
	GetFileHashesByProject(ctx context.Context, projectID string) ([]*FileHash, error)

	SaveCheckpoint(ctx context.Context, cp *IndexCheckpoint) error
	LoadCheckpoint(ctx context.Context, projectID string) (*IndexCheckpoint, error)
	ClearCheckpoint(ctx context.Context, projectID string) error

	InsertEvalRun(ctx context.Context, run *EvalRun) error
	UpdateEvalRun(ctx context.Context, runID string, aggregate map[string]float64, notes string) error
	UpdateEvalRunStatus(ctx context.Context, runID string, status string) error
	GetLatestEvalRun(ctx context.Context, projectID string, before time.Time) (*EvalRun, error)
	InsertEvalResults(ctx context.Context, rows []*EvalResult) error

	SizeOnDisk() (int64, error)
	Close() error
}

// ErrDimensionMismatch is returned by InsertChunks/ReplaceProjectChunks
// when a chunk's embedding length doesn't match project.Dimensions*4.
type ErrDimensionMismatch struct {
	ProjectID string
	Expected  int
	Got       int
}

func (e *ErrDimensionMismatch) Error() string {
	return "dimension mismatch for project " + e.ProjectID
}
