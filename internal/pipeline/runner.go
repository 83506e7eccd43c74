package pipeline

import (
	"context"
	"time"

	"github.com/ctxhq/ctx/internal/chunk"
	"github.com/ctxhq/ctx/internal/embed"
	"github.com/ctxhq/ctx/internal/errorkit"
	"github.com/ctxhq/ctx/internal/lexical"
	"github.com/ctxhq/ctx/internal/scanner"
	"github.com/ctxhq/ctx/internal/store"
	"github.com/ctxhq/ctx/internal/vectorindex"
)

// storeBatchSize is how many chunks runStoring writes to the Store per
// InsertChunks call, so a crash mid-write loses at most one batch.
const storeBatchSize = 500

// Runner executes the scanning -> chunking -> embedding -> storing stages
// of a single project index (spec.md §4.11). Grounded on the teacher's
// internal/index/coordinator.go for the stage-by-stage shape, generalized
// from its incremental per-file watch events to a whole-project batch run.
type Runner struct {
	store    store.Store
	scanner  *scanner.Scanner
	chunker  *chunk.Chunker
	embedder embed.Embedder
	vectors  *vectorindex.Manager
	lexicon  *lexical.Manager
}

func NewRunner(s store.Store, sc *scanner.Scanner, ch *chunk.Chunker, emb embed.Embedder, vectors *vectorindex.Manager, lexicon *lexical.Manager) *Runner {
	return &Runner{store: s, scanner: sc, chunker: ch, embedder: emb, vectors: vectors, lexicon: lexicon}
}

// Run executes a full index of opts.RootPath under opts.ProjectName.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	result := &Result{}

	project, err := r.resolveProject(ctx, opts)
	if err != nil {
		result.Duration = time.Since(start)
		return result, err
	}
	result.ProjectID = project.ID

	if cancelled(opts.Cancel) {
		result.Cancelled = true
		result.Duration = time.Since(start)
		return result, errorkit.Cancelled()
	}

	files, err := r.runScanning(ctx, opts, result)
	if err != nil {
		result.Duration = time.Since(start)
		return result, err
	}
	if result.Cancelled {
		result.Duration = time.Since(start)
		return result, errorkit.Cancelled()
	}

	chunks, err := r.runChunking(ctx, opts, files, project, result)
	if err != nil {
		result.Duration = time.Since(start)
		return result, err
	}
	if result.Cancelled {
		result.Duration = time.Since(start)
		return result, errorkit.Cancelled()
	}

	if err := r.runEmbedding(ctx, opts, chunks, project, result); err != nil {
		result.Duration = time.Since(start)
		return result, err
	}
	if result.Cancelled {
		result.Duration = time.Since(start)
		return result, errorkit.Cancelled()
	}

	if err := r.runStoring(ctx, opts, chunks, project, result); err != nil {
		result.Duration = time.Since(start)
		return result, err
	}

	if opts.OnStageStart != nil {
		opts.OnStageStart(StageComplete)
	}
	_ = r.store.ClearCheckpoint(ctx, project.ID)
	if opts.OnStageComplete != nil {
		opts.OnStageComplete(StageComplete)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// resolveProject enforces the AlreadyIndexed / --force policy (spec.md
// §4.11) and returns the project row to index into.
func (r *Runner) resolveProject(ctx context.Context, opts Options) (*store.Project, error) {
	existing, err := r.store.GetProjectByName(ctx, opts.ProjectName)
	if err != nil {
		return nil, errorkit.Storage("failed to look up project", err)
	}

	if existing == nil {
		p := &store.Project{
			ID:             newProjectID(),
			Name:           opts.ProjectName,
			Path:           opts.RootPath,
			Description:    opts.Description,
			Tags:           opts.Tags,
			EmbeddingModel: r.embedder.ModelName(),
			Dimensions:     r.embedder.Dimensions(),
		}
		if err := r.store.UpsertProject(ctx, p); err != nil {
			return nil, errorkit.Storage("failed to create project", err)
		}
		return p, nil
	}

	if !opts.Force {
		return nil, errorkit.AlreadyIndexed(opts.ProjectName)
	}

	if existing.Dimensions != 0 && existing.Dimensions != r.embedder.Dimensions() {
		return nil, errorkit.DimensionMismatch(existing.Dimensions, r.embedder.Dimensions())
	}

	existing.EmbeddingModel = r.embedder.ModelName()
	existing.Dimensions = r.embedder.Dimensions()
	if err := r.store.UpsertProject(ctx, existing); err != nil {
		return nil, errorkit.Storage("failed to update project", err)
	}

	r.vectors.Invalidate(existing.ID)
	r.lexicon.Invalidate(existing.ID)

	return existing, nil
}

func (r *Runner) runScanning(ctx context.Context, opts Options, result *Result) ([]scanner.FileInfo, error) {
	if opts.OnStageStart != nil {
		opts.OnStageStart(StageScanning)
	}

	scanResult, err := r.scanner.Scan(ctx, opts.RootPath, scanner.Options{
		ExtraIgnore: opts.ExtraIgnore,
		OnError: func(path string, err error) {
			result.addWarning("scan %s: %v", path, err)
		},
	})
	if err != nil {
		return nil, errorkit.Storage("scan failed", err)
	}

	result.FilesScanned = len(scanResult.Files)
	if opts.OnProgress != nil {
		opts.OnProgress(Progress{Stage: StageScanning, Completed: len(scanResult.Files), Total: len(scanResult.Files)})
	}
	if opts.OnStageComplete != nil {
		opts.OnStageComplete(StageScanning)
	}

	return scanResult.Files, nil
}

func (r *Runner) runChunking(ctx context.Context, opts Options, files []scanner.FileInfo, project *store.Project, result *Result) ([]*chunk.Chunk, error) {
	if opts.OnStageStart != nil {
		opts.OnStageStart(StageChunking)
	}

	var all []*chunk.Chunk
	for i, f := range files {
		if i%100 == 0 && cancelled(opts.Cancel) {
			result.Cancelled = true
			return all, nil
		}

		res := r.chunker.ChunkFile(ctx, chunk.Input{
			Path:     f.RelPath,
			AbsPath:  f.AbsPath,
			Language: f.Language,
			FileType: string(f.Type),
		})
		for _, w := range res.Warnings {
			result.addWarning("chunk %s: %s", f.RelPath, w)
		}
		if res.Skipped != "" {
			continue
		}
		all = append(all, res.Chunks...)

		if opts.OnProgress != nil {
			opts.OnProgress(Progress{Stage: StageChunking, Completed: i + 1, Total: len(files)})
		}
	}

	result.ChunksCreated = len(all)
	_ = r.store.SaveCheckpoint(ctx, &store.IndexCheckpoint{
		ProjectID: project.ID,
		Stage:     string(StageChunking),
		Total:     len(all),
	})

	if opts.OnStageComplete != nil {
		opts.OnStageComplete(StageChunking)
	}
	return all, nil
}

func (r *Runner) runEmbedding(ctx context.Context, opts Options, chunks []*chunk.Chunk, project *store.Project, result *Result) error {
	if opts.OnStageStart != nil {
		opts.OnStageStart(StageEmbedding)
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = embed.DefaultBatchSize
	}

	embeddings := make(map[int][]byte, len(chunks))

	for start := 0; start < len(chunks); start += batchSize {
		if cancelled(opts.Cancel) {
			result.Cancelled = true
			return nil
		}

		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		vectors, err := r.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			// a whole batch failing is non-fatal: retry at chunk
			// granularity so one bad input doesn't sink its neighbors.
			for i, c := range batch {
				vs, ferr := r.embedder.EmbedBatch(ctx, []string{c.Content})
				if ferr != nil {
					result.addError("embed %s:%d-%d: %v", c.FilePath, c.StartLine, c.EndLine, ferr)
					continue
				}
				embeddings[start+i] = store.VecToBlob(vs[0])
				result.ChunksEmbedded++
			}
			continue
		}

		for i, v := range vectors {
			if len(v) != r.embedder.Dimensions() {
				return errorkit.DimensionMismatch(r.embedder.Dimensions(), len(v))
			}
			embeddings[start+i] = store.VecToBlob(v)
		}
		result.ChunksEmbedded += len(vectors)

		if opts.OnProgress != nil {
			opts.OnProgress(Progress{Stage: StageEmbedding, Completed: end, Total: len(chunks)})
		}

		_ = r.store.SaveCheckpoint(ctx, &store.IndexCheckpoint{
			ProjectID:     project.ID,
			Stage:         string(StageEmbedding),
			Total:         len(chunks),
			Embedded:      result.ChunksEmbedded,
			EmbedderModel: r.embedder.ModelName(),
		})
	}

	for i, c := range chunks {
		if blob, ok := embeddings[i]; ok {
			c.Metadata = withEmbedding(c.Metadata, blob)
		}
	}

	if opts.OnStageComplete != nil {
		opts.OnStageComplete(StageEmbedding)
	}
	return nil
}

// withEmbedding stashes the embedding blob in chunk.Metadata under a
// private key so runStoring can retrieve it without widening chunk.Chunk
// (an internal/chunk type shared with the assembler) with a store-specific
// field.
const embeddingMetaKey = "__embedding_blob__"

func withEmbedding(meta map[string]string, blob []byte) map[string]string {
	if meta == nil {
		meta = make(map[string]string, 1)
	}
	meta[embeddingMetaKey] = string(blob)
	return meta
}

func (r *Runner) runStoring(ctx context.Context, opts Options, chunks []*chunk.Chunk, project *store.Project, result *Result) error {
	if opts.OnStageStart != nil {
		opts.OnStageStart(StageStoring)
	}

	storeChunks := make([]*store.Chunk, 0, len(chunks))
	for _, c := range chunks {
		blob, ok := c.Metadata[embeddingMetaKey]
		if !ok {
			continue // embedding failed for this chunk; already recorded as an error
		}
		delete(c.Metadata, embeddingMetaKey)

		storeChunks = append(storeChunks, &store.Chunk{
			ID:          store.ChunkID(project.ID, c.FilePath, c.StartLine, c.EndLine, c.ContentHash),
			ProjectID:   project.ID,
			FilePath:    c.FilePath,
			Content:     c.Content,
			Embedding:   []byte(blob),
			FileType:    store.FileType(c.FileType),
			Language:    c.Language,
			StartLine:   c.StartLine,
			EndLine:     c.EndLine,
			Metadata:    c.Metadata,
			ContentHash: c.ContentHash,
		})
	}

	for start := 0; start < len(storeChunks); start += storeBatchSize {
		if cancelled(opts.Cancel) {
			result.Cancelled = true
			return nil
		}

		end := start + storeBatchSize
		if end > len(storeChunks) {
			end = len(storeChunks)
		}
		batch := storeChunks[start:end]

		var err error
		if opts.Force && start == 0 {
			err = r.store.ReplaceProjectChunks(ctx, project.ID, batch)
		} else {
			err = r.store.InsertChunks(ctx, project.ID, batch)
		}
		if err != nil {
			return errorkit.Storage("failed to store chunk batch", err)
		}

		result.ChunksStored += len(batch)
		if opts.OnProgress != nil {
			opts.OnProgress(Progress{Stage: StageStoring, Completed: end, Total: len(storeChunks)})
		}
	}

	if opts.OnStageComplete != nil {
		opts.OnStageComplete(StageStoring)
	}

	r.vectors.Invalidate(project.ID)
	r.lexicon.Invalidate(project.ID)

	return nil
}

func cancelled(c <-chan struct{}) bool {
	if c == nil {
		return false
	}
	select {
	case <-c:
		return true
	default:
		return false
	}
}
