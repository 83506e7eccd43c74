package vectorindex

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ctxhq/ctx/internal/store"
)

// chunkBatchSize is how many chunks manager loads from the store per page
// while building an index (spec.md §4.5: "batched loading (1000 at a
// time)").
const chunkBatchSize = 1000

// Manager is the per-project lazy singleton index cache (spec.md §4.5):
// each project's index is built on first use and kept resident until
// Invalidate is called. At most one build per project runs at a time;
// concurrent callers join the in-flight build via singleflight.
type Manager struct {
	store store.Store

	mu      sync.Mutex
	indices map[string]Store

	group singleflight.Group
}

func NewManager(s store.Store) *Manager {
	return &Manager{
		store:   s,
		indices: make(map[string]Store),
	}
}

// Get returns the ready-to-query index for a project, building it from the
// store if it isn't already resident.
func (m *Manager) Get(ctx context.Context, projectID string, dimensions int) (Store, error) {
	m.mu.Lock()
	if idx, ok := m.indices[projectID]; ok {
		m.mu.Unlock()
		return idx, nil
	}
	m.mu.Unlock()

	result, err, _ := m.group.Do(projectID, func() (interface{}, error) {
		m.mu.Lock()
		if idx, ok := m.indices[projectID]; ok {
			m.mu.Unlock()
			return idx, nil
		}
		m.mu.Unlock()

		idx, err := m.build(ctx, projectID, dimensions)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.indices[projectID] = idx
		m.mu.Unlock()
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(Store), nil
}

// build loads every chunk for projectID from the store and constructs the
// appropriate backend: brute force below BruteForceThreshold chunks, HNSW
// otherwise. The choice depends on chunk count alone; callers cannot force
// brute force.
func (m *Manager) build(ctx context.Context, projectID string, dimensions int) (Store, error) {
	count, err := m.store.CountChunks(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}

	cfg := DefaultConfig(dimensions)
	cfg.BruteForce = count < BruteForceThreshold

	var idx Store
	if cfg.BruteForce {
		idx, err = NewBruteForceStore(cfg)
	} else {
		idx, err = NewHNSWStore(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("create index backend: %w", err)
	}

	batches, err := m.store.IterChunksBatched(ctx, projectID, chunkBatchSize)
	if err != nil {
		return nil, fmt.Errorf("iter chunks: %w", err)
	}

	for batch := range batches {
		if batch.Err != nil {
			idx.Close()
			return nil, fmt.Errorf("load chunk batch: %w", batch.Err)
		}
		if len(batch.Chunks) == 0 {
			continue
		}

		ids := make([]string, 0, len(batch.Chunks))
		vectors := make([][]float32, 0, len(batch.Chunks))
		metas := make([]Meta, 0, len(batch.Chunks))
		for _, c := range batch.Chunks {
			vec := store.BlobToVec(c.Embedding)
			if len(vec) != dimensions {
				idx.Close()
				return nil, ErrDimensionMismatch{Expected: dimensions, Got: len(vec)}
			}
			ids = append(ids, c.ID)
			vectors = append(vectors, vec)
			metas = append(metas, Meta{
				FileType:  string(c.FileType),
				Language:  c.Language,
				ProjectID: c.ProjectID,
			})
		}

		if err := idx.Add(ctx, ids, vectors, metas); err != nil {
			idx.Close()
			return nil, fmt.Errorf("add chunk batch: %w", err)
		}
	}

	return idx, nil
}

// Invalidate discards a project's resident index so the next Get rebuilds
// it from the store (spec.md §4.5: re-index/remove must invalidate).
func (m *Manager) Invalidate(projectID string) {
	m.mu.Lock()
	idx, ok := m.indices[projectID]
	delete(m.indices, projectID)
	m.mu.Unlock()

	if ok {
		idx.Close()
	}
}

// Close shuts down every resident index, used on process exit.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, idx := range m.indices {
		idx.Close()
		delete(m.indices, id)
	}
	return nil
}
