package lexical

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ctxhq/ctx/internal/store"
)

const chunkBatchSize = 1000

// Manager is the per-project lazy singleton lexical index cache, mirroring
// vectorindex.Manager's build/cache/invalidate lifecycle so the coordinator
// can treat both indices identically (spec.md §4.6).
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

// Get returns the ready-to-query lexical index for a project, building it
// from the store if it isn't already resident.
func (m *Manager) Get(ctx context.Context, projectID string) (Store, error) {
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

		idx, err := m.build(ctx, projectID)
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

func (m *Manager) build(ctx context.Context, projectID string) (Store, error) {
	idx, err := NewBleveStore("", DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
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

		docs := make([]Document, 0, len(batch.Chunks))
		for _, c := range batch.Chunks {
			docs = append(docs, Document{
				ID:      c.ID,
				Content: c.Content,
				Meta: Meta{
					FileType:  string(c.FileType),
					Language:  c.Language,
					ProjectID: c.ProjectID,
				},
			})
		}

		if err := idx.Index(ctx, docs); err != nil {
			idx.Close()
			return nil, fmt.Errorf("index chunk batch: %w", err)
		}
	}

	return idx, nil
}

// Invalidate discards a project's resident index so the next Get rebuilds
// it from the store.
func (m *Manager) Invalidate(projectID string) {
	m.mu.Lock()
	idx, ok := m.indices[projectID]
	delete(m.indices, projectID)
	m.mu.Unlock()

	if ok {
		idx.Close()
	}
}

// Close shuts down every resident index.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, idx := range m.indices {
		idx.Close()
		delete(m.indices, id)
	}
	return nil
}
