package vectorindex

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/philippgille/chromem-go"
)

const bruteCollectionName = "ctx"

// BruteForceStore is the exact (non-ANN) vector backend (spec.md §4.5:
// "brute force for tiny projects or when disabled"), via chromem-go. Used
// when a project's chunk count is below BruteForceThreshold, or when
// Config.BruteForce is explicitly set.
//
// Grounded on mvp-joe-project-cortex's internal/mcp/chromem_searcher.go.
type BruteForceStore struct {
	config     Config
	db         *chromem.DB
	collection *chromem.Collection
	meta       map[string]Meta
	closed     bool
}

func NewBruteForceStore(cfg Config) (*BruteForceStore, error) {
	db := chromem.NewDB()
	// nil embedding func: vectors are always supplied directly by callers,
	// chromem never needs to compute one itself.
	collection, err := db.CreateCollection(bruteCollectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &BruteForceStore{
		config:     cfg,
		db:         db,
		collection: collection,
		meta:       make(map[string]Meta),
	}, nil
}

func (s *BruteForceStore) Add(ctx context.Context, ids []string, vectors [][]float32, meta []Meta) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(vectors) || len(ids) != len(meta) {
		return fmt.Errorf("ids, vectors and meta length mismatch: %d/%d/%d", len(ids), len(vectors), len(meta))
	}
	if s.closed {
		return fmt.Errorf("index is closed")
	}

	for i, id := range ids {
		if len(vectors[i]) != s.config.Dimensions {
			return ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(vectors[i])}
		}

		doc := chromem.Document{
			ID:        id,
			Embedding: vectors[i],
			Metadata:  metaToTags(meta[i]),
		}
		if err := s.collection.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("add document %s: %w", id, err)
		}
		s.meta[id] = meta[i]
	}
	return nil
}

func (s *BruteForceStore) Search(ctx context.Context, query []float32, topK int, filter Filter) ([]Result, error) {
	if s.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if len(query) != s.config.Dimensions {
		return nil, ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(query)}
	}

	n := s.collection.Count()
	if n == 0 {
		return []Result{}, nil
	}

	fetchK := topK * overfetchMultiplier
	if fetchK > n {
		fetchK = n
	}
	if fetchK < 1 {
		fetchK = 1
	}

	docs, err := s.collection.QueryEmbedding(ctx, query, fetchK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	results := make([]Result, 0, topK)
	for _, doc := range docs {
		if !filter.matches(s.meta[doc.ID]) {
			continue
		}
		if filter.MinScore > 0 && float64(doc.Similarity) < filter.MinScore {
			continue
		}
		results = append(results, Result{
			ID:       doc.ID,
			Distance: 1 - doc.Similarity,
			Score:    doc.Similarity,
		})
		if len(results) >= topK {
			break
		}
	}
	return results, nil
}

func (s *BruteForceStore) Delete(ctx context.Context, ids []string) error {
	if s.closed {
		return fmt.Errorf("index is closed")
	}
	for _, id := range ids {
		if err := s.collection.Delete(ctx, nil, nil, id); err != nil {
			return fmt.Errorf("delete document %s: %w", id, err)
		}
		delete(s.meta, id)
	}
	return nil
}

func (s *BruteForceStore) AllIDs() []string {
	ids := make([]string, 0, len(s.meta))
	for id := range s.meta {
		ids = append(ids, id)
	}
	return ids
}

func (s *BruteForceStore) Contains(id string) bool {
	_, exists := s.meta[id]
	return exists
}

func (s *BruteForceStore) Count() int {
	return s.collection.Count()
}

// Save persists the store as a chromem-go export file plus a sidecar
// metadata file (Meta per ID isn't part of chromem's own export format).
func (s *BruteForceStore) Save(path string) error {
	if s.closed {
		return fmt.Errorf("index is closed")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := s.db.ExportToFile(path, false, ""); err != nil {
		return fmt.Errorf("export chromem db: %w", err)
	}
	return saveMetaSidecar(path+".meta", s.meta)
}

func (s *BruteForceStore) Load(path string) error {
	if s.closed {
		return fmt.Errorf("index is closed")
	}
	if err := s.db.ImportFromFile(path, ""); err != nil {
		return fmt.Errorf("import chromem db: %w", err)
	}
	collection := s.db.GetCollection(bruteCollectionName, nil)
	if collection == nil {
		return fmt.Errorf("collection %q missing after import", bruteCollectionName)
	}
	s.collection = collection

	meta, err := loadMetaSidecar(path + ".meta")
	if err != nil {
		return fmt.Errorf("load meta sidecar: %w", err)
	}
	s.meta = meta
	return nil
}

func (s *BruteForceStore) Close() error {
	s.closed = true
	return nil
}

// metaToTags flattens Meta into the string-only metadata map chromem-go
// requires, matching the keys Filter matches against.
func metaToTags(m Meta) map[string]string {
	return map[string]string{
		"fileType":  m.FileType,
		"language":  m.Language,
		"projectId": m.ProjectID,
	}
}

func saveMetaSidecar(path string, meta map[string]Meta) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp meta sidecar: %w", err)
	}
	if err := gob.NewEncoder(file).Encode(meta); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode meta sidecar: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close meta sidecar: %w", err)
	}
	return os.Rename(tmpPath, path)
}

func loadMetaSidecar(path string) (map[string]Meta, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open meta sidecar: %w", err)
	}
	defer file.Close()

	meta := make(map[string]Meta)
	if err := gob.NewDecoder(file).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode meta sidecar: %w", err)
	}
	return meta, nil
}

var _ Store = (*BruteForceStore)(nil)
