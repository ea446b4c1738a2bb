// Package vectorstore owns per-document vector collections: chunk text,
// locators, and embeddings, persisted one collection file per document.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/lumenworks/askdoc/internal/models"
)

// ErrModelMismatch is returned when a query's embedding model differs from
// the model recorded when the collection was created. Mixing models makes
// similarity scores meaningless, so such queries are rejected outright.
var ErrModelMismatch = errors.New("collection embedding model mismatch")

// collectionExt is the on-disk extension for collection files.
const collectionExt = ".col"

// Stats summarizes the store for health reporting.
type Stats struct {
	Collections  int `json:"collection_count"`
	TotalVectors int `json:"total_vector_count"`
}

// Manager owns all collections under one directory. It is opened once per
// process; handles stay live across requests. Collections are hard-isolated:
// a search against one document's collection can only ever see that
// document's chunks because no other document's vectors are present in it.
type Manager struct {
	dir    string
	model  string
	logger *zap.Logger

	mu          sync.RWMutex
	collections map[string]*Collection
}

// Open loads every collection file under dir. The model identifier is
// recorded into collections created from here on; existing collections keep
// the model they were created with.
func Open(dir, model string, logger *zap.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create collections dir: %w", err)
	}
	m := &Manager{
		dir:         dir,
		model:       model,
		logger:      logger,
		collections: make(map[string]*Collection),
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read collections dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), collectionExt) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		col, err := loadCollection(path)
		if err != nil {
			return nil, fmt.Errorf("load collection %s: %w", e.Name(), err)
		}
		m.collections[col.docID] = col
	}
	logger.Info("vector store opened",
		zap.String("dir", dir),
		zap.Int("collections", len(m.collections)),
	)
	return m, nil
}

// CreateOrGet returns the collection for docID, creating an empty one
// (persisted immediately, so the on-disk id set matches the registry) when
// none exists.
func (m *Manager) CreateOrGet(docID string) (*Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if col, ok := m.collections[docID]; ok {
		return col, nil
	}
	col := &Collection{
		docID: docID,
		model: m.model,
		path:  filepath.Join(m.dir, docID+collectionExt),
	}
	if err := col.save(); err != nil {
		return nil, fmt.Errorf("create collection %s: %w", docID, err)
	}
	m.collections[docID] = col
	return col, nil
}

// Get returns the collection for docID, or nil when none exists.
func (m *Manager) Get(docID string) *Collection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collections[docID]
}

// Add upserts chunks with their vectors into col and persists the whole
// collection in one commit (temp file + rename), so a failed ingestion never
// leaves a partially written collection on disk. Re-adding an existing
// (document, seq) pair overwrites instead of duplicating.
func (m *Manager) Add(ctx context.Context, col *Collection, chunks []models.Chunk) error {
	return col.add(chunks)
}

// Search ranks col's chunks by cosine similarity to query, descending, with
// ties broken by ascending sequence index. queryModel must match the model
// the collection was created with. A nil collection yields no results.
func (m *Manager) Search(ctx context.Context, col *Collection, queryModel string, query []float32, topK int) ([]models.ScoredChunk, error) {
	if col == nil {
		return nil, nil
	}
	if queryModel != col.model {
		return nil, fmt.Errorf("%w: collection has %q, query used %q", ErrModelMismatch, col.model, queryModel)
	}
	return col.search(query, topK), nil
}

// Delete removes the collection's vectors and file. Irreversible.
func (m *Manager) Delete(docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.collections[docID]
	if !ok {
		return nil
	}
	delete(m.collections, docID)
	if err := col.remove(); err != nil {
		return fmt.Errorf("delete collection %s: %w", docID, err)
	}
	m.logger.Debug("collection deleted", zap.String("document_id", docID))
	return nil
}

// Stats returns collection and vector counts for health reporting.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Stats{Collections: len(m.collections)}
	for _, col := range m.collections {
		s.TotalVectors += col.size()
	}
	return s
}

// CollectionIDs returns the document ids that have a collection on disk,
// for startup/health integrity checks against the registry.
func (m *Manager) CollectionIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.collections))
	for id := range m.collections {
		ids = append(ids, id)
	}
	return ids
}
