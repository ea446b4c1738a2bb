// Package ingest runs the document ingestion pipeline: extract, chunk,
// embed, store, and registry lifecycle, with rollback on failure.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/lumenworks/askdoc/internal/chunker"
	"github.com/lumenworks/askdoc/internal/embedding"
	"github.com/lumenworks/askdoc/internal/extract"
	"github.com/lumenworks/askdoc/internal/models"
	"github.com/lumenworks/askdoc/internal/registry"
	"github.com/lumenworks/askdoc/internal/vectorstore"
)

// ErrStorageIntegrity marks a disagreement between the registry and the
// vector store about which documents exist. It is reported by health checks
// and never auto-repaired.
var ErrStorageIntegrity = errors.New("storage integrity error")

// Service coordinates ingestion and deletion. All mutations of one document
// id run under a per-id lock so a delete can never race a half-finished
// ingestion of the same document.
type Service struct {
	registry   *registry.Registry
	store      *vectorstore.Manager
	embedder   embedding.Embedder
	extractor  *extract.Extractor
	chunker    *chunker.Chunker
	uploadsDir string
	locks      *keyedLocks
	logger     *zap.Logger
}

// NewService creates the ingestion service with its injected dependencies.
func NewService(
	reg *registry.Registry,
	store *vectorstore.Manager,
	embedder embedding.Embedder,
	extractor *extract.Extractor,
	ch *chunker.Chunker,
	uploadsDir string,
	logger *zap.Logger,
) *Service {
	return &Service{
		registry:   reg,
		store:      store,
		embedder:   embedder,
		extractor:  extractor,
		chunker:    ch,
		uploadsDir: uploadsDir,
		locks:      newKeyedLocks(),
		logger:     logger,
	}
}

// Ingest registers and processes one uploaded file. On success the returned
// document is ready; on failure it is marked failed with a reason and the
// error is returned alongside it, with no vectors left behind. The raw
// upload is retained on disk either way, for inspection of failed uploads.
func (s *Service) Ingest(ctx context.Context, filename string, content []byte) (*models.Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !extract.Supported(ext) {
		return nil, fmt.Errorf("%w: %s (supported: %s)",
			extract.ErrUnsupportedFormat, ext, strings.Join(extract.SupportedExtensions(), ", "))
	}

	doc, err := s.registry.Register(ctx, filepath.Base(filename), ext)
	if err != nil {
		return nil, err
	}
	s.logger.Info("document registered",
		zap.String("document_id", doc.ID),
		zap.String("filename", doc.Filename),
	)

	s.locks.lock(doc.ID)
	defer s.locks.unlock(doc.ID)

	// The delete may have won the race while we waited for the lock.
	if _, err := s.registry.Get(ctx, doc.ID); err != nil {
		return nil, err
	}

	if err := s.saveUpload(doc.ID, doc.Filename, content); err != nil {
		return s.fail(ctx, doc, err)
	}

	result, err := s.extractor.ExtractBytes(content, doc.Filename)
	if err != nil {
		return s.fail(ctx, doc, err)
	}
	if result.Truncated {
		s.logger.Warn("extracted text truncated",
			zap.String("document_id", doc.ID),
			zap.String("filename", doc.Filename),
		)
	}

	chunks := s.chunker.Split(result.Units)
	if err := s.commit(ctx, doc.ID, chunks); err != nil {
		return s.fail(ctx, doc, err)
	}

	if err := s.registry.MarkReady(ctx, doc.ID, len(chunks)); err != nil {
		// The document may have been deleted concurrently; roll the
		// vectors back so nothing dangles.
		_ = s.store.Delete(doc.ID)
		return nil, err
	}
	doc.Status = models.StatusReady
	doc.ChunkCount = len(chunks)
	s.logger.Info("document ready",
		zap.String("document_id", doc.ID),
		zap.Int("chunks", len(chunks)),
	)
	return doc, nil
}

// commit embeds all chunks and stores them in one collection write. Any
// failure removes the collection again so no partial vectors survive.
func (s *Service) commit(ctx context.Context, docID string, chunks []models.Chunk) error {
	col, err := s.store.CreateOrGet(docID)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		// Nothing retrievable (e.g. an image with no recognizable text);
		// the empty collection still marks the document's presence.
		return nil
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		_ = s.store.Delete(docID)
		return err
	}
	for i := range chunks {
		chunks[i].DocumentID = docID
		chunks[i].Embedding = vectors[i]
	}
	if err := s.store.Add(ctx, col, chunks); err != nil {
		_ = s.store.Delete(docID)
		return err
	}
	return nil
}

// fail marks the document failed, cleans up any vectors, and returns the
// cause. The failure reason stored in the registry is the user-visible one.
func (s *Service) fail(ctx context.Context, doc *models.Document, cause error) (*models.Document, error) {
	_ = s.store.Delete(doc.ID)
	reason := cause.Error()
	if err := s.registry.MarkFailed(ctx, doc.ID, reason); err != nil && !errors.Is(err, registry.ErrNotFound) {
		s.logger.Error("failed to record ingestion failure",
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
	}
	doc.Status = models.StatusFailed
	doc.FailureReason = reason
	s.logger.Warn("ingestion failed",
		zap.String("document_id", doc.ID),
		zap.String("reason", reason),
	)
	return doc, cause
}

// Delete removes a document everywhere: vectors first, then metadata, then
// the retained upload. Runs under the same per-id lock as ingestion.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.locks.lock(id)
	defer s.locks.unlock(id)

	if _, err := s.registry.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(id); err != nil {
		return err
	}
	if err := s.registry.Delete(ctx, id); err != nil {
		return err
	}
	s.removeUpload(id)
	s.logger.Info("document deleted", zap.String("document_id", id))
	return nil
}

// IngestPath reads a file from disk and ingests it. Used by the inbox watcher.
func (s *Service) IngestPath(ctx context.Context, path string) (*models.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return s.Ingest(ctx, filepath.Base(path), content)
}

// CheckIntegrity compares the registry's document ids with the vector
// store's collections. Ready documents without a collection, and collections
// without a metadata row, are integrity findings; they are reported, never
// auto-repaired.
func (s *Service) CheckIntegrity(ctx context.Context) ([]string, error) {
	ids, err := s.registry.IDs(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	collectionIDs := s.store.CollectionIDs()
	collections := make(map[string]bool, len(collectionIDs))
	for _, id := range collectionIDs {
		collections[id] = true
	}

	var findings []string
	for _, id := range ids {
		doc, err := s.registry.Get(ctx, id)
		if err != nil {
			continue
		}
		if doc.Status == models.StatusReady && !collections[id] {
			findings = append(findings, fmt.Sprintf("%v: document %s is ready but has no collection", ErrStorageIntegrity, id))
		}
	}
	for _, id := range collectionIDs {
		if !known[id] {
			findings = append(findings, fmt.Sprintf("%v: collection %s has no registry entry", ErrStorageIntegrity, id))
		}
	}
	sort.Strings(findings)
	return findings, nil
}

func (s *Service) saveUpload(docID, filename string, content []byte) error {
	if s.uploadsDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	path := filepath.Join(s.uploadsDir, docID+"_"+filepath.Base(filename))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("retain upload: %w", err)
	}
	return nil
}

func (s *Service) removeUpload(docID string) {
	if s.uploadsDir == "" {
		return
	}
	matches, err := filepath.Glob(filepath.Join(s.uploadsDir, docID+"_*"))
	if err != nil {
		return
	}
	for _, m := range matches {
		_ = os.Remove(m)
	}
}
