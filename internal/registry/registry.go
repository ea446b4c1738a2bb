// Package registry is the authority for document metadata and lifecycle:
// which document ids exist, what was uploaded, and whether ingestion has
// completed. Backed by SQLite; survives restarts.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lumenworks/askdoc/internal/models"
)

// ErrNotFound is returned when a document id does not exist.
var ErrNotFound = errors.New("document not found")

// ErrNotReady is returned when a query targets a document whose ingestion
// has not completed successfully.
var ErrNotReady = errors.New("document not ready")

// Registry stores document metadata in SQLite.
type Registry struct {
	db *sql.DB
}

// Open opens or creates the registry database at dbPath and initializes the
// schema. Parent directories are created if they do not exist.
func Open(dbPath string) (*Registry, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create registry directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Registry{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		media_type TEXT NOT NULL,
		status TEXT NOT NULL,
		failure_reason TEXT NOT NULL DEFAULT '',
		chunk_count INTEGER NOT NULL DEFAULT 0,
		uploaded_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_uploaded_at ON documents(uploaded_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Register creates a new document row in status processing and returns its
// metadata. Ids are generated server-side and never reused, even after the
// document is deleted.
func (r *Registry) Register(ctx context.Context, filename, mediaType string) (*models.Document, error) {
	doc := &models.Document{
		ID:         uuid.New().String(),
		Filename:   filename,
		MediaType:  mediaType,
		Status:     models.StatusProcessing,
		UploadedAt: time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (id, filename, media_type, status, uploaded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, doc.MediaType, string(doc.Status), doc.UploadedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("register document: %w", err)
	}
	return doc, nil
}

// MarkReady transitions a document to ready with its final chunk count.
func (r *Registry) MarkReady(ctx context.Context, id string, chunkCount int) error {
	return r.updateStatus(ctx, id, models.StatusReady, "", chunkCount)
}

// MarkFailed transitions a document to failed with a human-readable reason.
func (r *Registry) MarkFailed(ctx context.Context, id, reason string) error {
	return r.updateStatus(ctx, id, models.StatusFailed, reason, 0)
}

func (r *Registry) updateStatus(ctx context.Context, id string, status models.DocumentStatus, reason string, chunkCount int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, failure_reason = ?, chunk_count = ? WHERE id = ?`,
		string(status), reason, chunkCount, id,
	)
	if err != nil {
		return fmt.Errorf("update document %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Get returns a document's metadata, or ErrNotFound.
func (r *Registry) Get(ctx context.Context, id string) (*models.Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, filename, media_type, status, failure_reason, chunk_count, uploaded_at
		 FROM documents WHERE id = ?`, id,
	)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return doc, err
}

// List returns all documents, newest first.
func (r *Registry) List(ctx context.Context) ([]*models.Document, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, filename, media_type, status, failure_reason, chunk_count, uploaded_at
		 FROM documents ORDER BY uploaded_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Delete removes a document's metadata row. Returns ErrNotFound when the id
// does not exist. Cascading to the vector store is the ingest layer's job so
// both stores are cleared under the same per-document lock.
func (r *Registry) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// IDs returns all known document ids, for integrity checks against the
// vector store.
func (r *Registry) IDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("list document ids: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Count returns the number of registered documents.
func (r *Registry) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (r *Registry) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	var status string
	if err := row.Scan(&doc.ID, &doc.Filename, &doc.MediaType, &status,
		&doc.FailureReason, &doc.ChunkCount, &doc.UploadedAt); err != nil {
		return nil, err
	}
	doc.Status = models.DocumentStatus(status)
	return &doc, nil
}
