// Package models defines core data structures for documents, chunks, queries, and answers.
package models

import "time"

// DocumentStatus is the lifecycle state of an uploaded document.
type DocumentStatus string

const (
	// StatusProcessing means ingestion is in flight; queries are rejected.
	StatusProcessing DocumentStatus = "processing"
	// StatusReady means ingestion completed and the document is queryable.
	StatusReady DocumentStatus = "ready"
	// StatusFailed means ingestion failed; FailureReason explains why.
	StatusFailed DocumentStatus = "failed"
	// StatusDeleted appears only in API responses; deleted documents are
	// removed from the registry rather than kept as rows.
	StatusDeleted DocumentStatus = "deleted"
)

// Document is the registry metadata for one uploaded file.
type Document struct {
	ID            string         `json:"document_id"`
	Filename      string         `json:"filename"`
	MediaType     string         `json:"media_type"`
	Status        DocumentStatus `json:"status"`
	FailureReason string         `json:"failure_reason,omitempty"`
	ChunkCount    int            `json:"chunk_count"`
	UploadedAt    time.Time      `json:"uploaded_at"`
}

// Chunk is a bounded text segment of a document, the unit of embedding and retrieval.
// Chunks are immutable once stored; a re-upload creates a new document.
type Chunk struct {
	DocumentID string    `json:"document_id"`
	Seq        int       `json:"seq"`
	Text       string    `json:"text"`
	Locator    Locator   `json:"locator"`
	Embedding  []float32 `json:"-"`
}

// ScoredChunk is a retrieval hit: a chunk and its similarity to the query.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}
