// Package embedding provides text embedding via a remote provider.
package embedding

import (
	"context"
	"errors"
)

// ErrProvider wraps embedding provider failures that survived retrying.
var ErrProvider = errors.New("embedding provider error")

// Embedder produces vector embeddings for text. One embedder instance is
// bound to one model for its whole lifetime; ingestion and querying of a
// collection must go through embedders reporting the same Model.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}
