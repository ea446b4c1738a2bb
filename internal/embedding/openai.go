package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lumenworks/askdoc/internal/provider"
)

// OpenAIEmbedder produces embeddings through an OpenAI-compatible API.
// The client is created once at process start and shared across requests.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	maxRetries int
}

// NewOpenAIEmbedder wraps the given client with the fixed embedding model.
func NewOpenAIEmbedder(client *openai.Client, model string, maxRetries int) *OpenAIEmbedder {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &OpenAIEmbedder{client: client, model: model, maxRetries: maxRetries}
}

// Model returns the embedding model identifier bound to this embedder.
func (e *OpenAIEmbedder) Model() string { return e.model }

// Embed returns the embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds all texts in one provider call, retrying transient
// failures with exponential backoff. After retries are exhausted the error
// wraps ErrProvider so callers can classify it.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			if err := provider.SleepBackoff(ctx, attempt-1); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrProvider, err)
			}
		}
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			lastErr = err
			if provider.Retryable(err) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrProvider, err)
		}
		if len(resp.Data) != len(texts) {
			return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrProvider, len(resp.Data), len(texts))
		}
		vecs := make([][]float32, len(texts))
		// The API may return embeddings out of order; Index is authoritative.
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(vecs) {
				return nil, fmt.Errorf("%w: embedding index %d out of range", ErrProvider, d.Index)
			}
			vecs[d.Index] = d.Embedding
		}
		return vecs, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrProvider, lastErr)
}
