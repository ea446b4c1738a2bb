// Package answer orchestrates retrieval-augmented question answering over
// one ingested document.
package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lumenworks/askdoc/internal/completion"
	"github.com/lumenworks/askdoc/internal/embedding"
	"github.com/lumenworks/askdoc/internal/models"
	"github.com/lumenworks/askdoc/internal/registry"
	"github.com/lumenworks/askdoc/internal/vectorstore"
)

// Engine answers questions against a single document's collection. It is
// stateless across calls: every query re-embeds the question and re-runs
// retrieval, so no turn can leak context into the next.
type Engine struct {
	registry  *registry.Registry
	store     *vectorstore.Manager
	embedder  embedding.Embedder
	completer completion.Completer
	logger    *zap.Logger
}

// NewEngine creates an answer engine with the given dependencies.
func NewEngine(
	reg *registry.Registry,
	store *vectorstore.Manager,
	embedder embedding.Embedder,
	completer completion.Completer,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		registry:  reg,
		store:     store,
		embedder:  embedder,
		completer: completer,
		logger:    logger,
	}
}

// Answer validates the target document, retrieves its most similar chunks,
// and generates a grounded answer. The returned sources are exactly the
// chunks placed into the prompt, in retrieval order. req must already be
// validated. Scores never gate the answer: even a poor best match is sent to
// the model, which is instructed to admit insufficient context.
func (e *Engine) Answer(ctx context.Context, req *models.QueryRequest) (*models.Answer, error) {
	doc, err := e.registry.Get(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != models.StatusReady {
		return nil, fmt.Errorf("%w: %s is %s", registry.ErrNotReady, doc.ID, doc.Status)
	}

	if doc.ChunkCount == 0 {
		// Ingestion completed but found nothing to index; answer without
		// a completion round-trip and with zero sources.
		return &models.Answer{
			Question: req.Question,
			Text:     noContentAnswer,
			Sources:  []models.Source{},
		}, nil
	}

	queryVec, err := e.embedder.Embed(ctx, req.Question)
	if err != nil {
		return nil, err
	}

	col := e.store.Get(doc.ID)
	hits, err := e.store.Search(ctx, col, e.embedder.Model(), queryVec, req.TopK)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("retrieved chunks",
		zap.String("document_id", doc.ID),
		zap.Int("hits", len(hits)),
	)

	withImage := req.ImageBase64 != ""
	creq := completion.Request{
		System: systemPrompt,
		User:   userPrompt(req.Question, hits, withImage),
	}
	if withImage {
		creq.ImageDataURL = imageDataURL(req.ImageBase64)
	}
	text, err := e.completer.Complete(ctx, creq)
	if err != nil {
		return nil, err
	}

	sources := make([]models.Source, 0, len(hits))
	for _, h := range hits {
		sources = append(sources, models.Source{
			Locator: h.Chunk.Locator,
			Snippet: snippet(h.Chunk.Text),
			Score:   h.Score,
		})
	}
	return &models.Answer{
		Question: req.Question,
		Text:     text,
		Sources:  sources,
	}, nil
}

// imageDataURL wraps raw base64 image data as a data URL for the vision
// model. Payloads that already are data URLs pass through unchanged.
func imageDataURL(b64 string) string {
	if strings.HasPrefix(b64, "data:") {
		return b64
	}
	return "data:image/jpeg;base64," + b64
}
