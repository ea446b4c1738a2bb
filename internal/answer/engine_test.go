package answer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/lumenworks/askdoc/internal/completion"
	"github.com/lumenworks/askdoc/internal/embedding"
	"github.com/lumenworks/askdoc/internal/models"
	"github.com/lumenworks/askdoc/internal/registry"
	"github.com/lumenworks/askdoc/internal/vectorstore"
)

// scriptedEmbedder maps known texts to fixed vectors so a test controls the
// similarity ranking exactly. Unknown texts get the fallback vector.
type scriptedEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
}

func (s *scriptedEmbedder) Model() string { return "mock-embedding" }

func (s *scriptedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return s.fallback, nil
}

func (s *scriptedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type answerEnv struct {
	engine    *Engine
	registry  *registry.Registry
	store     *vectorstore.Manager
	embedder  embedding.Embedder
	completer *completion.MockCompleter
}

func newAnswerEnv(t *testing.T) *answerEnv {
	t.Helper()
	return newAnswerEnvWith(t, embedding.NewMockEmbedder(16, ""))
}

func newAnswerEnvWith(t *testing.T, embedder embedding.Embedder) *answerEnv {
	t.Helper()
	dir := t.TempDir()
	reg, err := registry.Open(filepath.Join(dir, "registry.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = reg.Close() })
	store, err := vectorstore.Open(filepath.Join(dir, "collections"), embedder.Model(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	completer := &completion.MockCompleter{Answer: "The revenue was 4.2 million dollars."}
	return &answerEnv{
		engine:    NewEngine(reg, store, embedder, completer, zap.NewNop()),
		registry:  reg,
		store:     store,
		embedder:  embedder,
		completer: completer,
	}
}

// seedDocument registers a ready document whose collection holds the given
// chunks, embedded with the env's mock embedder.
func (env *answerEnv) seedDocument(t *testing.T, chunks []models.Chunk) string {
	t.Helper()
	ctx := context.Background()
	doc, err := env.registry.Register(ctx, "report.pdf", ".pdf")
	if err != nil {
		t.Fatal(err)
	}
	col, err := env.store.CreateOrGet(doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	for i := range chunks {
		vec, err := env.embedder.Embed(ctx, chunks[i].Text)
		if err != nil {
			t.Fatal(err)
		}
		chunks[i].Embedding = vec
	}
	if len(chunks) > 0 {
		if err := env.store.Add(ctx, col, chunks); err != nil {
			t.Fatal(err)
		}
	}
	if err := env.registry.MarkReady(ctx, doc.ID, len(chunks)); err != nil {
		t.Fatal(err)
	}
	return doc.ID
}

func TestAnswer_groundedWithSources(t *testing.T) {
	// Script the vectors so the page-2 revenue chunk is unambiguously the
	// closest match for the question, with the intro a distant second.
	env := newAnswerEnvWith(t, &scriptedEmbedder{
		vectors: map[string][]float32{
			"What was the revenue?":                          {1, 0, 0},
			"The quarterly revenue was 4.2 million dollars.": {0.9, 0.1, 0},
			"Introduction and methodology.":                  {0.2, 1, 0},
			"Appendix with raw data tables.":                 {0, 0, 1},
		},
		fallback: []float32{0, 0, 0},
	})
	docID := env.seedDocument(t, []models.Chunk{
		{Seq: 0, Text: "Introduction and methodology.", Locator: models.PageLocator(1)},
		{Seq: 1, Text: "The quarterly revenue was 4.2 million dollars.", Locator: models.PageLocator(2)},
		{Seq: 2, Text: "Appendix with raw data tables.", Locator: models.PageLocator(3)},
	})

	req := &models.QueryRequest{
		DocumentID: docID,
		Question:   "What was the revenue?",
		TopK:       2,
	}
	ans, err := env.engine.Answer(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if ans.Text != "The revenue was 4.2 million dollars." {
		t.Errorf("answer text = %q", ans.Text)
	}
	if len(ans.Sources) != 2 {
		t.Fatalf("sources = %d, want 2 (TopK)", len(ans.Sources))
	}
	if ans.Sources[0].Locator != models.PageLocator(2) {
		t.Errorf("top source locator = %v, want %v", ans.Sources[0].Locator, models.PageLocator(2))
	}
	if !strings.Contains(ans.Sources[0].Snippet, "quarterly revenue") {
		t.Errorf("top source snippet = %q, want the revenue chunk", ans.Sources[0].Snippet)
	}
	if ans.Sources[1].Locator != models.PageLocator(1) {
		t.Errorf("second source locator = %v, want %v", ans.Sources[1].Locator, models.PageLocator(1))
	}

	// The prompt carries the system instructions and the retrieved chunks
	// tagged with their locators; the sources are exactly those chunks.
	if env.completer.LastReq.System != systemPrompt {
		t.Error("system prompt not passed to completer")
	}
	user := env.completer.LastReq.User
	if !strings.Contains(user, "What was the revenue?") {
		t.Errorf("question missing from prompt: %q", user)
	}
	for _, src := range ans.Sources {
		tag := "[" + src.Locator.String() + "]"
		if !strings.Contains(user, tag) {
			t.Errorf("prompt missing locator tag %s", tag)
		}
		if !strings.Contains(user, src.Snippet) && !strings.HasSuffix(src.Snippet, "...") {
			t.Errorf("prompt missing source snippet %q", src.Snippet)
		}
	}
	if env.completer.LastReq.ImageDataURL != "" {
		t.Error("unexpected image in text-only query")
	}
}

func TestAnswer_documentNotFound(t *testing.T) {
	env := newAnswerEnv(t)
	_, err := env.engine.Answer(context.Background(), &models.QueryRequest{
		DocumentID: "no-such-id",
		Question:   "anything",
		TopK:       5,
	})
	if !errors.Is(err, registry.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if env.completer.Calls != 0 {
		t.Error("completer called for missing document")
	}
}

func TestAnswer_notReadyRejected(t *testing.T) {
	env := newAnswerEnv(t)
	ctx := context.Background()
	doc, err := env.registry.Register(ctx, "pending.txt", ".txt")
	if err != nil {
		t.Fatal(err)
	}

	_, err = env.engine.Answer(ctx, &models.QueryRequest{
		DocumentID: doc.ID,
		Question:   "too early",
		TopK:       5,
	})
	if !errors.Is(err, registry.ErrNotReady) {
		t.Errorf("expected ErrNotReady for processing document, got %v", err)
	}

	if err := env.registry.MarkFailed(ctx, doc.ID, "boom"); err != nil {
		t.Fatal(err)
	}
	_, err = env.engine.Answer(ctx, &models.QueryRequest{
		DocumentID: doc.ID,
		Question:   "still no",
		TopK:       5,
	})
	if !errors.Is(err, registry.ErrNotReady) {
		t.Errorf("expected ErrNotReady for failed document, got %v", err)
	}
}

func TestAnswer_emptyDocumentShortCircuits(t *testing.T) {
	env := newAnswerEnv(t)
	docID := env.seedDocument(t, nil)

	ans, err := env.engine.Answer(context.Background(), &models.QueryRequest{
		DocumentID: docID,
		Question:   "anything in here?",
		TopK:       5,
	})
	if err != nil {
		t.Fatal(err)
	}
	if ans.Text != noContentAnswer {
		t.Errorf("answer = %q", ans.Text)
	}
	if len(ans.Sources) != 0 {
		t.Errorf("sources = %v, want none", ans.Sources)
	}
	if env.completer.Calls != 0 {
		t.Error("completer called for empty document")
	}
}

func TestAnswer_imageForwardedAsDataURL(t *testing.T) {
	env := newAnswerEnv(t)
	docID := env.seedDocument(t, []models.Chunk{
		{Seq: 0, Text: "Chart shows an upward trend.", Locator: models.PageLocator(1)},
	})

	_, err := env.engine.Answer(context.Background(), &models.QueryRequest{
		DocumentID:  docID,
		Question:    "What does the chart show?",
		ImageBase64: "aGVsbG8=",
		TopK:        1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := env.completer.LastReq.ImageDataURL; got != "data:image/jpeg;base64,aGVsbG8=" {
		t.Errorf("image data URL = %q", got)
	}
	if !strings.Contains(env.completer.LastReq.User, "image") {
		t.Error("prompt does not mention the image")
	}

	// Payloads already shaped as data URLs pass through unchanged.
	_, err = env.engine.Answer(context.Background(), &models.QueryRequest{
		DocumentID:  docID,
		Question:    "Again?",
		ImageBase64: "data:image/png;base64,aGVsbG8=",
		TopK:        1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := env.completer.LastReq.ImageDataURL; got != "data:image/png;base64,aGVsbG8=" {
		t.Errorf("data URL passthrough = %q", got)
	}
}

func TestAnswer_completerFailurePropagates(t *testing.T) {
	env := newAnswerEnv(t)
	docID := env.seedDocument(t, []models.Chunk{
		{Seq: 0, Text: "content", Locator: models.NoLocator},
	})
	env.completer.Err = completion.ErrProvider

	_, err := env.engine.Answer(context.Background(), &models.QueryRequest{
		DocumentID: docID,
		Question:   "q",
		TopK:       1,
	})
	if !errors.Is(err, completion.ErrProvider) {
		t.Errorf("expected ErrProvider, got %v", err)
	}
}

func TestSnippet(t *testing.T) {
	short := "short text"
	if got := snippet(short); got != short {
		t.Errorf("snippet(%q) = %q", short, got)
	}
	long := strings.Repeat("x", snippetLimit+50)
	got := snippet(long)
	if len([]rune(got)) != snippetLimit+3 {
		t.Errorf("snippet length = %d runes", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("snippet missing ellipsis: %q", got)
	}
}
