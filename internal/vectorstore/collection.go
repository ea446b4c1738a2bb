package vectorstore

import (
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/lumenworks/askdoc/internal/models"
)

// Collection is the isolated set of chunks belonging to one document. It is
// the handle callers pass back to the Manager; records live in memory sorted
// by sequence index and are persisted as one file.
type Collection struct {
	docID string
	model string
	dim   int
	path  string

	mu     sync.RWMutex
	chunks []models.Chunk
}

// DocumentID returns the owning document's id.
func (c *Collection) DocumentID() string { return c.docID }

// Model returns the embedding model the collection was created with.
func (c *Collection) Model() string { return c.model }

// Size returns the number of stored vectors.
func (c *Collection) Size() int { return c.size() }

func (c *Collection) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.chunks)
}

// add upserts chunks by sequence index and persists in one commit.
func (c *Collection) add(chunks []models.Chunk) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range chunks {
		if len(ch.Embedding) == 0 {
			return fmt.Errorf("chunk %d of %s has no embedding", ch.Seq, c.docID)
		}
		if c.dim == 0 {
			c.dim = len(ch.Embedding)
		}
		if len(ch.Embedding) != c.dim {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(ch.Embedding), c.dim)
		}
		ch.DocumentID = c.docID
		c.upsert(ch)
	}
	return c.save()
}

// upsert replaces the chunk with the same seq, or inserts keeping seq order.
func (c *Collection) upsert(ch models.Chunk) {
	i := sort.Search(len(c.chunks), func(i int) bool { return c.chunks[i].Seq >= ch.Seq })
	if i < len(c.chunks) && c.chunks[i].Seq == ch.Seq {
		c.chunks[i] = ch
		return
	}
	c.chunks = append(c.chunks, models.Chunk{})
	copy(c.chunks[i+1:], c.chunks[i:])
	c.chunks[i] = ch
}

// search is brute-force cosine similarity over all records. Results are
// descending by score; equal scores order by ascending sequence index, so a
// fixed snapshot and query always produce the same ranking.
func (c *Collection) search(query []float32, topK int) []models.ScoredChunk {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if topK <= 0 || len(c.chunks) == 0 {
		return nil
	}
	scored := make([]models.ScoredChunk, 0, len(c.chunks))
	for _, ch := range c.chunks {
		hit := ch
		hit.Embedding = nil
		scored = append(scored, models.ScoredChunk{
			Chunk: hit,
			Score: cosineSimilarity(query, ch.Embedding),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.Seq < scored[j].Chunk.Seq
	})
	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK]
}

// remove deletes the collection file.
func (c *Collection) remove() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks = nil
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0 for
// mismatched or zero-norm inputs.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
