package answer

import (
	"fmt"
	"strings"

	"github.com/lumenworks/askdoc/internal/models"
)

// systemPrompt constrains the model to the retrieved context. Retrieval has
// no relevance threshold, so admitting insufficient context is the model's
// job, phrased exactly so callers can recognize it.
const systemPrompt = "You are an expert assistant that provides accurate, clear, and concise answers " +
	"strictly based on the provided context. Do not use external knowledge or make assumptions. " +
	"If the answer is not explicitly found in the context, respond with " +
	"'The context does not provide enough information to answer this question.'"

// noContentAnswer is returned for documents that produced no retrievable
// chunks (e.g. an image with no recognizable text).
const noContentAnswer = "This document contains no retrievable text content, so there is no context to answer from."

// userPrompt renders the grounded user message: locator-tagged chunk texts
// followed by the question.
func userPrompt(question string, hits []models.ScoredChunk, withImage bool) string {
	var b strings.Builder
	b.WriteString("Answer the question based only on the following context")
	if withImage {
		b.WriteString(" and the provided image")
	}
	b.WriteString(":\n\n")
	for _, h := range hits {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", h.Chunk.Locator, h.Chunk.Text)
	}
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	if withImage {
		b.WriteString("Provide a comprehensive answer based on both the text context and the image content.")
	} else {
		b.WriteString("Provide a comprehensive and accurate answer based solely on the context provided.")
	}
	return b.String()
}

// snippetLimit bounds source snippets in responses.
const snippetLimit = 200

// snippet returns the first snippetLimit runes of text, with an ellipsis
// when truncated.
func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetLimit {
		return text
	}
	return string(runes[:snippetLimit]) + "..."
}
