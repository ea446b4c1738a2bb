package models

import "fmt"

// QueryRequest is a question against one ready document, optionally with an image.
type QueryRequest struct {
	DocumentID  string `json:"document_id"`
	Question    string `json:"question"`
	ImageBase64 string `json:"image_base64,omitempty"`
	TopK        int    `json:"top_k,omitempty"`
}

// Validate checks required fields and normalizes TopK against the given
// default and cap. Returns an error for an empty question or document id.
func (q *QueryRequest) Validate(defaultTopK, maxTopK int) error {
	if q.DocumentID == "" {
		return fmt.Errorf("document_id cannot be empty")
	}
	if q.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if q.TopK <= 0 {
		q.TopK = defaultTopK
	}
	if q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	return nil
}

// Source is one cited snippet in an answer, carrying its chunk's locator.
type Source struct {
	Locator Locator `json:"locator"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Answer is the result of a query: generated text plus the exact chunks
// that were placed in the completion prompt, in retrieval order.
type Answer struct {
	Question string   `json:"question"`
	Text     string   `json:"answer"`
	Sources  []Source `json:"sources"`
}
