// Package completion provides grounded answer generation via a chat/vision model.
package completion

import (
	"context"
	"errors"
)

// ErrProvider wraps completion provider failures that survived retrying.
var ErrProvider = errors.New("completion provider error")

// Request is a structured completion prompt: fixed system instructions, the
// grounded user message, and an optional image forwarded to a vision model.
type Request struct {
	System       string
	User         string
	ImageDataURL string
}

// Completer generates answer text for a grounded prompt.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}
