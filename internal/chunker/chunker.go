// Package chunker splits extracted text into overlapping retrieval segments.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lumenworks/askdoc/internal/extract"
	"github.com/lumenworks/askdoc/internal/models"
)

// Chunker windows structural-unit text into segments of at most chunkSize
// bytes, with adjacent segments inside one unit overlapping by overlap bytes.
// Overlap never spans two units, so a segment's locator is always truthful.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New creates a chunker. Requires 0 <= overlap < chunkSize; the config layer
// validates this at startup, so a violation here is a programming error.
func New(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("invalid chunk config: size %d overlap %d", chunkSize, overlap)
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Split chunks every unit in order and assigns zero-based sequence indices
// across the whole document. Segments that trim to empty are dropped.
func (c *Chunker) Split(units []extract.Unit) []models.Chunk {
	var chunks []models.Chunk
	seq := 0
	for _, u := range units {
		for _, span := range c.splitText(u.Text) {
			text := strings.TrimSpace(span)
			if text == "" {
				continue
			}
			chunks = append(chunks, models.Chunk{
				Seq:     seq,
				Text:    text,
				Locator: u.Locator,
			})
			seq++
		}
	}
	return chunks
}

// boundary strategies, tried in order per oversized window. Each is a pure
// function from a window to the byte offset to break at, or -1 when the
// strategy finds no usable boundary.
var boundaries = []func(window string) int{paragraphBreak, sentenceBreak}

// splitText windows text so that concatenating consecutive windows minus
// their overlapping prefixes reproduces the input exactly: every byte belongs
// to a window, and each window after the first starts overlap bytes before
// the previous window's end.
func (c *Chunker) splitText(text string) []string {
	if text == "" {
		return nil
	}
	var out []string
	start := 0
	for start < len(text) {
		if len(text)-start <= c.chunkSize {
			out = append(out, text[start:])
			break
		}
		end := c.breakAt(text, start)
		out = append(out, text[start:end])
		next := runeAlign(text, end-c.overlap)
		if next <= start {
			// Rune alignment can eat the whole step on tiny configs; skip
			// the overlap rather than stall.
			next = end
		}
		start = next
	}
	return out
}

// breakAt picks the end of the window starting at start: the latest paragraph
// boundary, else the latest sentence boundary, else a hard cut at chunkSize.
// The chosen end always lies beyond start+overlap so windowing advances.
func (c *Chunker) breakAt(text string, start int) int {
	limit := start + c.chunkSize
	window := text[start:limit]
	for _, boundary := range boundaries {
		if off := boundary(window); off > c.overlap {
			return start + off
		}
	}
	return runeAlign(text, limit)
}

// paragraphBreak returns the offset just after the last blank line in window.
func paragraphBreak(window string) int {
	i := strings.LastIndex(window, "\n\n")
	if i < 0 {
		return -1
	}
	return i + 2
}

// sentenceBreak returns the offset just after the last sentence-ending
// punctuation followed by whitespace, or after the last newline.
func sentenceBreak(window string) int {
	best := -1
	for i := len(window) - 1; i > 0; i-- {
		ch := window[i]
		if ch == '\n' {
			best = i + 1
			break
		}
		if (ch == ' ' || ch == '\t') && isSentenceEnd(window[i-1]) {
			best = i + 1
			break
		}
	}
	return best
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

// runeAlign moves pos back to the nearest rune start so windows never split
// a multi-byte character.
func runeAlign(text string, pos int) int {
	if pos <= 0 {
		return 0
	}
	if pos >= len(text) {
		return len(text)
	}
	for pos > 0 && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}
