//go:build ocr && cgo
// +build ocr,cgo

package extract

import (
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/lumenworks/askdoc/internal/models"
)

// OCRSupported reports whether image text recognition is compiled in.
func OCRSupported() bool { return true }

// extractImage runs OCR over image bytes and emits a single unit located by
// filename. OCR failure or an image with no recognizable text fails softly to
// zero units so the upload still completes, just without retrievable content.
func extractImage(content []byte, filename string) ([]Unit, error) {
	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetImageFromBytes(content); err != nil {
		return nil, nil
	}
	text, err := client.Text()
	if err != nil || strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []Unit{{Locator: models.NameLocator(filename), Text: text}}, nil
}
