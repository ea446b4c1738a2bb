//go:build !ocr || !cgo
// +build !ocr !cgo

package extract

// OCRSupported reports whether image text recognition is compiled in.
func OCRSupported() bool { return false }

// extractImage without OCR support yields no text. Image uploads still
// complete, with zero retrievable chunks. Build with -tags=ocr and a
// libtesseract installation (see ocr.go) to enable recognition.
func extractImage(content []byte, filename string) ([]Unit, error) {
	return nil, nil
}
