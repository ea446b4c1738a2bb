// Package extract converts uploaded files into plain text structural units.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lumenworks/askdoc/internal/models"
)

// ErrUnsupportedFormat is returned for file types the extractor does not handle.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ErrExtractionFailed is returned when a supported file cannot be parsed.
var ErrExtractionFailed = errors.New("extraction failed")

// Unit is one structural unit of extracted text: a page, a row, or the whole
// document for formats without natural structure. Units preserve source order.
type Unit struct {
	Locator models.Locator
	Text    string
}

// Result is the output of extraction: ordered units plus a truncation flag.
// Truncated is set when the decoded text exceeded the configured ceiling and
// was cut rather than failing the upload.
type Result struct {
	Units     []Unit
	Truncated bool
}

// Text concatenates all unit texts, separated by blank lines.
func (r *Result) Text() string {
	parts := make([]string, 0, len(r.Units))
	for _, u := range r.Units {
		parts = append(parts, u.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Extractor extracts structural text units from document files.
type Extractor struct {
	maxTextBytes int
}

// NewExtractor returns an extractor that truncates total extracted text at
// maxTextBytes. A non-positive ceiling disables truncation.
func NewExtractor(maxTextBytes int) *Extractor {
	return &Extractor{maxTextBytes: maxTextBytes}
}

// supportedExts lists the extensions the extractor handles.
var supportedExts = map[string]bool{
	".txt": true, ".md": true, ".pdf": true, ".docx": true,
	".csv": true, ".xlsx": true, ".png": true, ".jpg": true,
	".jpeg": true, ".db": true,
}

// Supported reports whether ext (with leading dot, any case) is extractable.
func Supported(ext string) bool {
	return supportedExts[strings.ToLower(ext)]
}

// SupportedExtensions returns the extractable extensions, for error messages.
func SupportedExtensions() []string {
	return []string{".txt", ".md", ".pdf", ".docx", ".csv", ".xlsx", ".png", ".jpg", ".jpeg", ".db"}
}

// ExtractBytes extracts structural units from content based on the filename's
// extension. Returns ErrUnsupportedFormat for unknown extensions and
// ErrExtractionFailed (wrapping the cause) for corrupt input. Image files with
// no recognizable text yield zero units, not an error.
func (e *Extractor) ExtractBytes(content []byte, filename string) (*Result, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	var (
		units []Unit
		err   error
	)
	switch ext {
	case ".txt", ".md":
		units, err = extractPlain(content)
	case ".pdf":
		units, err = extractPDF(content)
	case ".docx":
		units, err = extractDOCX(content)
	case ".csv":
		units, err = extractCSV(content)
	case ".xlsx":
		units, err = extractExcel(content)
	case ".png", ".jpg", ".jpeg":
		units, err = extractImage(content, filepath.Base(filename))
	case ".db":
		units, err = extractSQLite(content, filepath.Base(filename))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		if errors.Is(err, ErrExtractionFailed) || errors.Is(err, ErrUnsupportedFormat) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return e.bound(units), nil
}

// bound drops empty units and truncates total text at the configured ceiling.
func (e *Extractor) bound(units []Unit) *Result {
	res := &Result{}
	total := 0
	for _, u := range units {
		u.Text = strings.TrimSpace(u.Text)
		if u.Text == "" {
			continue
		}
		if e.maxTextBytes > 0 {
			if total >= e.maxTextBytes {
				res.Truncated = true
				break
			}
			if total+len(u.Text) > e.maxTextBytes {
				u.Text = strings.TrimSpace(cutValidUTF8(u.Text, e.maxTextBytes-total))
				res.Truncated = true
				if u.Text == "" {
					break
				}
			}
		}
		total += len(u.Text)
		res.Units = append(res.Units, u)
		if res.Truncated {
			break
		}
	}
	return res
}
