package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/lumenworks/askdoc/internal/models"
)

// extractPDF emits one unit per page with a 1-based page locator. Pages whose
// text cannot be decoded are skipped rather than failing the whole document.
func extractPDF(content []byte) ([]Unit, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	numPages := r.NumPage()
	units := make([]Unit, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		units = append(units, Unit{Locator: models.PageLocator(i), Text: text})
	}
	return units, nil
}
